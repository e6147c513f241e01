package server

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartCleanup schedules the purge of local downloads older than maxAge.
// The returned scheduler is running; call Stop on shutdown.
func StartCleanup(schedule, dir string, maxAge time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		removed, err := utils.CleanOldFiles(dir, maxAge)
		if err != nil {
			logger.Error("Download cleanup failed", zap.String("dir", dir), zap.Error(err))
			return
		}
		logger.Info("Download cleanup completed", zap.String("dir", dir), zap.Int("removed", removed))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	return scheduler, nil
}
