// =============================================================================
// GPS to ERP Converter - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   gpsconv serve
//
// Starts the upload form and JSON API. Service settings come from the
// environment (or a .env file): HTTP_PORT, API_SECRET_KEY, STORE_BACKEND,
// DOWNLOAD_DIR, S3_* and the cleanup schedule. Conversion rules come from the
// configuration file like every other command.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/converter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/server"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload form and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCfg, err := config.LoadService()
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, svcCfg)
	if err != nil {
		return fmt.Errorf("failed to set up download store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conv := converter.New(appConfig.Conversion, logger)
	srv := server.New(svcCfg, appConfig.Conversion, conv, store, registry, logger)

	if local, ok := store.(*storage.LocalStore); ok {
		scheduler, err := server.StartCleanup(svcCfg.CleanupSchedule, local.Dir(), svcCfg.DownloadRetention(), logger)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:              ":" + svcCfg.HTTPPort,
		Handler:           srv.Router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2*svcCfg.FetchTimeout() + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("port", svcCfg.HTTPPort),
			zap.String("store", svcCfg.StoreBackend),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
