// =============================================================================
// GPS to ERP Converter - HTTP Service
// =============================================================================
//
// This module exposes the converter over HTTP:
//
//   GET  /               upload form
//   POST /convert        multipart form, returns the CSV as an attachment
//   POST /api/convert    JSON API, fetches both inputs by URL and returns a
//                        download URL from the configured store
//   GET  /downloads/...  files of the local store
//   GET  /healthz        liveness
//   GET  /metrics        Prometheus metrics
//
// The handlers only move bytes. Every conversion rule lives in the converter
// package.
//
// =============================================================================

package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/converter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/storage"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Form field names of the upload form.
const (
	formReport    = "file"
	formReference = "reference"
	formType      = "type"
	formOffset    = "offset_days"
)

// =============================================================================
// SERVER STRUCTURE
// =============================================================================

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	cfg       *config.ServiceConfig
	rules     config.Conversion
	converter *converter.Converter
	store     storage.Store
	metrics   *Metrics
	registry  *prometheus.Registry
	client    *http.Client
	logger    *zap.Logger
}

// New creates a Server.
//
// PARAMETERS:
//   - cfg: Service settings (limits, API key, timeouts).
//   - rules: Conversion rules; the reference CSV settings and default offset
//     are read from here.
//   - conv: The converter shared by every request.
//   - store: Destination of JSON API results.
//   - registry: Registry the conversion metrics are added to and /metrics serves.
//   - logger: Structured logger.
func New(cfg *config.ServiceConfig, rules config.Conversion, conv *converter.Converter, store storage.Store, registry *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{
		cfg:       cfg,
		rules:     rules,
		converter: conv,
		store:     store,
		metrics:   NewMetrics(registry),
		registry:  registry,
		client:    &http.Client{},
		logger:    logger,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.MaxMultipartMemory = s.maxUploadBytes()
	router.SetHTMLTemplate(indexTemplate)

	router.GET("/", s.handleIndex)
	router.POST("/convert", s.limitBody(), s.handleFormConvert)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	if local, ok := s.store.(*storage.LocalStore); ok {
		router.Static("/downloads", local.Dir())
	}

	api := router.Group("/api")
	api.Use(apiKeyAuthMiddleware(s.cfg.APISecretKey))
	api.POST("/convert", s.handleAPIConvert)

	return router
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func apiKeyAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-API-KEY")), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	limit := s.maxUploadBytes()
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.cfg.MaxUploadMB) << 20
}

// =============================================================================
// FORM HANDLERS
// =============================================================================

func (s *Server) handleIndex(c *gin.Context) {
	s.renderForm(c, http.StatusOK, "")
}

func (s *Server) renderForm(c *gin.Context, status int, message string) {
	c.HTML(status, "index", gin.H{
		"Error":  message,
		"Offset": s.rules.Offset(),
		"Year":   time.Now().Year(),
	})
}

func (s *Server) handleFormConvert(c *gin.Context) {
	doc, err := types.ParseDocumentType(c.DefaultPostForm(formType, string(types.PurchaseOrder)))
	if err != nil {
		s.renderForm(c, http.StatusBadRequest, err.Error())
		return
	}

	reportName, report, err := readFormFile(c, formReport, "GPS report")
	if err != nil {
		s.renderForm(c, statusFor(err), err.Error())
		return
	}
	_, reference, err := readFormFile(c, formReference, "reference table")
	if err != nil {
		s.renderForm(c, statusFor(err), err.Error())
		return
	}

	offset := validation.ClampOffset(c.PostForm(formOffset), s.rules.Offset())
	res, err := s.convert(doc, report, reference, offset)
	if err != nil {
		s.renderForm(c, statusFor(err), err.Error())
		return
	}

	filename := utils.Stem(reportName) + doc.Suffix()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", res.CSV)
}

func readFormFile(c *gin.Context, field, label string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("no %s uploaded: %w", label, err)
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return fh.Filename, data, nil
}

// =============================================================================
// JSON API
// =============================================================================

// APIRequest is the body of POST /api/convert.
type APIRequest struct {
	GPSURL string `json:"gps_url" binding:"required"`
	ERPURL string `json:"erp_url" binding:"required"`
	Type   string `json:"type"`

	// OffsetDays defaults to the configured offset when omitted.
	OffsetDays *int `json:"offset_days"`
}

// APIResponse is the success body of POST /api/convert.
type APIResponse struct {
	DownloadURL string `json:"download_url"`
	RunID       string `json:"run_id"`
	Rows        int    `json:"rows"`
	Unmatched   int    `json:"unmatched"`
}

func (s *Server) handleAPIConvert(c *gin.Context) {
	var req APIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	docName := req.Type
	if docName == "" {
		docName = string(types.PurchaseOrder)
	}
	doc, err := types.ParseDocumentType(docName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset := s.rules.Offset()
	if req.OffsetDays != nil {
		offset = *req.OffsetDays
	}

	ctx := c.Request.Context()
	report, err := s.fetch(ctx, req.GPSURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	reference, err := s.fetch(ctx, req.ERPURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	res, err := s.convert(doc, report, reference, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	name := utils.GenerateOutputFileName(urlStem(req.GPSURL), doc)
	link, err := s.store.Put(ctx, name, res.CSV)
	if err != nil {
		s.logger.Error("Failed to store converted document", zap.String("run_id", res.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store converted document"})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		DownloadURL: link,
		RunID:       res.RunID,
		Rows:        res.Rows,
		Unmatched:   res.Unmatched,
	})
}

// fetch downloads rawURL within the configured timeout and size limit.
func (s *Server) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", u.Redacted(), err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", u.Redacted(), resp.StatusCode)
	}

	limit := s.maxUploadBytes()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u.Redacted(), err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d MB", u.Redacted(), s.cfg.MaxUploadMB)
	}
	return data, nil
}

func urlStem(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return utils.Stem(u.Path)
}

// =============================================================================
// CONVERSION
// =============================================================================

// convert parses the reference table, runs the converter and records metrics.
func (s *Server) convert(doc types.DocumentType, report, reference []byte, offset int) (*converter.Result, error) {
	start := time.Now()

	ref, err := csvparser.Parse(bytes.NewReader(reference), s.rules.Reference)
	err = validation.NewInputError(validation.ReferenceSchema, err)
	if err == nil {
		var res *converter.Result
		res, err = s.converter.Convert(doc, report, ref, offset)
		if err == nil {
			s.metrics.Observe(doc, res, time.Since(start))
			return res, nil
		}
	}

	s.metrics.Fail(doc, err)
	s.logger.Warn("Conversion failed", zap.String("document", doc.String()), zap.Error(err))
	return nil, err
}

// statusFor maps a conversion error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if _, ok := validation.SchemaOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// =============================================================================
// TEMPLATE
// =============================================================================

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>GPS to ERP Converter</title>
  <style>
    body{font-family:system-ui,sans-serif;max-width:720px;margin:3rem auto;padding:0 1rem}
    .box{border:2px dashed #777;padding:2rem;border-radius:12px}
    label{display:block;margin:1rem 0 .3rem;font-weight:600}
    button{margin-top:1.5rem;padding:.6rem 1.2rem;border:0;border-radius:8px;font-weight:600;cursor:pointer}
    .error{color:#b00}
    footer{margin-top:3rem;font-size:.8rem;color:#777;text-align:center}
  </style>
</head>
<body>
  <h1>GPS Report &rarr; ERP CSV</h1>
  <p>Upload the GPS order report (.xlsx) and the ERP item export (.csv). The first 5 rows of the report are skipped.</p>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
  <form class="box" action="/convert" method="post" enctype="multipart/form-data">
    <label for="file">GPS report</label>
    <input id="file" type="file" name="file" accept=".xlsx" required>
    <label for="reference">ERP reference table</label>
    <input id="reference" type="file" name="reference" accept=".csv" required>
    <label for="type">Document</label>
    <select id="type" name="type">
      <option value="po">Purchase order</option>
      <option value="so">Sales order</option>
    </select>
    <label for="offset_days">US offset days</label>
    <input id="offset_days" type="number" name="offset_days" min="0" value="{{.Offset}}">
    <br><button type="submit">Convert</button>
  </form>
  <footer>&copy; {{.Year}} GPS to ERP Converter</footer>
</body>
</html>`))
