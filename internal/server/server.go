// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package server hosts the conversion pipeline behind an HTTP upload
// endpoint. It is a thin collaborator: bytes in, Manifest.zip out. Each
// request builds its own Orchestrator, so simultaneous uploads never share
// workspace state.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	converr "github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/logging"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/pipeline"
)

// bundleFormField is the multipart form field carrying the uploaded bundle.
const bundleFormField = "bundle"

// ErrNoFile is returned when the expected file is not found in the form.
var ErrNoFile = errors.New("no bundle provided in the request or incorrect form field name")

// New creates the HTTP engine hosting the conversion pipeline.
func New(cfg config.Config, logger log.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api/v1")
	{
		api.POST("/convert", makeConvertHandler(cfg, logger))
	}
	return router
}

// makeConvertHandler creates the handler for bundle conversion uploads.
func makeConvertHandler(cfg config.Config, logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		fileHeader, err := c.FormFile(bundleFormField)
		if err != nil {
			level.Error(logger).Log("method", "convert", "err", err, "field", bundleFormField)
			if errors.Is(err, http.ErrMissingFile) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoFile.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read bundle from form: " + err.Error()})
			return
		}
		if fileHeader.Size > cfg.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("bundle exceeds the %d byte upload limit", cfg.MaxUploadBytes),
			})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			level.Error(logger).Log("method", "convert", "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded bundle: " + err.Error()})
			return
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			level.Error(logger).Log("method", "convert", "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded bundle: " + err.Error()})
			return
		}

		orch := pipeline.New(cfg, eventLogger{logger})
		res, err := orch.Convert(c.Request.Context(), fileHeader.Filename, data)
		if err != nil {
			kind := converr.KindOf(err)
			level.Error(logger).Log("method", "convert", "bundle", fileHeader.Filename,
				"kind", kind, "err", err, "took", time.Since(start))
			c.JSON(statusForKind(kind), gin.H{
				"error":  logging.PresentError("conversion failed", err),
				"kind":   string(kind),
				"detail": logging.TruncateDiagnostics(converr.DiagnosticsOf(err)),
			})
			return
		}

		level.Info(logger).Log("method", "convert", "bundle", fileHeader.Filename,
			"labels", len(res.Labels), "bytes", len(res.ManifestZip), "took", time.Since(start))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", config.ManifestFileName))
		c.Data(http.StatusOK, "application/zip", res.ManifestZip)
	}
}

// statusForKind maps pipeline error kinds to HTTP statuses. Caller mistakes
// (bad archive, bad header) are 4xx; compiler rejection of a structurally
// valid upload is 422; anything on our side of the boundary is 500.
func statusForKind(kind converr.Kind) int {
	switch kind {
	case converr.ExtractionFailed, converr.LabelParseFailed:
		return http.StatusBadRequest
	case converr.CompilationFailed:
		return http.StatusUnprocessableEntity
	case converr.PackagingFailed:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// eventLogger forwards pipeline progress events to the structured logger.
type eventLogger struct {
	logger log.Logger
}

func (l eventLogger) Handle(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventStageFailed:
		level.Error(l.logger).Log("stage", ev.Stage, "event", ev.Type, "msg", ev.Message)
	case pipeline.EventCompilerOutput:
		// Full compiler output is kept out of the log stream; the failure
		// path already attaches it to the error response.
	default:
		level.Info(l.logger).Log("stage", ev.Stage, "event", ev.Type, "msg", ev.Message)
	}
}
