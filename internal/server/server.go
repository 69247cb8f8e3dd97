// Package server exposes the report pipeline, statistics and report history
// over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/index"
	"github.com/mohammad-safakhou/reportbot/internal/logging"
	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
	"github.com/mohammad-safakhou/reportbot/internal/publish"
	"github.com/mohammad-safakhou/reportbot/internal/stats"
	"github.com/mohammad-safakhou/reportbot/internal/store"
)

type StatsSource interface {
	Snapshot() stats.Snapshot
}

type HistoryLister interface {
	ListReports(ctx context.Context, limit int) ([]store.ReportRecord, error)
}

type Searcher interface {
	Search(q string, k int) ([]index.Hit, error)
}

// Deps wires the server. History and Search are optional; their endpoints
// answer 503 when unset.
type Deps struct {
	Jobs      pipeline.JobRunner
	Stats     StatsSource
	History   HistoryLister
	Search    Searcher
	Gatherer  prometheus.Gatherer
	OutputDir string
	Storage   publish.Config
	Logger    *zap.Logger
}

// New builds the echo instance with every route mounted.
func New(d Deps) *echo.Echo {
	logger := logging.OrNop(d.Logger)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Warn("request failed",
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err))
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	h := &ReportsHandler{deps: d, logger: logger}
	h.Register(e.Group("/api"))
	return e
}
