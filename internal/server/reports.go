package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

type ReportsHandler struct {
	deps   Deps
	logger *zap.Logger
}

func (h *ReportsHandler) Register(g *echo.Group) {
	g.GET("/stats", h.stats)
	g.POST("/reports", h.create)
	g.GET("/reports", h.list)
	g.GET("/reports/search", h.search)
}

type createReportRequest struct {
	Query       string   `json:"query"`
	ReportTypes []string `json:"report_types"`
	Requester   string   `json:"requester"`
}

type createReportResponse struct {
	JobID   string                      `json:"job_id"`
	Results []pipeline.ReportKindResult `json:"results"`
}

func (h *ReportsHandler) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.deps.Stats.Snapshot())
}

// create runs a job synchronously and returns its results.
func (h *ReportsHandler) create(c echo.Context) error {
	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	job := pipeline.NewJob(req.Query, req.ReportTypes, h.deps.OutputDir, h.deps.Storage)
	job.Requester = req.Requester
	if job.Requester == "" {
		job.Requester = "api"
	}

	results, err := h.deps.Jobs.Run(c.Request().Context(), job)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case pipeline.KindOf(err) != "":
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, createReportResponse{JobID: job.ID, Results: results})
}

func (h *ReportsHandler) list(c echo.Context) error {
	if h.deps.History == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report history not configured")
	}
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	recs, err := h.deps.History.ListReports(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *ReportsHandler) search(c echo.Context) error {
	if h.deps.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report search not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	hits, err := h.deps.Search.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
