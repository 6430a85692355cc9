package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/internal/validation"
	"github.com/mamadbah2/farmops/pkg/clients/anthropic"
)

const defaultHistoryLimit = 30

// Report handles GET /api/reports/:kind. format=csv streams a CSV download.
func (h *Handler) Report(c *gin.Context) {
	from, to, shed, err := rangeQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	kind := reporting.Kind(c.Param("kind"))
	table, err := h.svc.Reports.Report(c.Request.Context(), identity(c), kind, reporting.Filter{From: from, To: to, Shed: shed})
	if err != nil {
		h.fail(c, err)
		return
	}

	if c.Query("format") != "csv" {
		c.JSON(http.StatusOK, table)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(kind)+".csv"))
	c.Status(http.StatusOK)
	if err := reporting.WriteCSV(c.Writer, table); err != nil {
		h.logger.Error("csv export failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func limitQuery(c *gin.Context) (int64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 || n > 365 {
		return 0, validation.Field("limit", "must be between 1 and 365")
	}
	return n, nil
}

// ListSnapshots handles GET /api/snapshots.
func (h *Handler) ListSnapshots(c *gin.Context) {
	limit, err := limitQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	reports, err := h.svc.Reports.History(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// CreateSnapshot handles POST /api/snapshots?date=YYYY-MM-DD; the date defaults to today.
func (h *Handler) CreateSnapshot(c *gin.Context) {
	day, err := dateQuery(c, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	if day.IsZero() {
		day = h.svc.Dashboard.Today()
	}
	report, err := h.svc.Reports.Snapshot(c.Request.Context(), day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GenerateSuggestion handles POST /api/ai/suggestions. The body may carry
// explicit metrics; an empty body uses the dashboard's.
func (h *Handler) GenerateSuggestion(c *gin.Context) {
	var metrics *anthropic.Metrics
	if c.Request.ContentLength > 0 {
		metrics = new(anthropic.Metrics)
		if !h.bind(c, metrics) {
			return
		}
	}
	suggestion, err := h.svc.Suggestions.Generate(c.Request.Context(), identity(c), metrics)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, suggestion)
}

// ListSuggestions handles GET /api/ai/suggestions.
func (h *Handler) ListSuggestions(c *gin.Context) {
	limit, err := limitQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Suggestions.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
