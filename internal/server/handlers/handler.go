package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/service/dashboard"
	"github.com/mamadbah2/farmops/internal/service/records"
	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/internal/service/suggestions"
	"github.com/mamadbah2/farmops/internal/service/users"
	"github.com/mamadbah2/farmops/internal/validation"
	"github.com/mamadbah2/farmops/pkg/clients/platform"
)

// Services groups the application services the HTTP layer calls.
type Services struct {
	Dashboard   *dashboard.Service
	Records     *records.Service
	Users       *users.Service
	Reports     *reporting.Service
	Suggestions *suggestions.Service
}

// Handler adapts HTTP requests to service calls.
type Handler struct {
	svc    Services
	logger *zap.Logger
}

// New constructs the HTTP handler adapter.
func New(svc Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identity returns the caller resolved by the auth middleware.
func identity(c *gin.Context) auth.Identity {
	id, _ := auth.Current(c)
	return id
}

// bind decodes the JSON body into dst, answering 400 on malformed input.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// fail maps a service error onto a status code and body.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": repository.ErrNotFound.Error()})
	case errors.Is(err, reporting.ErrUnknownKind):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, records.ErrForbidden),
		errors.Is(err, users.ErrForbidden),
		errors.Is(err, users.ErrSelfDelete),
		errors.Is(err, reporting.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, suggestions.ErrDisabled),
		errors.Is(err, suggestions.ErrMetricsUnavailable),
		errors.Is(err, reporting.ErrArchiveDisabled),
		errors.Is(err, platform.ErrAdminDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": repository.Message(err)})
	}
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (models.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, validation.Field(name, "must be a date (YYYY-MM-DD)")
	}
	return d, nil
}

// rangeQuery reads the from/to/shed listing parameters.
func rangeQuery(c *gin.Context) (from, to models.Date, shed string, err error) {
	if from, err = dateQuery(c, "from"); err != nil {
		return
	}
	if to, err = dateQuery(c, "to"); err != nil {
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		err = validation.Field("to", "must not be before from")
		return
	}
	return from, to, c.Query("shed"), nil
}
