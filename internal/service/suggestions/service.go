// Package suggestions asks the language model for farm recommendations and
// keeps a history of the replies.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/service/dashboard"
	"github.com/mamadbah2/farmops/pkg/clients/anthropic"
)

var (
	// ErrDisabled is returned when no model API key is configured.
	ErrDisabled = errors.New("ai suggestions are not configured")
	// ErrMetricsUnavailable is returned when metrics were omitted and the
	// dashboard could not supply them.
	ErrMetricsUnavailable = errors.New("farm metrics are unavailable")
)

// Dashboard supplies the current manager view.
type Dashboard interface {
	Manager(ctx context.Context) dashboard.View
}

// Archive stores generated suggestions.
type Archive interface {
	SaveSuggestion(ctx context.Context, suggestion models.Suggestion) error
	RecentSuggestions(ctx context.Context, limit int64) ([]models.Suggestion, error)
}

// Service generates and lists suggestions.
type Service struct {
	client    anthropic.Client
	dashboard Dashboard
	archive   Archive
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires the suggestions service. A nil client disables generation;
// a nil archive keeps nothing.
func NewService(client anthropic.Client, dash Dashboard, archive Archive, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		dashboard: dash,
		archive:   archive,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Enabled reports whether suggestions can be generated.
func (s *Service) Enabled() bool { return s.client != nil }

// MetricsFromView extracts model metrics from a dashboard view.
func MetricsFromView(v dashboard.View) (anthropic.Metrics, bool) {
	if !v.Available {
		return anthropic.Metrics{}, false
	}
	return anthropic.Metrics{
		ProductionRate:  v.EggProduction.Raw,
		FeedConsumption: v.FeedConsumption.Raw,
		MortalityRate:   v.MortalityRate.Raw,
		BirdCount:       v.ActiveBirds,
	}, true
}

// Generate asks for recommendations. When metrics is nil they are taken from
// the manager dashboard.
func (s *Service) Generate(ctx context.Context, actor auth.Identity, metrics *anthropic.Metrics) (models.Suggestion, error) {
	if s.client == nil {
		return models.Suggestion{}, ErrDisabled
	}

	var m anthropic.Metrics
	if metrics != nil {
		m = *metrics
	} else {
		if s.dashboard == nil {
			return models.Suggestion{}, ErrMetricsUnavailable
		}
		var ok bool
		if m, ok = MetricsFromView(s.dashboard.Manager(ctx)); !ok {
			return models.Suggestion{}, ErrMetricsUnavailable
		}
	}

	text, err := s.client.Suggest(ctx, m)
	if err != nil {
		s.logger.Error("suggestion request failed", zap.Error(err))
		return models.Suggestion{}, fmt.Errorf("generate suggestion: %w", err)
	}

	suggestion := models.Suggestion{
		ID:              s.newID(),
		RequestedBy:     actor.DisplayName(),
		ProductionRate:  m.ProductionRate,
		FeedConsumption: m.FeedConsumption,
		MortalityRate:   m.MortalityRate,
		BirdCount:       m.BirdCount,
		Text:            text,
		CreatedAt:       s.now().UTC(),
	}

	if s.archive != nil {
		if err := s.archive.SaveSuggestion(ctx, suggestion); err != nil {
			s.logger.Warn("failed to archive suggestion", zap.String("id", suggestion.ID), zap.Error(err))
		}
	}
	return suggestion, nil
}

// Recent lists archived suggestions, newest first.
func (s *Service) Recent(ctx context.Context, limit int64) ([]models.Suggestion, error) {
	if s.archive == nil {
		return []models.Suggestion{}, nil
	}
	out, err := s.archive.RecentSuggestions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	if out == nil {
		out = []models.Suggestion{}
	}
	return out, nil
}
