package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/pkg/clients/whatsapp"
)

const jobTimeout = 2 * time.Minute

// Snapshotter builds and stores a day's report.
type Snapshotter interface {
	Snapshot(ctx context.Context, day models.Date) (models.DailyReport, error)
}

// Scheduler runs the daily snapshot job.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	loc       *time.Location
	snapshots Snapshotter
	notifier  whatsapp.Notifier
	recipient string
	logger    *zap.Logger
	now       func() time.Time

	jobContext func(context.Context) context.Context
}

// NewScheduler creates a scheduler firing on schedule in loc. notifier may be
// nil, in which case summaries are not sent.
func NewScheduler(schedule string, loc *time.Location, snapshots Snapshotter, notifier whatsapp.Notifier, recipient string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  schedule,
		loc:       loc,
		snapshots: snapshots,
		notifier:  notifier,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,

		jobContext: func(ctx context.Context) context.Context { return ctx },
	}
}

// SetJobContext installs fn to decorate the context of every scheduled run,
// e.g. with the credentials the job should act under.
func (s *Scheduler) SetJobContext(fn func(context.Context) context.Context) {
	if fn != nil {
		s.jobContext = fn
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runDaily); err != nil {
		return fmt.Errorf("schedule daily snapshot %q: %w", s.schedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.String("timezone", s.loc.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(s.jobContext(context.Background()), jobTimeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("daily snapshot job failed", zap.Error(err))
	}
}

// RunOnce snapshots today and sends the summary when a notifier is set.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	day := models.NewDate(s.now().In(s.loc))
	s.logger.Info("generating daily snapshot", zap.String("date", day.String()))

	report, err := s.snapshots.Snapshot(ctx, day)
	if err != nil && report.Date.IsZero() {
		return fmt.Errorf("snapshot %s: %w", day, err)
	}
	if err != nil {
		s.logger.Warn("daily snapshot stored partially", zap.Error(err))
	}

	if s.notifier == nil {
		return nil
	}
	id, err := s.notifier.SendText(ctx, s.recipient, reporting.Summary(report))
	if err != nil {
		return fmt.Errorf("send daily summary: %w", err)
	}
	s.logger.Info("daily summary sent", zap.String("message_id", id))
	return nil
}
