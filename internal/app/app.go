package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/config"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/repository/memory"
	"github.com/mamadbah2/farmops/internal/repository/mongodb"
	"github.com/mamadbah2/farmops/internal/repository/postgres"
	"github.com/mamadbah2/farmops/internal/repository/postgrest"
	"github.com/mamadbah2/farmops/internal/repository/sheets"
	"github.com/mamadbah2/farmops/internal/server/handlers"
	"github.com/mamadbah2/farmops/internal/service/dashboard"
	"github.com/mamadbah2/farmops/internal/service/records"
	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/internal/service/suggestions"
	"github.com/mamadbah2/farmops/internal/service/users"
	"github.com/mamadbah2/farmops/pkg/clients/anthropic"
	"github.com/mamadbah2/farmops/pkg/clients/platform"
	"github.com/mamadbah2/farmops/pkg/logger"
)

// Integration names reported by the settings endpoint.
const (
	IntegrationPlatform = "platform"
	IntegrationArchive  = "archive"
	IntegrationSheets   = "sheets"
	IntegrationAI       = "ai"
	IntegrationWhatsApp = "whatsapp"
)

// App holds every wired service of a running farmops process.
type App struct {
	Config   *config.Config
	Backend  repository.Backend
	Resolver *auth.Resolver
	Services handlers.Services

	mongo *mongodb.MongoDBRepository
}

// OpenBackend connects the storage driver selected by cfg.Store.Driver.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgREST:
		return postgrest.New(cfg.Platform.URL, cfg.Platform.AnonKey, logger.Named(log, "repo.postgrest")), nil
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.Store.DatabaseDSN, logger.Named(log, "repo.postgres"))
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// New builds every service from cfg. Optional integrations stay disabled when
// their settings are absent.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Store.Driver == config.DriverPostgREST && cfg.Platform.ServiceRoleKey == "" {
		log.Warn("service role key missing, background jobs read with the anon key and row-level policies may hide every row")
	}

	backend, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	a := &App{Config: cfg, Backend: backend}
	integrations := map[string]bool{
		IntegrationPlatform: cfg.Platform.URL != "",
		IntegrationWhatsApp: cfg.WhatsApp.Enabled(),
	}

	var platformClient platform.Client
	if cfg.Platform.URL != "" {
		platformClient = platform.NewClient(cfg.Platform)
	}

	var (
		reportArchive     reporting.Archive
		suggestionArchive suggestions.Archive
	)
	if cfg.MongoDB.URI != "" {
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			_ = backend.Close(ctx)
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		a.mongo = repo
		reportArchive, suggestionArchive = repo, repo
		integrations[IntegrationArchive] = true
	} else {
		log.Info("mongodb not configured, snapshots and suggestions are not archived")
	}

	var sink reporting.Sink
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(log, "repo.sheets"))
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("init sheets: %w", err)
		}
		sink = repo
		integrations[IntegrationSheets] = true
	}

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey, cfg.AI.Model)
		integrations[IntegrationAI] = true
		log.Info("anthropic ai client enabled")
	} else {
		log.Warn("anthropic api key missing, suggestions disabled")
	}

	views := cache.NewViews(cfg.Farm.DashboardCacheTTL)
	dash := dashboard.NewService(backend, cfg.Farm.BirdStartCount, views, cfg.Location(), logger.Named(log, "svc.dashboard"))

	a.Resolver = auth.NewResolver(platformClient, cfg.Platform.JWTSecret, backend)
	a.Services = handlers.Services{
		Dashboard: dash,
		Records:   records.NewService(backend, views, logger.Named(log, "svc.records")),
		Users: users.NewService(backend, platformClient, views, users.FarmSettings{
			BirdStartCount: cfg.Farm.BirdStartCount,
			Timezone:       cfg.Reporting.Timezone,
		}, integrations, logger.Named(log, "svc.users")),
		Reports:     reporting.NewService(backend, cfg.Farm.BirdStartCount, reportArchive, sink, logger.Named(log, "svc.reporting")),
		Suggestions: suggestions.NewService(aiClient, dash, suggestionArchive, logger.Named(log, "svc.suggestions")),
	}

	return a, nil
}

// BackgroundContext returns ctx carrying the service role key, for work that
// runs without a signed-in user such as scheduled snapshots and farmctl.
func (a *App) BackgroundContext(ctx context.Context) context.Context {
	if a.Config.Platform.ServiceRoleKey == "" {
		return ctx
	}
	return postgrest.WithAccessToken(ctx, a.Config.Platform.ServiceRoleKey)
}

// Close releases the store and archive connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongodb: %w", err))
		}
	}
	if err := a.Backend.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
