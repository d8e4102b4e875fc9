package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikesibiu/BudgetTranslate/internal/httpapi"
	"github.com/mikesibiu/BudgetTranslate/internal/mt"
	"github.com/mikesibiu/BudgetTranslate/internal/translatelog"
)

type App struct {
	cfg    Config
	logger *log.Logger

	db       *pgxpool.Pool // nil when persistence is disabled
	translog *translatelog.Logger
	usage    *translatelog.UsageTracker
	mtClient *mt.Client
	speech   *speech.Client // nil when server-side ASR is unavailable
	registry *httpapi.ConnRegistry
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds, err := cfg.credentialOptions()
	if err != nil {
		return nil, err
	}

	// Persistence is optional; the debug log and usage sinks degrade to
	// no-ops without a database.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	mtClient, err := mt.NewClient(context.Background(), mt.Config{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		GlossaryEnabled: cfg.GlossaryEnabled,
		Model:           cfg.TranslationModel,
	}, logger, creds...)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("init translation client: %w", err)
	}

	// Server-side ASR is optional: clients doing browser-side recognition
	// only send transcript events.
	speechClient, err := speech.NewClient(context.Background(), creds...)
	if err != nil {
		logger.Printf("app: speech client unavailable, audio ingestion disabled: %v", err)
		speechClient = nil
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		translog: translatelog.New(db, cfg.AppVersion),
		usage:    translatelog.NewUsageTracker(db),
		mtClient: mtClient,
		speech:   speechClient,
		registry: httpapi.NewConnRegistry(cfg.MaxConnections, cfg.MaxConnectionsPerIP),
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		MaxConnections:      a.cfg.MaxConnections,
		MaxConnectionsPerIP: a.cfg.MaxConnectionsPerIP,
		InactivityTimeout:   a.cfg.InactivityTimeout,
		JWTSecret:           a.cfg.JWTSecret,
		AppVersion:          a.cfg.AppVersion,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.mtClient, a.speech, a.translog, a.usage, a.registry)
}

// Registry exposes the connection registry for graceful draining.
func (a *App) Registry() *httpapi.ConnRegistry {
	return a.registry
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
