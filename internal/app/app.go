package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/barqyst/fpl-advisor/external/fplapi"
	"github.com/barqyst/fpl-advisor/external/glm"
	"github.com/barqyst/fpl-advisor/internal/config"
	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/team"
	"github.com/barqyst/fpl-advisor/internal/infrastructure/repository/memory"
	"github.com/barqyst/fpl-advisor/internal/infrastructure/repository/postgres"
	"github.com/barqyst/fpl-advisor/internal/interfaces/httpapi"
	idgen "github.com/barqyst/fpl-advisor/internal/platform/id"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
	"github.com/barqyst/fpl-advisor/internal/platform/ratelimit"
	"github.com/barqyst/fpl-advisor/internal/platform/resilience"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

// NewHTTPServer assembles the full service: storage, upstream clients,
// usecases, and the HTTP surface. The returned cleanup releases the limiter
// sweep goroutine and the database pool.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		db               *sqlx.DB
		teamRepo         team.Repository
		conversationRepo advisor.ConversationRepository
	)
	if cfg.DBEnabled {
		opened, err := openDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		teamRepo = postgres.NewTeamRepository(db)
		conversationRepo = postgres.NewConversationRepository(db, idgen.NewRandomGenerator())
		logger.Info("storage configured", "backend", "postgres", "db", dbNameFromURL(cfg.DBURL))
	} else {
		teamRepo = memory.NewTeamRepository()
		conversationRepo = memory.NewConversationRepository(idgen.NewRandomGenerator())
		logger.Info("storage configured", "backend", "memory")
	}

	provider := fplapi.NewClient(fplapi.ClientConfig{
		BaseURL:            cfg.FPLBaseURL,
		Timeout:            cfg.FPLTimeout,
		MinRequestInterval: cfg.FPLMinRequestInterval,
		Logger:             logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	completion := glm.NewClient(glm.ClientConfig{
		BaseURL:        cfg.GLMBaseURL,
		APIKey:         cfg.GLMAPIKey,
		Model:          cfg.GLMModel,
		Temperature:    cfg.GLMTemperature,
		MaxTokens:      cfg.GLMMaxTokens,
		MaxAttempts:    cfg.GLMMaxAttempts,
		AttemptTimeout: cfg.GLMAttemptTimeout,
		Logger:         logger,
	})

	referenceService := usecase.NewReferenceService(provider, logger, usecase.WithReferenceTTL(cfg.ReferenceTTL))
	teamService := usecase.NewTeamService(provider, referenceService, teamRepo, logger)
	standingsService := usecase.NewLeagueStandingService(provider, logger)
	advisorService := usecase.NewAdvisorService(referenceService, provider, completion, teamService, conversationRepo, logger)
	resyncService := usecase.NewResyncService(teamService, teamRepo, logger)

	limiter := ratelimit.NewLimiter()

	handler := httpapi.NewHandler(advisorService, teamService, standingsService, resyncService, limiter, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		limiter.Close()
		if db != nil {
			return db.Close()
		}
		return nil
	}

	return server, cleanup, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return db, nil
}
