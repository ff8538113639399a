package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/field-service/internal/api/http"
	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/assignment"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/persistence"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
	"github.com/spec-kit/field-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	rules, err := assignment.LoadRules(cfg.Assignment.RulesFile)
	if err != nil {
		logger.Fatal("failed to load assignment rules", zap.String("file", cfg.Assignment.RulesFile), zap.Error(err))
	}
	logger.Info("assignment rules loaded", zap.Int("rules", len(rules)))

	pool := pg.PoolHandle()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger.Named("notify"), cfg.Notification))
	forwarder, err := worker.StartEventForwarder(ctx, cfg.Broker, dispatcher, logger)
	if err != nil {
		logger.Fatal("failed to start event forwarder", zap.Error(err))
	}
	defer forwarder.Close()

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		MissionRepo:     repository.NewMissionRepository(pool),
		TeamRepo:        repository.NewTeamRepository(pool),
		MemberRepo:      repository.NewTeamMemberRepository(pool),
		TaskRepo:        repository.NewTaskRepository(pool),
		UnitOfWork:      repository.NewUnitOfWork(pool),
		RosterCache:     repository.NewRosterCache(redis.Client, cfg.Assignment.RosterCacheTTL()),
		Rules:           rules,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger.Named("assignment"),
		SuggestionLimit: cfg.Assignment.SuggestionLimit,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Missions:       handlers.NewMissionTasksHandler(assignmentService),
		Tasks:          handlers.NewTasksHandler(assignmentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
