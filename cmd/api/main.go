package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	cacheRepo := repository.NewRedisCacheRepository(redis.Client)
	txRunner := repository.NewTxRunner(pool)

	statusCatalog := service.NewStatusCatalog(statusRepo, logger)
	if err := statusCatalog.Refresh(ctx); err != nil {
		logger.Fatal("failed to load status catalog", zap.Error(err))
	}
	scopeResolver := service.NewScopeResolver(service.DefaultScopeConfig(), statusCatalog)

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditLogService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(
		ticketRepo, historyRepo, commentRepo, attachmentRepo, categoryRepo,
		scopeResolver, statusCatalog, cfg.Listing, dispatcher, logger,
	)
	transitionEngine := service.NewTransitionEngine(txRunner, statusCatalog, dispatcher, logger)
	statsService := service.NewStatsService(
		statsRepo, userRepo, cacheRepo, scopeResolver, statusCatalog, cfg.Stats, logger,
	)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, transitionEngine),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
		ElevatedRoles:  scopeResolver.ElevatedRoles(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
