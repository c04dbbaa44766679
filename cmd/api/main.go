package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/ticket-workflow/internal/api/http"
	"github.com/opsdesk/ticket-workflow/internal/api/http/handlers"
	"github.com/opsdesk/ticket-workflow/internal/config"
	"github.com/opsdesk/ticket-workflow/internal/events"
	"github.com/opsdesk/ticket-workflow/internal/observability"
	"github.com/opsdesk/ticket-workflow/internal/persistence"
	"github.com/opsdesk/ticket-workflow/internal/repository"
	"github.com/opsdesk/ticket-workflow/internal/service"
	"github.com/opsdesk/ticket-workflow/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	resolutionRepo := repository.NewResolutionRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	locks := service.NewTicketLocks()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CatalogRepo:    catalogRepo,
		ResolutionRepo: resolutionRepo,
		HistoryRepo:    historyRepo,
		AttachmentRepo: attachmentRepo,
		Dispatcher:     dispatcher,
		Locks:          locks,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     ticketRepo,
		CatalogRepo:    catalogRepo,
		ResolutionRepo: resolutionRepo,
		HistoryRepo:    historyRepo,
		AttachmentRepo: attachmentRepo,
		Dispatcher:     dispatcher,
		Locks:          locks,
		GracePercent:   cfg.SLA.GracePercent,
	})
	catalogService := service.NewCatalogService(catalogRepo)

	notificationService := service.NewNotificationService(dispatcher, redis, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	overdueScheduler := service.NewOverdueScheduler(workflowService, logger, cfg.SLA)
	if err := overdueScheduler.Start(); err != nil {
		logger.Fatal("failed to start overdue scheduler", zap.Error(err))
	}
	defer overdueScheduler.Stop()

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(ticketService, workflowService),
		Catalog: handlers.NewCatalogHandler(catalogService),
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
