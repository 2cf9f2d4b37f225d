package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 15 * time.Second

type repositories struct {
	users       repository.UserRepository
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
}

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

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	if cfg.Redis.Addr != "" {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
	}

	repos := buildRepositories(pg)

	dispatcher := events.NewInMemoryDispatcher(logger)

	var relay realtime.Relay
	if cfg.Realtime.RedisRelay {
		if redis == nil {
			logger.Fatal("REALTIME_REDIS_RELAY requires REDIS_ADDR")
		}
		relay = realtime.NewRedisRelay(redis.Client, cfg.Realtime.RedisChannel, logger)
	}
	hub := realtime.NewHub(realtime.Options{
		SendBuffer: cfg.Realtime.SendBuffer,
		Relay:      relay,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err := hub.Init(ctx); err != nil {
		logger.Fatal("failed to start realtime hub", zap.Error(err))
	}
	polls := realtime.NewPollManager(hub, cfg.Realtime.PollWait(), cfg.Realtime.PollIdle(), logger)
	go polls.Run(ctx)

	magicLinks := auth.NewMagicLinkManager(repos.users, repos.tickets, cfg.App.BaseURL, logger,
		auth.WithTTL(cfg.MagicLink.TTL()),
		auth.WithMetrics(metrics),
	)
	files := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.MaxBytes)

	authService := service.NewAuthService(cfg.Auth, repos.users, logger)
	if _, err := authService.SeedAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		UserRepo:       repos.users,
		TicketRepo:     repos.tickets,
		CommentRepo:    repos.comments,
		AttachmentRepo: repos.attachments,
		MagicLinks:     magicLinks,
		Files:          files,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	mailer, err := notify.NewMailer(cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to configure mailer", zap.Error(err))
	}
	renderer, err := notify.NewRenderer(cfg.App.BaseURL)
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   repos.users,
		Renderer:   renderer,
		Mailer:     mailer,
		Metrics:    metrics,
		Logger:     logger,
		ExpiryDays: int(cfg.MagicLink.TTL().Hours() / 24),
	})

	worker.StartRealtimeWorker(dispatcher, hub, logger)
	worker.StartNotificationWorker(notificationService)

	deps := map[string]handlers.Pinger{"postgres": pg}
	if redis != nil {
		deps["redis"] = redis
	}
	validator := handlers.NewRequestValidator()

	app := httptransport.NewApp(httptransport.ServerConfig{
		Name:           cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, logger, metrics, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(authService, validator),
		Tickets:        handlers.NewTicketsHandler(ticketService, validator),
		Magic:          handlers.NewMagicHandler(ticketService, validator),
		Uploads:        handlers.NewUploadsHandler(ticketService),
		Realtime:       handlers.NewRealtimeHandler(hub, polls, cfg.Realtime.PingInterval(), cfg.Realtime.AllowedOrigins, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	// Sockets first: fiber waits for open connections, including upgraded ones.
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("realtime hub shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", zap.Error(err))
	}
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := memory.NewStore()
		return repositories{
			users:       store.Users(),
			tickets:     store.Tickets(),
			comments:    store.Comments(),
			attachments: store.Attachments(),
		}
	}
	return repositories{
		users:       repository.NewUserRepository(pg.Pool),
		tickets:     repository.NewTicketRepository(pg.Pool),
		comments:    repository.NewCommentRepository(pg.Pool),
		attachments: repository.NewAttachmentRepository(pg.Pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
