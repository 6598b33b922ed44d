// Package main - точка входа API-сервера школы Lingua Hub.
//
// Сервер связывает все слои приложения: принимает HTTP-запросы, исполняет
// команды и запросы (CQRS), публикует доменные события и запускает фоновые
// задачи обслуживания (сверка платежей, отмена неоплаченных записей,
// обновление кеша каталога).
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: репозитории, внешние API, шина событий, планировщик
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/lingua-hub/lingua-school-backend/config"

	// Application layer
	"github.com/lingua-hub/lingua-school-backend/internal/application/command"
	"github.com/lingua-hub/lingua-school-backend/internal/application/eventhandler"
	"github.com/lingua-hub/lingua-school-backend/internal/application/query"

	// Domain layer
	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"

	// Infrastructure layer
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/external/catalog"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/external/paygate"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/external/webhook"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/messaging"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/postgres"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/projections"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/redis"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/scheduler"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/scheduler/jobs"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/lingua-hub/lingua-school-backend/internal/interface/http"
	"github.com/lingua-hub/lingua-school-backend/internal/interface/http/handlers"

	// Packages
	"github.com/lingua-hub/lingua-school-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Lingua School API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching and cross-instance events disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	studentRepo := postgres.NewStudentRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	paymentRepo := postgres.NewPaymentRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	var eventBus shared.EventBus
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubClient(redisCache),
			ChannelName:    cfg.Redis.EventChannel,
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		eventBus = redisBus
	} else {
		eventBus = messaging.NewInMemoryEventBus(localBusCfg)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")

	// Каталог курсов
	catalogCfg := catalog.DefaultClientConfig(cfg.Catalog.BaseURL)
	catalogCfg.APIKey = cfg.Catalog.APIKey
	catalogCfg.Timeout = cfg.Catalog.RequestTimeout
	catalogCfg.Logger = log
	catalogCfg.Debug = cfg.App.Debug
	catalogCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Catalog.RateLimit)
	catalogCfg.RateLimiterConfig.BurstSize = cfg.Catalog.RateLimitBurst
	catalogCfg.RetryConfig.MaxRetries = cfg.Catalog.MaxRetries
	catalogCfg.RetryConfig.InitialBackoff = cfg.Catalog.RetryBaseDelay
	catalogCfg.RetryConfig.MaxBackoff = cfg.Catalog.RetryMaxDelay
	catalogCfg.CircuitBreakerConfig.FailureThreshold = cfg.Catalog.CircuitBreakerThreshold
	catalogCfg.CircuitBreakerConfig.Timeout = cfg.Catalog.CircuitBreakerTimeout
	catalogCfg.CircuitBreakerConfig.HalfOpenMaxRetries = cfg.Catalog.CircuitBreakerHalfOpenMax
	catalogClient := catalog.NewClient(catalogCfg)

	// Каталог за кешем: каждое чтение прогресса спрашивает число уроков,
	// без кеша это удар по каталогу на каждый запрос
	var courseCatalog course.Catalog = catalogClient
	var catalogCache *redis.CatalogCache
	if redisCache != nil {
		catalogCache = redis.NewCatalogCache(catalogClient, redisCache, log)
		courseCatalog = catalogCache
	}

	// Платёжный шлюз
	paygateCfg := paygate.DefaultClientConfig(cfg.Paygate.BaseURL, cfg.Paygate.APIKey)
	paygateCfg.Timeout = cfg.Paygate.RequestTimeout
	paygateCfg.Logger = log
	paygateClient := paygate.NewClient(paygateCfg)

	// Webhook-канал уведомлений (best effort, без URL уведомления отключены)
	var notifier notification.Sender = notification.NoopSender{}
	if cfg.Webhook.URL != "" {
		webhookCfg := webhook.DefaultSenderConfig(cfg.Webhook.URL, cfg.Webhook.Secret)
		webhookCfg.Timeout = cfg.Webhook.RequestTimeout
		webhookCfg.Logger = log
		notifier = webhook.NewSender(webhookCfg)
		log.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	} else {
		log.Info("webhook notifications disabled (WEBHOOK_URL is empty)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	newID := uuid.NewString
	ledger := progress.NewLedger(progressRepo, newID,
		cfg.Features.IsEnabled(config.FeatureCompletionExactCount, nil))

	registerStudentCmd := command.NewRegisterStudentHandler(studentRepo, eventBus, newID)
	setStudentStatusCmd := command.NewSetStudentStatusHandler(studentRepo, eventBus)
	enrollStudentCmd := command.NewEnrollStudentHandler(studentRepo, enrollmentRepo, courseCatalog, eventBus, newID)
	processPaymentCmd := command.NewProcessPaymentHandler(enrollmentRepo, paymentRepo, paygateClient, eventBus, newID)
	refundPaymentCmd := command.NewRefundPaymentHandler(paymentRepo, enrollmentRepo, paygateClient, eventBus,
		cfg.Features.IsEnabled(config.FeatureCancelOnRefund, nil))
	cancelEnrollmentCmd := command.NewCancelEnrollmentHandler(enrollmentRepo, eventBus)
	completeLessonCmd := command.NewCompleteLessonHandler(enrollmentRepo, ledger, courseCatalog, eventBus)
	completeCourseCmd := command.NewCompleteCourseHandler(enrollmentRepo, ledger, courseCatalog, eventBus)
	issueCertificateCmd := command.NewIssueCertificateHandler(enrollmentRepo, certificateRepo, courseCatalog, eventBus, newID)

	studentProgressQuery := query.NewGetStudentProgressHandler(studentRepo, enrollmentRepo, ledger, courseCatalog)
	studentCertificatesQuery := query.NewGetStudentCertificatesHandler(studentRepo, certificateRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)

	eventHandlers := messaging.EventHandlers{}
	if cfg.Features.IsEnabled(config.FeatureNotifyEnrollmentActivated, nil) {
		eventHandlers.OnEnrollmentActivated = eventhandler.NewOnEnrollmentActivatedHandler(studentRepo, notifier, log)
	}
	if cfg.Features.IsEnabled(config.FeatureAutoIssueCertificate, nil) {
		eventHandlers.OnEnrollmentCompleted = eventhandler.NewOnEnrollmentCompletedHandler(issueCertificateCmd, notifier, log)
	}
	if cfg.Features.IsEnabled(config.FeatureNotifyCertificateIssued, nil) {
		eventHandlers.OnCertificateIssued = eventhandler.NewOnCertificateIssuedHandler(studentRepo, notifier, log)
	}
	if cfg.Features.IsEnabled(config.FeatureNotifyPaymentFailed, nil) {
		eventHandlers.OnPaymentFailed = eventhandler.NewOnPaymentFailedHandler(notifier, log)
	}
	if cfg.Features.IsEnabled(config.FeatureExperimentalProgressProjection, nil) {
		eventHandlers.StudentSummary = projections.NewStudentSummaryView()
	}

	if err := messaging.RegisterEventHandlers(dispatcher, eventHandlers); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ПЛАНИРОВЩИК ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler

	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")

		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Logger = log
		if cfg.App.Location != nil {
			schedCfg.Timezone = cfg.App.Location
		}
		sched = scheduler.NewScheduler(schedCfg)

		reconciler := service.NewPaymentReconciler(paymentRepo, enrollmentRepo, eventBus, log)

		if cfg.Features.IsEnabled(config.FeatureReconcilePending, nil) {
			if err := sched.Register(
				jobs.NewReconcilePaymentsJob(reconciler, cfg.Scheduler.PendingPaymentAge, log),
				scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcilePaymentsInterval),
			); err != nil {
				return fmt.Errorf("failed to register reconcile payments job: %w", err)
			}
		}

		// Ночная уборка неоплаченных зачислений идёт по cron-расписанию
		expireSchedule, err := scheduler.NewCronSchedule(cfg.Scheduler.ExpireEnrollmentsCron)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_EXPIRE_CRON: %w", err)
		}
		if err := sched.Register(
			jobs.NewExpireEnrollmentsJob(reconciler, cfg.Scheduler.EnrollmentTTL, log),
			expireSchedule,
		); err != nil {
			return fmt.Errorf("failed to register expire enrollments job: %w", err)
		}

		// Обновление кеша каталога имеет смысл только при включённом Redis
		if catalogCache != nil {
			if err := sched.Register(
				jobs.NewRefreshCatalogJob(enrollmentRepo, courseCatalog, catalogCache, log),
				scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshCatalogInterval),
			); err != nil {
				return fmt.Errorf("failed to register refresh catalog job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Info("scheduler disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("course-catalog", handlers.NewExternalAPICheck("course-catalog", catalogClient))
	healthChecker.AddCheck("payment-gateway", handlers.NewExternalAPICheck("payment-gateway", paygateClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 13. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpCfg.APIKeys = cfg.HTTP.APIKeys

	httpServer := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		RegisterStudent:  registerStudentCmd,
		SetStudentStatus: setStudentStatusCmd,
		EnrollStudent:    enrollStudentCmd,
		ProcessPayment:   processPaymentCmd,
		RefundPayment:    refundPaymentCmd,
		CancelEnrollment: cancelEnrollmentCmd,
		CompleteLesson:   completeLessonCmd,
		CompleteCourse:   completeCourseCmd,
		IssueCertificate: issueCertificateCmd,

		GetStudentProgress:     studentProgressQuery,
		GetStudentCertificates: studentCertificatesQuery,

		Logger:        logger.Default(),
		HealthChecker: healthChecker,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 14. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("Lingua School API is running",
		"http_address", httpServer.Address(),
		"scheduler", cfg.Scheduler.Enabled,
		"redis", redisCache != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Сначала перестаём принимать запросы, остальное закроется через defer
	// в обратном порядке: планировщик, диспетчер, Redis, база данных.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	switch cfg.Observability.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
