// Package main - фоновый worker школы Lingua Hub.
//
// Worker выполняет работу, которой не место в цикле HTTP-запроса:
// - фоновые задачи обслуживания (сверка зависших платежей, отмена
//   неоплаченных записей, обновление кеша каталога);
// - обработку доменных событий из Redis-канала, опубликованных другими
//   экземплярами (уведомления, выпуск сертификатов).
//
// В маленьких инсталляциях те же задачи может выполнять API-сервер
// (SCHEDULER_ENABLED=true); worker выделяют, когда нагрузка на HTTP
// и фоновую обработку нужно масштабировать независимо. В этом случае
// у API планировщик выключают, чтобы задачи не выполнялись дважды.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/lingua-hub/lingua-school-backend/config"

	"github.com/lingua-hub/lingua-school-backend/internal/application/command"
	"github.com/lingua-hub/lingua-school-backend/internal/application/eventhandler"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"

	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/external/catalog"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/external/webhook"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/messaging"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/postgres"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/redis"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/scheduler"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/scheduler/jobs"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/service"
)

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
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting Lingua School worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. БАЗА ДАННЫХ
	// Миграции прогоняет API-сервер; worker только проверяет соединение.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS И ШИНА СОБЫТИЙ
	// Без Redis worker ограничивается фоновыми задачами: событий других
	// экземпляров ему не видно.
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, running scheduler-only", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

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
	// 4. РЕПОЗИТОРИИ И ВНЕШНИЕ КЛИЕНТЫ
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	paymentRepo := postgres.NewPaymentRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)

	catalogCfg := catalog.DefaultClientConfig(cfg.Catalog.BaseURL)
	catalogCfg.APIKey = cfg.Catalog.APIKey
	catalogCfg.Timeout = cfg.Catalog.RequestTimeout
	catalogCfg.Logger = log
	catalogClient := catalog.NewClient(catalogCfg)

	var courseCatalog course.Catalog = catalogClient
	var catalogCache *redis.CatalogCache
	if redisCache != nil {
		catalogCache = redis.NewCatalogCache(catalogClient, redisCache, log)
		courseCatalog = catalogCache
	}

	var notifier notification.Sender = notification.NoopSender{}
	if cfg.Webhook.URL != "" {
		webhookCfg := webhook.DefaultSenderConfig(cfg.Webhook.URL, cfg.Webhook.Secret)
		webhookCfg.Timeout = cfg.Webhook.RequestTimeout
		webhookCfg.Logger = log
		notifier = webhook.NewSender(webhookCfg)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT HANDLERS
	// Worker слушает события всех экземпляров: здесь выпускаются
	// сертификаты и рассылаются уведомления.
	// ─────────────────────────────────────────────────────────────────────────
	issueCertificateCmd := command.NewIssueCertificateHandler(
		enrollmentRepo, certificateRepo, courseCatalog, eventBus, uuid.NewString)

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
	// 6. ПЛАНИРОВЩИК
	// Для worker планировщик - основная работа, поэтому он включён
	// независимо от SCHEDULER_ENABLED.
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	if cfg.App.Location != nil {
		schedCfg.Timezone = cfg.App.Location
	}
	sched := scheduler.NewScheduler(schedCfg)

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

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ОЖИДАНИЕ СИГНАЛА ЗАВЕРШЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Lingua School worker is running",
		"redis", redisCache != nil,
		"jobs", len(sched.ListJobs()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
