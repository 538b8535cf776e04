package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelAppointmentHandler "github.com/queueease/booking-service/internal/api/handlers/cancel_appointment"
	completeAppointmentHandler "github.com/queueease/booking-service/internal/api/handlers/complete_appointment"
	confirmAppointmentHandler "github.com/queueease/booking-service/internal/api/handlers/confirm_appointment"
	createAppointmentHandler "github.com/queueease/booking-service/internal/api/handlers/create_appointment"
	getAppointmentHandler "github.com/queueease/booking-service/internal/api/handlers/get_appointment"
	getAvailabilityHandler "github.com/queueease/booking-service/internal/api/handlers/get_availability"
	getInstitutionHandler "github.com/queueease/booking-service/internal/api/handlers/get_institution"
	getInstitutionStatsHandler "github.com/queueease/booking-service/internal/api/handlers/get_institution_stats"
	getQueueStatusHandler "github.com/queueease/booking-service/internal/api/handlers/get_queue_status"
	getScheduleHandler "github.com/queueease/booking-service/internal/api/handlers/get_schedule"
	listAppointmentsHandler "github.com/queueease/booking-service/internal/api/handlers/list_appointments"
	listInstitutionsHandler "github.com/queueease/booking-service/internal/api/handlers/list_institutions"
	updateQueueSignalHandler "github.com/queueease/booking-service/internal/api/handlers/update_queue_signal"
	updateScheduleHandler "github.com/queueease/booking-service/internal/api/handlers/update_schedule"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/config"
	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/infra/cache"
	appointmentRepo "github.com/queueease/booking-service/internal/infra/storage/appointment"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	queueSignalRepo "github.com/queueease/booking-service/internal/infra/storage/queuesignal"
	scheduleRepo "github.com/queueease/booking-service/internal/infra/storage/schedule"
	"github.com/queueease/booking-service/internal/integrations/events"
	userServiceClient "github.com/queueease/booking-service/internal/integrations/userservice"
	appointmentsService "github.com/queueease/booking-service/internal/service/appointments"
	catalogService "github.com/queueease/booking-service/internal/service/catalog"
	scheduleService "github.com/queueease/booking-service/internal/service/schedule"
	createAppointmentUC "github.com/queueease/booking-service/internal/usecase/create_appointment"
	estimateQueueUC "github.com/queueease/booking-service/internal/usecase/estimate_queue"
	getAvailabilityUC "github.com/queueease/booking-service/internal/usecase/get_availability"
	"github.com/queueease/booking-service/pkg/dbmetrics"
	"github.com/queueease/booking-service/pkg/logger"
	"github.com/queueease/booking-service/pkg/metrics"
	"github.com/queueease/booking-service/pkg/txmanager"
	"github.com/queueease/booking-service/pkg/types"
)

// catalogReader общий интерфейс репозитория каталога и его кэша
type catalogReader interface {
	ListInstitutions(ctx context.Context, filter domain.InstitutionFilter) ([]*domain.Institution, error)
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListServiceIDs(ctx context.Context) ([]string, error)
}

// snapshotStore хранилище снимков очереди (память или Redis)
type snapshotStore interface {
	Get(ctx context.Context, serviceID string) (*domain.QueueStatus, error)
	Save(ctx context.Context, status *domain.QueueStatus) error
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting QueueEase booking service...")
	log.Info("Configuration loaded from config.toml")

	// Даты записей и окно приёма считаются в часовом поясе учреждений
	if cfg.Schedule.Timezone != "Local" {
		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			log.Fatal("Failed to load timezone %s: %v", cfg.Schedule.Timezone, err)
		}
		time.Local = loc
		log.Info("Using timezone %s", cfg.Schedule.Timezone)
	}

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Оборачиваем соединение (с метриками или без)
	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db)
	}

	// Инициализируем репозитории
	appointmentRepository := appointmentRepo.NewRepository(wrappedDB)
	scheduleRepository := scheduleRepo.NewRepository(wrappedDB)
	signalRepository := queueSignalRepo.NewRepository(wrappedDB)

	var catalog catalogReader = catalogRepo.NewRepository(wrappedDB)
	if cfg.CatalogCache.Enabled {
		catalog = cache.NewCatalogCache(
			catalog,
			cfg.CatalogCache.Size,
			time.Duration(cfg.CatalogCache.TTLSeconds)*time.Second,
			log,
		)
		log.Info("Catalog cache enabled (size=%d, ttl=%ds)", cfg.CatalogCache.Size, cfg.CatalogCache.TTLSeconds)
	}

	txMgr := txmanager.NewTransactionManagerWithOptions(wrappedDB, txmanager.Options{
		MaxAttempts: cfg.Database.TxMaxAttempts,
		BaseBackoff: time.Duration(cfg.Database.TxRetryBackoff) * time.Millisecond,
	})

	// Инициализируем интеграции
	userClient := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		log,
	)
	log.Info("UserService client initialized (url=%s, timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ: %v", err)
		}
		publisher = rabbit
		log.Info("Appointment events published to exchange %s", cfg.RabbitMQ.Exchange)
	}
	defer publisher.Close()

	snapshotTTL := time.Duration(cfg.Queue.SnapshotTTLSeconds) * time.Second
	var snapshots snapshotStore = cache.NewMemorySnapshotStore()
	if cfg.Queue.Store == "redis" {
		redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		snapshots = cache.NewRedisSnapshotStore(redisClient, cfg.Redis.KeyPrefix, snapshotTTL)
		log.Info("Queue snapshots stored in Redis (addr=%s)", cfg.Redis.Addr)
	}

	// Инициализируем сервисы
	defaults, err := scheduleDefaults(cfg.Schedule)
	if err != nil {
		log.Fatal("Invalid schedule defaults: %v", err)
	}

	catalogSvc := catalogService.NewService(catalog, log)
	scheduleSvc := scheduleService.NewService(scheduleRepository, signalRepository, catalog, defaults, log)
	appointmentsSvc := appointmentsService.NewService(
		appointmentRepository,
		catalog,
		publisher,
		metricsCollector,
		log,
	)

	// Инициализируем use cases
	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointmentRepository,
		catalog,
		scheduleSvc,
		userClient,
		txMgr,
		publisher,
		metricsCollector,
		log,
	)

	getAvailabilityUseCase := getAvailabilityUC.NewUseCase(
		appointmentRepository,
		catalog,
		scheduleSvc,
		log,
	)

	estimateQueueUseCase := estimateQueueUC.NewUseCase(
		appointmentRepository,
		catalog,
		signalRepository,
		snapshots,
		metricsCollector,
		estimateQueueUC.Options{
			HistorySize:           cfg.Queue.HistorySize,
			DelayThresholdPercent: cfg.Queue.DelayThresholdPercent,
			SnapshotTTL:           snapshotTTL,
		},
		log,
	)

	// Фоновое обновление снимков очереди
	refresher := estimateQueueUC.NewRefresher(estimateQueueUseCase, cfg.Queue.RefreshSpec, metricsCollector, log)
	if err := refresher.Start(context.Background()); err != nil {
		log.Fatal("Failed to start queue refresher: %v", err)
	}
	log.Info("Queue refresher started (spec=%s)", cfg.Queue.RefreshSpec)

	// Инициализируем handlers
	listInstitutions := listInstitutionsHandler.NewHandler(catalogSvc, log)
	getInstitution := getInstitutionHandler.NewHandler(catalogSvc, log)
	getAvailability := getAvailabilityHandler.NewHandler(getAvailabilityUseCase, log)
	getQueueStatus := getQueueStatusHandler.NewHandler(estimateQueueUseCase, log)
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	listAppointments := listAppointmentsHandler.NewHandler(appointmentsSvc, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentsSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(appointmentsSvc, log)
	confirmAppointment := confirmAppointmentHandler.NewHandler(appointmentsSvc, log)
	completeAppointment := completeAppointmentHandler.NewHandler(appointmentsSvc, log)
	getInstitutionStats := getInstitutionStatsHandler.NewHandler(appointmentsSvc, log)
	getSchedule := getScheduleHandler.NewHandler(scheduleSvc, log)
	updateSchedule := updateScheduleHandler.NewHandler(scheduleSvc, log)
	updateQueueSignal := updateQueueSignalHandler.NewHandler(scheduleSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Каталог учреждений
	api.HandleFunc("/institutions", listInstitutions.Handle).Methods(http.MethodGet)
	api.HandleFunc("/institutions/{institutionId}", getInstitution.Handle).Methods(http.MethodGet)

	// Свободные слоты на дату
	api.HandleFunc("/availability", getAvailability.Handle).Methods(http.MethodGet)

	// Состояние очереди услуги
	api.HandleFunc("/queue-status/{serviceId}", getQueueStatus.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (Bearer JWT или X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.NewAuth(middleware.AuthOptions{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
	}))

	// --- Записи ---
	// Создание записи (с ограничением частоты)
	var createHandler http.Handler = http.HandlerFunc(createAppointment.Handle)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		createHandler = limiter.Limit(createHandler)
		log.Info("Rate limit for appointment creation: %.2f rps, burst %d", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	protected.Handle("/appointments", createHandler).Methods(http.MethodPost)

	// История записей пользователя
	protected.HandleFunc("/appointments", listAppointments.Handle).Methods(http.MethodGet)

	// Получение записи по ID
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)

	// Переходы статуса
	protected.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/confirm", confirmAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/complete", completeAppointment.Handle).Methods(http.MethodPost)

	// --- Управление учреждением (для сотрудников) ---
	protected.HandleFunc("/institutions/{institutionId}/stats", getInstitutionStats.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/institutions/{institutionId}/schedule", getSchedule.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/institutions/{institutionId}/schedule", updateSchedule.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/queue-status/{serviceId}/signal", updateQueueSignal.Handle).Methods(http.MethodPut)

	// CORS и восстановление после паники
	handler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.UserIDHeader}),
	)(r)
	handler = gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(true))(handler)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	refresher.Stop()
	log.Info("Queue refresher stopped")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// scheduleDefaults окно приёма по умолчанию из файла конфигурации
func scheduleDefaults(c config.ScheduleConfig) (scheduleService.Defaults, error) {
	openTime, err := types.NewTimeStringFromString(c.OpenTime)
	if err != nil {
		return scheduleService.Defaults{}, err
	}
	closeTime, err := types.NewTimeStringFromString(c.CloseTime)
	if err != nil {
		return scheduleService.Defaults{}, err
	}

	return scheduleService.Defaults{
		OpenTime:            openTime,
		CloseTime:           closeTime,
		SlotDurationMinutes: c.SlotDurationMinutes,
		AdvanceBookingDays:  c.AdvanceBookingDays,
	}, nil
}
