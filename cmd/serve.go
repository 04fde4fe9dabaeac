package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	createAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/create_appointment"
	getAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_appointment"
	getAvailabilityHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_availability"
	getMyAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_my_appointments"
	getScheduleHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_schedule"
	listAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/list_appointments"
	updateAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/update_appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	directoryRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/directory"
	outboxRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
	userServiceClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/userservice"
	"github.com/m04kA/SMC-AppointmentService/internal/scheduling"
	appointmentsService "github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	createAppointmentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
	getAvailabilityUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_availability"
	updateAppointmentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/update_appointment"
	"github.com/m04kA/SMC-AppointmentService/pkg/tracing"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func runServer(configPath string) error {
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log
	log.Info("Starting SMC-AppointmentService API...")

	// Трассировка
	shutdownTracing, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Metrics.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	if cfg.Tracing.Enabled {
		log.Info("Tracing enabled (endpoint=%s, ratio=%.2f)", cfg.Tracing.OTLPEndpoint, cfg.Tracing.SampleRatio)
	}

	location, err := cfg.Schedule.Location()
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}
	policy := cfg.Calendar.Policy()
	grid := scheduling.WorkingDay{
		StartHour:   cfg.Schedule.WorkStartHour,
		EndHour:     cfg.Schedule.WorkEndHour,
		StepMinutes: cfg.Schedule.SlotStepMinutes,
		Location:    location,
	}

	// Инициализируем интеграционных клиентов
	userClient := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (UserService=%s timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)

	// Инициализируем репозитории
	appointmentRepository := appointmentRepo.NewRepository(a.db)
	directoryRepository := directoryRepo.NewRepository(a.db)
	outboxRepository := outboxRepo.NewRepository(a.db)
	txMgr := txmanager.New(a.db, log)
	checker := scheduling.NewChecker(appointmentRepository, policy, log)

	// Инициализируем сервисы
	appointmentSvc := appointmentsService.NewService(
		appointmentRepository,
		directoryRepository,
		location,
		log,
	)

	// Инициализируем use cases
	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointmentRepository,
		directoryRepository,
		checker,
		outboxRepository,
		txMgr,
		a.metrics,
		log,
		cfg.Schedule.AssignUnassigned,
	)

	updateAppointmentUseCase := updateAppointmentUC.NewUseCase(
		appointmentRepository,
		directoryRepository,
		checker,
		outboxRepository,
		txMgr,
		a.metrics,
		policy,
		log,
	)

	getAvailabilityUseCase := getAvailabilityUC.NewUseCase(
		appointmentRepository,
		directoryRepository,
		txMgr,
		a.metrics,
		grid,
		policy,
		log,
	)

	// Инициализируем handlers
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	updateAppointment := updateAppointmentHandler.NewHandler(updateAppointmentUseCase, log)
	getAvailability := getAvailabilityHandler.NewHandler(getAvailabilityUseCase, location, log)
	getSchedule := getScheduleHandler.NewHandler(grid, policy, cfg.Schedule.AssignUnassigned, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	getMyAppointments := getMyAppointmentsHandler.NewHandler(appointmentSvc, log)
	listAppointments := listAppointmentsHandler.NewHandler(appointmentSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Metrics(a.metrics))

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// Пробы для оркестратора
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			log.Warn("GET /readyz - database is not reachable: %v", err)
			handlers.RespondError(w, http.StatusServiceUnavailable, "база данных недоступна")
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты, защищены ограничителем частоты (если включён)
	var availability http.Handler = http.HandlerFunc(getAvailability.Handle)
	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		limiter := middleware.NewRedisLimiter(
			rdb,
			cfg.RateLimit.Limit,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
			"ratelimit:availability:",
		)
		availability = middleware.RateLimit(limiter, middleware.RateLimitOptions{
			FailOpen:       cfg.RateLimit.FailOpen,
			TrustForwarded: cfg.RateLimit.TrustForwarded,
		}, log)(availability)
		log.Info("Rate limit enabled for availability (%d req / %ds, redis=%s, fail_open=%t, trust_forwarded=%t)",
			cfg.RateLimit.Limit, cfg.RateLimit.WindowSeconds, cfg.RateLimit.Redis.Addr,
			cfg.RateLimit.FailOpen, cfg.RateLimit.TrustForwarded)
	}
	api.Handle("/appointments/availability", availability).Methods(http.MethodGet)

	// Рабочая сетка и политика календаря
	api.HandleFunc("/appointments/schedule", getSchedule.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(userClient, log))

	// Создание записи (только клиенты)
	protected.Handle("/appointments",
		middleware.RequireRoles(log, domain.RoleClient)(http.HandlerFunc(createAppointment.Handle)),
	).Methods(http.MethodPost)

	// Записи текущего клиента
	protected.Handle("/appointments/my",
		middleware.RequireRoles(log, domain.RoleClient)(http.HandlerFunc(getMyAppointments.Handle)),
	).Methods(http.MethodGet)

	// Список с фильтрами (администратор и специалисты)
	protected.Handle("/appointments",
		middleware.RequireRoles(log, domain.RoleAdmin, domain.RoleSpecialist)(http.HandlerFunc(listAppointments.Handle)),
	).Methods(http.MethodGet)

	// Получение и изменение записи по ID
	protected.HandleFunc("/appointments/{appointmentId:[0-9]+}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId:[0-9]+}", updateAppointment.Handle).Methods(http.MethodPut)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "http.server"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close redis client: %v", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Failed to flush traces: %v", err)
	}

	log.Info("Server stopped gracefully")
	return nil
}
