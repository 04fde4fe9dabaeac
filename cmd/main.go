package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "appointment-service",
		Short:        "Wellness center appointment booking service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to TOML config")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(outboxRelayCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app общие зависимости обеих команд
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	rawDB    *sql.DB
	db       *dbmetrics.DB
}

// bootstrap загружает конфигурацию, поднимает логгер, метрики и пул соединений
func bootstrap(configPath string) (*app, error) {
	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("Configuration loaded from %s", configPath)

	// Метрики собираются всегда, наружу отдаются только при metrics.enabled
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsCollector := metrics.New(cfg.Metrics.ServiceName, registry)

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		log.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if err := dbmetrics.RegisterPoolCollector(db, cfg.Database.DBName, registry); err != nil {
		log.Warn("Failed to register connection pool collector: %v", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  metricsCollector,
		rawDB:    db,
		db:       dbmetrics.Wrap(db, metricsCollector),
	}, nil
}

func (a *app) close() {
	if err := a.rawDB.Close(); err != nil {
		a.log.Error("Failed to close database: %v", err)
	}
	a.log.Close()
}
