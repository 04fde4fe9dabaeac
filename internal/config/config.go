package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// ErrInvalidConfig возвращается, когда значения конфигурации противоречат друг другу
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config корневая конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Schedule    ScheduleConfig    `toml:"schedule"`
	Calendar    CalendarConfig    `toml:"calendar"`
	UserService UserServiceConfig `toml:"user_service"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
	Kafka       KafkaConfig       `toml:"kafka"`
	Outbox      OutboxConfig      `toml:"outbox"`
	Tracing     TracingConfig     `toml:"tracing"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// ScheduleConfig сетка рабочего дня
type ScheduleConfig struct {
	WorkStartHour    int    `toml:"work_start_hour"`
	WorkEndHour      int    `toml:"work_end_hour"`
	SlotStepMinutes  int    `toml:"slot_step_minutes"`
	Timezone         string `toml:"timezone"`
	AssignUnassigned bool   `toml:"assign_unassigned"`
}

// Location часовой пояс бизнеса
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// CalendarConfig какие статусы занимают календарь специалиста
type CalendarConfig struct {
	OverlapStatuses      []string `toml:"overlap_statuses"`
	AvailabilityStatuses []string `toml:"availability_statuses"`
}

// Policy преобразует списки статусов в доменную политику
func (c CalendarConfig) Policy() domain.CalendarPolicy {
	return domain.NewCalendarPolicy(toStatuses(c.OverlapStatuses), toStatuses(c.AvailabilityStatuses))
}

type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// RateLimitConfig ограничение частоты запросов к публичному эндпоинту доступности
type RateLimitConfig struct {
	Enabled        bool        `toml:"enabled"`
	Limit          int         `toml:"limit"`
	WindowSeconds  int         `toml:"window_seconds"`
	FailOpen       bool        `toml:"fail_open"`
	TrustForwarded bool        `toml:"trust_forwarded"` // только за балансировщиком, который дописывает X-Forwarded-For
	Redis          RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type KafkaConfig struct {
	Brokers      []string `toml:"brokers"`
	WriteTimeout int      `toml:"write_timeout"` // секунды
}

type OutboxConfig struct {
	PollInterval int `toml:"poll_interval"` // миллисекунды
	BatchSize    int `toml:"batch_size"`
}

type TracingConfig struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// Load читает TOML файл, дополняет значениями по умолчанию и валидирует
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default значения, которые используются, если ключ отсутствует в файле
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{Level: "info"},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "appointment_service",
		},
		Schedule: ScheduleConfig{
			WorkStartHour:    9,
			WorkEndHour:      18,
			SlotStepMinutes:  30,
			Timezone:         "Europe/Kyiv",
			AssignUnassigned: true,
		},
		Calendar: CalendarConfig{
			OverlapStatuses:      []string{"pending", "confirmed"},
			AvailabilityStatuses: []string{"pending", "confirmed", "completed"},
		},
		UserService: UserServiceConfig{
			URL:     "http://localhost:8081",
			Timeout: 5,
		},
		RateLimit: RateLimitConfig{
			Limit:         60,
			WindowSeconds: 60,
			FailOpen:      true,
			Redis:         RedisConfig{Addr: "localhost:6379"},
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			WriteTimeout: 5,
		},
		Outbox: OutboxConfig{
			PollInterval: 1000,
			BatchSize:    100,
		},
		Tracing: TracingConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	s := c.Schedule
	if s.WorkStartHour < 0 || s.WorkEndHour > 24 || s.WorkEndHour <= s.WorkStartHour {
		return fmt.Errorf("%w: schedule work hours [%d, %d) are invalid", ErrInvalidConfig, s.WorkStartHour, s.WorkEndHour)
	}
	if s.SlotStepMinutes <= 0 {
		return fmt.Errorf("%w: schedule.slot_step_minutes must be positive", ErrInvalidConfig)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("%w: unknown schedule.timezone %q: %v", ErrInvalidConfig, s.Timezone, err)
	}

	for _, list := range [][]string{c.Calendar.OverlapStatuses, c.Calendar.AvailabilityStatuses} {
		for _, name := range list {
			if !domain.AppointmentStatus(name).IsValid() {
				return fmt.Errorf("%w: unknown calendar status %q", ErrInvalidConfig, name)
			}
		}
	}
	if len(c.Calendar.OverlapStatuses) == 0 {
		return fmt.Errorf("%w: calendar.overlap_statuses must not be empty", ErrInvalidConfig)
	}

	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("%w: server.http_port must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("%w: rate_limit limit and window must be positive", ErrInvalidConfig)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0, 1]", ErrInvalidConfig)
	}

	return nil
}

func toStatuses(names []string) []domain.AppointmentStatus {
	statuses := make([]domain.AppointmentStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, domain.AppointmentStatus(name))
	}
	return statuses
}
