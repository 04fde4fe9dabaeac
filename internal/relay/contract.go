package relay

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
)

// OutboxRepository источник неопубликованных событий
type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// MessageWriter *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчик опубликованных событий
type Metrics interface {
	IncOutboxPublished(eventType string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
