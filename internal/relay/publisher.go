package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
	"github.com/m04kA/SMC-AppointmentService/pkg/tracing"
)

// Config параметры опроса outbox
type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// Publisher переносит события из outbox_events в Kafka.
// Topic = тип события, key = ID записи, чтобы события одной записи шли по порядку.
type Publisher struct {
	repo      OutboxRepository
	writer    MessageWriter
	txManager TransactionManager
	metrics   Metrics
	logger    Logger
	cfg       Config
}

// NewPublisher создает релей. metrics может быть nil.
func NewPublisher(repo OutboxRepository, writer MessageWriter, txManager TransactionManager, metrics Metrics, logger Logger, cfg Config) *Publisher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Publisher{
		repo:      repo,
		writer:    writer,
		txManager: txManager,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// NewKafkaWriter writer с хеш-балансировкой по ключу
func NewKafkaWriter(brokers []string, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Run опрашивает outbox до отмены контекста
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("OutboxRelay: started (poll=%s, batch=%d)", p.cfg.PollInterval, p.cfg.BatchSize)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("OutboxRelay: stopped")
			return
		case <-ticker.C:
			published, err := p.PublishBatch(ctx)
			if err != nil {
				p.logger.Error("OutboxRelay: publish failed: %v", err)
				continue
			}
			if published > 0 {
				p.logger.Info("OutboxRelay: published %d events", published)
			}
		}
	}
}

// PublishBatch публикует одну пачку событий в транзакции.
// При ошибке записи в Kafka транзакция откатывается и пачка будет повторена.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var published []outbox.Record

	err := p.txManager.Do(ctx, func(txCtx context.Context) error {
		records, err := p.repo.FetchUnpublished(txCtx, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, toMessage(ctx, r))
			ids = append(ids, r.ID)
		}

		if err := p.writer.WriteMessages(txCtx, msgs...); err != nil {
			return fmt.Errorf("write messages: %w", err)
		}

		if err := p.repo.MarkPublished(txCtx, ids); err != nil {
			return err
		}

		published = records
		return nil
	})
	if err != nil {
		return 0, err
	}

	if p.metrics != nil {
		for _, r := range published {
			p.metrics.IncOutboxPublished(r.EventType)
		}
	}

	return len(published), nil
}

func toMessage(ctx context.Context, r outbox.Record) kafka.Message {
	msgCtx := tracing.ExtractMap(ctx, map[string]string{
		"traceparent": r.Traceparent,
		"tracestate":  r.Tracestate,
	})

	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(r.EventID)},
			{Key: "event_type", Value: []byte(r.EventType)},
		},
	}
	msg.Headers = injectTraceHeaders(msgCtx, msg.Headers)

	return msg
}
