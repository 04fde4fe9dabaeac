package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	outboxRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
	"github.com/m04kA/SMC-AppointmentService/internal/relay"
	"github.com/m04kA/SMC-AppointmentService/pkg/tracing"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

func outboxRelayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "outbox-relay",
		Short: "Publish outbox events to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutboxRelay(*configPath)
		},
	}
}

func runOutboxRelay(configPath string) error {
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log
	log.Info("Starting SMC-AppointmentService outbox relay...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Metrics.ServiceName + "_relay",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}

	writer := relay.NewKafkaWriter(cfg.Kafka.Brokers, time.Duration(cfg.Kafka.WriteTimeout)*time.Second)
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error("Failed to close kafka writer: %v", err)
		}
	}()
	log.Info("Kafka writer initialized (brokers=%v)", cfg.Kafka.Brokers)

	publisher := relay.NewPublisher(
		outboxRepo.NewRepository(a.db),
		writer,
		txmanager.New(a.db, log),
		a.metrics,
		log,
		relay.Config{
			PollInterval: time.Duration(cfg.Outbox.PollInterval) * time.Millisecond,
			BatchSize:    cfg.Outbox.BatchSize,
		},
	)

	// Блокируется до SIGINT/SIGTERM
	publisher.Run(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("Failed to flush traces: %v", err)
	}

	log.Info("Outbox relay stopped gracefully")
	return nil
}
