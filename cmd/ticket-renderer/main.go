package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/metrics"
	"github.com/prohmpiriya/rail-booking/internal/renderer"
	"github.com/prohmpiriya/rail-booking/internal/service"
	"github.com/prohmpiriya/rail-booking/internal/worker"
	"github.com/prohmpiriya/rail-booking/pkg/config"
	"github.com/prohmpiriya/rail-booking/pkg/kafka"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/retry"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
)

const serviceName = "ticket-renderer"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Ticket Renderer...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	topic := cfg.Kafka.ConfirmationTopic
	if topic == "" {
		topic = service.DefaultConfirmationTopic
	}

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topics:         []string{topic},
		ClientID:       serviceName,
		MaxRetries:     3,
		RetryInterval:  2 * time.Second,
		SessionTimeout: 30 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka consumer: %v", err))
	}
	defer consumer.Close()
	appLog.Info("Kafka consumer connected")

	// Dead letter producer
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      serviceName + "-dlq",
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka producer: %v", err))
	}
	defer producer.Close()

	dlq := retry.NewDLQHandler(
		retry.NewKafkaDLQPublisher(producer, serviceName),
		&retry.Config{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
		serviceName,
	)

	ticketWorker := worker.NewTicketWorker(
		&worker.TicketWorkerConfig{WorkerCount: cfg.Renderer.WorkerCount},
		consumer,
		renderer.NewTicketRenderer(&renderer.Config{OutputDir: cfg.Renderer.OutputDir}),
		dlq,
		appLog,
	)

	done := make(chan struct{})
	go func() {
		ticketWorker.Start(ctx)
		close(done)
	}()
	appLog.Info(fmt.Sprintf("Ticket renderer consuming %s into %s", topic, cfg.Renderer.OutputDir))

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down ticket renderer...")
	cancel()

	// Let the in-flight batch finish and commit
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		appLog.Warn("Ticket renderer did not stop in time")
	}
	appLog.Info("Ticket renderer stopped")
}
