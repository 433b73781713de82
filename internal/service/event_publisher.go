package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/pkg/kafka"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/retry"
	"go.uber.org/zap"
)

// ConfirmationPublisher hands finalized bookings to the ticket renderer
type ConfirmationPublisher interface {
	// PublishConfirmation publishes one confirmed booking
	PublishConfirmation(ctx context.Context, confirmation *domain.Confirmation) error

	// Close closes the publisher
	Close() error
}

// KafkaConfirmationPublisher implements ConfirmationPublisher using Kafka
type KafkaConfirmationPublisher struct {
	producer    retry.JSONProducer
	closer      func()
	retrier     *retry.Retrier
	topic       string
	serviceName string
}

// ConfirmationPublisherConfig contains configuration for the publisher
type ConfirmationPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
	Retry       *retry.Config
}

// DefaultConfirmationTopic is the topic the renderer consumes
const DefaultConfirmationTopic = "booking-confirmations"

// NewKafkaConfirmationPublisher connects a producer and returns a publisher
func NewKafkaConfirmationPublisher(ctx context.Context, cfg *ConfirmationPublisherConfig) (*KafkaConfirmationPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("confirmation publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rail-booking-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := NewConfirmationPublisher(producer, cfg)
	p.closer = producer.Close
	return p, nil
}

// NewConfirmationPublisher wraps an existing producer
func NewConfirmationPublisher(producer retry.JSONProducer, cfg *ConfirmationPublisherConfig) *KafkaConfirmationPublisher {
	topic := DefaultConfirmationTopic
	serviceName := "rail-booking"
	retryCfg := &retry.Config{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
	if cfg != nil {
		if cfg.Topic != "" {
			topic = cfg.Topic
		}
		if cfg.ServiceName != "" {
			serviceName = cfg.ServiceName
		}
		if cfg.Retry != nil {
			retryCfg = cfg.Retry
		}
	}

	return &KafkaConfirmationPublisher{
		producer:    producer,
		retrier:     retry.New(retryCfg),
		topic:       topic,
		serviceName: serviceName,
	}
}

// PublishConfirmation publishes a booking.confirmed event keyed by booking id
func (p *KafkaConfirmationPublisher) PublishConfirmation(ctx context.Context, confirmation *domain.Confirmation) error {
	if confirmation == nil {
		return fmt.Errorf("confirmation is required")
	}

	event := domain.NewConfirmationEvent(confirmation)
	headers := map[string]string{
		"event_type":   event.EventType,
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	result := p.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		return p.producer.ProduceJSON(ctx, p.topic, confirmation.BookingID, event, headers)
	}, func(attempt int, err error, next time.Duration) {
		logger.Get().WarnContext(ctx, "retrying confirmation publish",
			zap.String("booking_id", confirmation.BookingID),
			zap.Int("attempt", attempt),
			zap.Duration("next_interval", next),
			zap.Error(err),
		)
	})
	if result.Err != nil {
		err := result.LastError
		if err == nil {
			err = result.Err
		}
		return fmt.Errorf("failed to publish %s event after %d attempts: %w", event.EventType, result.Attempts, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *KafkaConfirmationPublisher) Close() error {
	if p.closer != nil {
		p.closer()
	}
	return nil
}

// NoOpConfirmationPublisher drops confirmations; used when Kafka is disabled
type NoOpConfirmationPublisher struct{}

// NewNoOpConfirmationPublisher creates a new no-op publisher
func NewNoOpConfirmationPublisher() *NoOpConfirmationPublisher {
	return &NoOpConfirmationPublisher{}
}

// PublishConfirmation is a no-op
func (p *NoOpConfirmationPublisher) PublishConfirmation(ctx context.Context, confirmation *domain.Confirmation) error {
	return nil
}

// Close is a no-op
func (p *NoOpConfirmationPublisher) Close() error {
	return nil
}
