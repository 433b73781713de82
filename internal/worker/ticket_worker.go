package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/metrics"
	"github.com/prohmpiriya/rail-booking/pkg/kafka"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/retry"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// RecordSource is the consumer side used by the worker. *kafka.Consumer satisfies it.
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// TicketRenderer renders one confirmation to durable output
type TicketRenderer interface {
	RenderToFile(c *domain.Confirmation) (string, error)
}

// TicketWorkerConfig holds configuration for the ticket worker
type TicketWorkerConfig struct {
	// WorkerCount is the number of records rendered in parallel
	WorkerCount int
	// PollBackoff is the pause after a failed poll
	PollBackoff time.Duration
}

// TicketWorker consumes booking confirmations and renders a ticket for each
type TicketWorker struct {
	config   *TicketWorkerConfig
	source   RecordSource
	renderer TicketRenderer
	dlq      *retry.DLQHandler
	log      *logger.Logger
}

// NewTicketWorker creates a new ticket worker
func NewTicketWorker(
	cfg *TicketWorkerConfig,
	source RecordSource,
	renderer TicketRenderer,
	dlq *retry.DLQHandler,
	log *logger.Logger,
) *TicketWorker {
	if cfg == nil {
		cfg = &TicketWorkerConfig{}
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = time.Second
	}
	if log == nil {
		log = logger.Get()
	}

	return &TicketWorker{
		config:   cfg,
		source:   source,
		renderer: renderer,
		dlq:      dlq,
		log:      log,
	}
}

// Start polls until ctx ends. Each polled batch is rendered by the worker
// pool and committed once every record has been rendered or parked on the DLQ.
func (w *TicketWorker) Start(ctx context.Context) {
	w.log.Info("ticket worker started", zap.Int("workers", w.config.WorkerCount))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("ticket worker stopped")
			return
		default:
		}

		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrClosed) {
				w.log.Info("ticket worker stopped")
				return
			}
			w.log.Error("failed to poll confirmations", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.config.PollBackoff):
			}
			continue
		}
		if len(records) == 0 {
			continue
		}

		w.ProcessBatch(ctx, records)

		if err := w.source.CommitRecords(context.WithoutCancel(ctx), records); err != nil {
			w.log.Error("failed to commit offsets", zap.Error(err))
		}
	}
}

// ProcessBatch renders a batch across the worker pool and waits for it
func (w *TicketWorker) ProcessBatch(ctx context.Context, records []*kafka.Record) {
	jobs := make(chan *kafka.Record)
	var wg sync.WaitGroup

	for i := 0; i < w.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				if err := w.processRecord(ctx, record); err != nil {
					w.log.ErrorContext(record.Context(ctx), "failed to render ticket",
						zap.String("key", string(record.Key)),
						zap.Int64("offset", record.Offset),
						zap.Error(err),
					)
				}
			}
		}()
	}

	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()
}

// processRecord renders one record. Undecodable payloads go straight to
// the DLQ; render failures are retried first.
func (w *TicketWorker) processRecord(ctx context.Context, record *kafka.Record) error {
	ctx, span := telemetry.StartSpan(record.Context(ctx), "worker.ticket.render")
	defer span.End()
	span.SetAttributes(
		attribute.String("topic", record.Topic),
		attribute.Int64("offset", record.Offset),
	)

	op := func(ctx context.Context) error {
		var event domain.ConfirmationEvent
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return retry.Permanent(fmt.Errorf("failed to unmarshal confirmation event: %w", err))
		}
		if event.Confirmation == nil || event.Confirmation.PNR == "" {
			return retry.Permanent(fmt.Errorf("confirmation event %s has no PNR", event.EventID))
		}

		path, err := w.renderer.RenderToFile(event.Confirmation)
		if err != nil {
			return err
		}
		span.SetAttributes(
			attribute.String("booking_id", event.Confirmation.BookingID),
			attribute.String("pnr", event.Confirmation.PNR),
		)
		w.log.InfoContext(ctx, "ticket rendered",
			zap.String("booking_id", event.Confirmation.BookingID),
			zap.String("pnr", event.Confirmation.PNR),
			zap.String("path", path),
		)
		return nil
	}

	var err error
	if w.dlq != nil {
		err = w.dlq.ProcessWithDLQ(ctx, &retry.MessageContext{
			ID:      fmt.Sprintf("%s-%d-%d", record.Topic, record.Partition, record.Offset),
			Topic:   record.Topic,
			Key:     string(record.Key),
			Payload: record.Value,
			Headers: record.Headers,
		}, op)
	} else {
		err = op(ctx)
	}

	if err != nil {
		metrics.RecordTicketRendered(ctx, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	metrics.RecordTicketRendered(ctx, "rendered")
	span.SetStatus(codes.Ok, "")
	return nil
}
