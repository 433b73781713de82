package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/pkg/kafka"
	"github.com/prohmpiriya/rail-booking/pkg/retry"
)

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
	failN    int
	calls    int
}

func (r *fakeRenderer) RenderToFile(c *domain.Confirmation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failN {
		return "", errors.New("disk full")
	}
	r.rendered = append(r.rendered, c.PNR)
	return "tickets/ticket-" + c.PNR + ".pdf", nil
}

type fakeDLQ struct {
	mu       sync.Mutex
	messages []*retry.DLQMessage
}

func (d *fakeDLQ) PublishToDLQ(ctx context.Context, msg *retry.DLQMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return nil
}

// fakeSource hands out its batches once, then blocks until the context ends
type fakeSource struct {
	mu        sync.Mutex
	batches   [][]*kafka.Record
	committed []*kafka.Record
	pollErr   error
	polled    chan struct{}
}

func (s *fakeSource) Poll(ctx context.Context) ([]*kafka.Record, error) {
	s.mu.Lock()
	if s.pollErr != nil {
		err := s.pollErr
		s.pollErr = nil
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()

	select {
	case s.polled <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeSource) CommitRecords(ctx context.Context, records []*kafka.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, records...)
	return nil
}

func confirmationRecord(t *testing.T, offset int64, pnr string) *kafka.Record {
	t.Helper()
	event := domain.NewConfirmationEvent(&domain.Confirmation{
		BookingID: "10000000" + pnr[len(pnr)-2:],
		PNR:       pnr,
		Amount:    3990,
	})
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &kafka.Record{
		Topic:  "booking-confirmations",
		Offset: offset,
		Key:    []byte(event.Confirmation.BookingID),
		Value:  value,
	}
}

func newDLQHandler(publisher retry.DLQPublisher) *retry.DLQHandler {
	return retry.NewDLQHandler(publisher, &retry.Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, "ticket-renderer")
}

func TestProcessBatch_RendersEveryRecord(t *testing.T) {
	renderer := &fakeRenderer{}
	dlq := &fakeDLQ{}
	w := NewTicketWorker(&TicketWorkerConfig{WorkerCount: 3}, nil, renderer, newDLQHandler(dlq), nil)

	records := []*kafka.Record{
		confirmationRecord(t, 1, "PNR00000001"),
		confirmationRecord(t, 2, "PNR00000002"),
		confirmationRecord(t, 3, "PNR00000003"),
		confirmationRecord(t, 4, "PNR00000004"),
	}
	w.ProcessBatch(context.Background(), records)

	assert.ElementsMatch(t, []string{"PNR00000001", "PNR00000002", "PNR00000003", "PNR00000004"}, renderer.rendered)
	assert.Empty(t, dlq.messages)
}

func TestProcessBatch_RetriesTransientFailure(t *testing.T) {
	renderer := &fakeRenderer{failN: 2}
	dlq := &fakeDLQ{}
	w := NewTicketWorker(&TicketWorkerConfig{WorkerCount: 1}, nil, renderer, newDLQHandler(dlq), nil)

	w.ProcessBatch(context.Background(), []*kafka.Record{confirmationRecord(t, 7, "PNR00000007")})

	assert.Equal(t, 3, renderer.calls)
	assert.Equal(t, []string{"PNR00000007"}, renderer.rendered)
	assert.Empty(t, dlq.messages)
}

func TestProcessBatch_ExhaustedRetriesGoToDLQ(t *testing.T) {
	renderer := &fakeRenderer{failN: 100}
	dlq := &fakeDLQ{}
	w := NewTicketWorker(&TicketWorkerConfig{WorkerCount: 1}, nil, renderer, newDLQHandler(dlq), nil)

	record := confirmationRecord(t, 9, "PNR00000009")
	w.ProcessBatch(context.Background(), []*kafka.Record{record})

	assert.Equal(t, 3, renderer.calls)
	require.Len(t, dlq.messages, 1)
	msg := dlq.messages[0]
	assert.Equal(t, "booking-confirmations", msg.OriginalTopic)
	assert.Equal(t, string(record.Key), msg.OriginalKey)
	assert.Equal(t, "disk full", msg.Error)
	assert.Equal(t, 3, msg.Attempts)
	assert.JSONEq(t, string(record.Value), string(msg.Payload))
}

func TestProcessBatch_UndecodablePayloadIsNotRetried(t *testing.T) {
	renderer := &fakeRenderer{}
	dlq := &fakeDLQ{}
	w := NewTicketWorker(nil, nil, renderer, newDLQHandler(dlq), nil)

	noPNR, err := json.Marshal(domain.NewConfirmationEvent(&domain.Confirmation{BookingID: "1234567890"}))
	require.NoError(t, err)

	w.ProcessBatch(context.Background(), []*kafka.Record{
		{Topic: "booking-confirmations", Offset: 1, Value: []byte("{not json")},
		{Topic: "booking-confirmations", Offset: 2, Value: noPNR},
	})

	assert.Zero(t, renderer.calls)
	require.Len(t, dlq.messages, 2)
	for _, msg := range dlq.messages {
		assert.Equal(t, 1, msg.Attempts)
	}
}

func TestProcessBatch_WithoutDLQ(t *testing.T) {
	renderer := &fakeRenderer{failN: 1}
	w := NewTicketWorker(&TicketWorkerConfig{WorkerCount: 1}, nil, renderer, nil, nil)

	w.ProcessBatch(context.Background(), []*kafka.Record{confirmationRecord(t, 1, "PNR00000011")})

	// a single attempt without a DLQ handler
	assert.Equal(t, 1, renderer.calls)
	assert.Empty(t, renderer.rendered)
}

func TestStart_CommitsAfterBatch(t *testing.T) {
	source := &fakeSource{
		batches: [][]*kafka.Record{
			{confirmationRecord(t, 1, "PNR00000021"), confirmationRecord(t, 2, "PNR00000022")},
			{confirmationRecord(t, 3, "PNR00000023")},
		},
		pollErr: errors.New("broker unavailable"),
		polled:  make(chan struct{}, 1),
	}
	renderer := &fakeRenderer{}
	w := NewTicketWorker(&TicketWorkerConfig{WorkerCount: 2, PollBackoff: time.Millisecond},
		source, renderer, newDLQHandler(&fakeDLQ{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-source.polled:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain the batches")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Len(t, source.committed, 3)
	assert.ElementsMatch(t, []string{"PNR00000021", "PNR00000022", "PNR00000023"}, renderer.rendered)
}

func TestStart_StopsWhenConsumerClosed(t *testing.T) {
	source := &fakeSource{pollErr: kafka.ErrClosed, polled: make(chan struct{}, 1)}
	w := NewTicketWorker(nil, source, &fakeRenderer{}, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on a closed consumer")
	}
}
