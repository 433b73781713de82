package metrics

import (
	"context"
	"sync"

	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Session counters
	SessionsStarted   *telemetry.Counter
	SessionsCompleted *telemetry.Counter
	SessionsAbandoned *telemetry.Counter

	// Workflow counters
	StageTransitions   *telemetry.Counter
	ValidationFailures *telemetry.Counter
	SettlementsTotal   *telemetry.Counter
	OTPVerifications   *telemetry.Counter

	// Hand-off counters
	ConfirmationsPublished *telemetry.Counter
	TicketsRendered        *telemetry.Counter

	// Catalog cache
	CatalogCacheLookups *telemetry.Counter

	// Error tracking counters
	ErrorsTotal       *telemetry.Counter
	SlowRequestsTotal *telemetry.Counter

	// Histograms
	SettlementDuration *telemetry.Histogram
	SessionDuration    *telemetry.Histogram
	RequestDuration    *telemetry.Histogram

	// Gauges
	ActiveSessions *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all workflow metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	counters := []struct {
		target **telemetry.Counter
		opts   telemetry.MetricOpts
	}{
		{&SessionsStarted, telemetry.MetricOpts{Name: "rail_sessions_started_total", Description: "Total number of booking sessions opened", Unit: "1"}},
		{&SessionsCompleted, telemetry.MetricOpts{Name: "rail_sessions_completed_total", Description: "Total number of sessions that reached a confirmed payment", Unit: "1"}},
		{&SessionsAbandoned, telemetry.MetricOpts{Name: "rail_sessions_abandoned_total", Description: "Total number of sessions discarded before completion", Unit: "1"}},
		{&StageTransitions, telemetry.MetricOpts{Name: "rail_stage_transitions_total", Description: "Total number of workflow stage moves", Unit: "1"}},
		{&ValidationFailures, telemetry.MetricOpts{Name: "rail_validation_failures_total", Description: "Total number of refused stage gates", Unit: "1"}},
		{&SettlementsTotal, telemetry.MetricOpts{Name: "rail_settlements_total", Description: "Total number of settlement attempts by outcome", Unit: "1"}},
		{&OTPVerifications, telemetry.MetricOpts{Name: "rail_otp_verifications_total", Description: "Total number of OTP submissions by outcome", Unit: "1"}},
		{&ConfirmationsPublished, telemetry.MetricOpts{Name: "rail_confirmations_published_total", Description: "Total number of confirmations handed to the renderer", Unit: "1"}},
		{&TicketsRendered, telemetry.MetricOpts{Name: "rail_tickets_rendered_total", Description: "Total number of ticket documents rendered", Unit: "1"}},
		{&CatalogCacheLookups, telemetry.MetricOpts{Name: "rail_catalog_cache_lookups_total", Description: "Catalog cache lookups by result", Unit: "1"}},
		{&ErrorsTotal, telemetry.MetricOpts{Name: "rail_errors_total", Description: "Total number of errors by type", Unit: "1"}},
		{&SlowRequestsTotal, telemetry.MetricOpts{Name: "rail_slow_requests_total", Description: "Total number of slow requests (>1s)", Unit: "1"}},
	}
	for _, c := range counters {
		if *c.target, err = telemetry.NewCounter(c.opts); err != nil {
			return err
		}
	}

	// Settlement latency is simulated in seconds
	SettlementDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "rail_settlement_duration_seconds",
		Description: "Duration of settlement and OTP gateway calls",
		Unit:        "s",
	}, []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10})
	if err != nil {
		return err
	}

	SessionDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "rail_session_duration_seconds",
		Description: "Time from session open to confirmation",
		Unit:        "s",
	}, []float64{10, 30, 60, 120, 300, 600, 1200, 1800})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "rail_request_duration_seconds",
		Description: "Workflow operation duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return err
	}

	ActiveSessions, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "rail_active_sessions",
		Description: "Current number of live booking sessions",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordSessionStarted records a new session
func RecordSessionStarted(ctx context.Context, trainID, class string) {
	if SessionsStarted != nil {
		SessionsStarted.Inc(ctx,
			attribute.String("train_id", trainID),
			attribute.String("class", class),
		)
	}
	if ActiveSessions != nil {
		ActiveSessions.Inc(ctx)
	}
}

// RecordSessionCompleted records a confirmed booking
func RecordSessionCompleted(ctx context.Context, method string, durationSeconds float64) {
	if SessionsCompleted != nil {
		SessionsCompleted.Inc(ctx, attribute.String("method", method))
	}
	if SessionDuration != nil {
		SessionDuration.Record(ctx, durationSeconds, attribute.String("method", method))
	}
}

// RecordSessionsClosed records sessions leaving the registry
func RecordSessionsClosed(ctx context.Context, reason string, count int64, completed bool) {
	if !completed && SessionsAbandoned != nil {
		SessionsAbandoned.Add(ctx, count, attribute.String("reason", reason))
	}
	if ActiveSessions != nil {
		ActiveSessions.Add(ctx, -count)
	}
}

// RecordTransition records one stage move
func RecordTransition(ctx context.Context, flow, to string) {
	if StageTransitions != nil {
		StageTransitions.Inc(ctx,
			attribute.String("flow", flow),
			attribute.String("to", to),
		)
	}
}

// RecordValidationFailure records a refused gate
func RecordValidationFailure(ctx context.Context, flow, stage string) {
	if ValidationFailures != nil {
		ValidationFailures.Inc(ctx,
			attribute.String("flow", flow),
			attribute.String("stage", stage),
		)
	}
}

// RecordSettlement records a settlement attempt
func RecordSettlement(ctx context.Context, method, outcome string, durationSeconds float64) {
	if SettlementsTotal != nil {
		SettlementsTotal.Inc(ctx,
			attribute.String("method", method),
			attribute.String("outcome", outcome),
		)
	}
	if SettlementDuration != nil {
		SettlementDuration.Record(ctx, durationSeconds,
			attribute.String("call", "settle"),
		)
	}
}

// RecordOTPVerification records an OTP submission
func RecordOTPVerification(ctx context.Context, method, outcome string, durationSeconds float64) {
	if OTPVerifications != nil {
		OTPVerifications.Inc(ctx,
			attribute.String("method", method),
			attribute.String("outcome", outcome),
		)
	}
	if SettlementDuration != nil && durationSeconds > 0 {
		SettlementDuration.Record(ctx, durationSeconds,
			attribute.String("call", "verify_otp"),
		)
	}
}

// RecordConfirmationPublished records a renderer hand-off
func RecordConfirmationPublished(ctx context.Context, outcome string) {
	if ConfirmationsPublished != nil {
		ConfirmationsPublished.Inc(ctx, attribute.String("outcome", outcome))
	}
}

// RecordTicketRendered records a rendered ticket
func RecordTicketRendered(ctx context.Context, outcome string) {
	if TicketsRendered != nil {
		TicketsRendered.Inc(ctx, attribute.String("outcome", outcome))
	}
}

// RecordCatalogCacheLookup records a catalog cache hit or miss
func RecordCatalogCacheLookup(ctx context.Context, hit bool) {
	if CatalogCacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CatalogCacheLookups.Inc(ctx, attribute.String("result", result))
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records operation duration and tracks slow requests
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
	// Track slow requests (>1s)
	if durationSeconds > 1.0 && SlowRequestsTotal != nil {
		SlowRequestsTotal.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
}
