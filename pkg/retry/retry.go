// Package retry runs operations with exponential backoff and parks messages
// that keep failing on a dead letter topic.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

const (
	defaultInitialInterval = time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultMultiplier      = 2.0
)

// Config controls the backoff schedule
type Config struct {
	// MaxRetries counts retries only, so an operation runs at most MaxRetries+1 times
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor spreads each wait by up to ±factor of itself, clamped to [0,1]
	JitterFactor float64
}

// DefaultConfig waits 1s, 2s, 4s, 8s, 16s between attempts
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
		Multiplier:      defaultMultiplier,
		JitterFactor:    0.1,
	}
}

// Operation is one attempt
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so it is not retried. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result reports how a retried operation ended
type Result struct {
	// Err is nil on success, the unwrapped permanent error, or one of
	// ErrMaxRetriesExceeded / ErrContextCanceled
	Err       error
	Attempts  int
	LastError error
}

// RetryCallback observes each failed attempt that will be retried
type RetryCallback func(attempt int, err error, nextInterval time.Duration)

// Retrier runs operations on a fixed backoff schedule
type Retrier struct {
	config *Config
}

// New builds a Retrier. Zero fields of config take the defaults.
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = defaultInitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = defaultMaxInterval
	}
	if config.Multiplier <= 0 {
		config.Multiplier = defaultMultiplier
	}
	config.JitterFactor = math.Max(0, math.Min(1, config.JitterFactor))
	return &Retrier{config: config}
}

// Do runs op until it succeeds, fails permanently, runs out of retries or ctx ends
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	return r.DoWithCallback(ctx, op, nil)
}

// DoWithCallback is Do with a hook called before every wait
func (r *Retrier) DoWithCallback(ctx context.Context, op Operation, callback RetryCallback) *Result {
	res := &Result{}

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1
		if ctx.Err() != nil {
			return res.fail(ErrContextCanceled)
		}

		err := op(ctx)
		if err == nil {
			return res
		}
		res.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			res.LastError = perm.Err
			return res.fail(perm.Err)
		}
		if attempt >= r.config.MaxRetries {
			return res.fail(ErrMaxRetriesExceeded)
		}

		wait := r.calculateInterval(attempt)
		if callback != nil {
			callback(res.Attempts, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res.fail(ErrContextCanceled)
		case <-timer.C:
		}
	}
}

func (res *Result) fail(err error) *Result {
	res.Err = err
	return res
}

// calculateInterval returns the wait after the given zero-based attempt
func (r *Retrier) calculateInterval(attempt int) time.Duration {
	cfg := r.config
	wait := float64(cfg.InitialInterval) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.JitterFactor > 0 {
		wait += wait * cfg.JitterFactor * (2*rand.Float64() - 1)
	}
	wait = math.Min(wait, float64(cfg.MaxInterval))
	if wait < 0 {
		return cfg.InitialInterval
	}
	return time.Duration(wait)
}

// Do is shorthand for New(config).Do(ctx, op)
func Do(ctx context.Context, config *Config, op Operation) *Result {
	return New(config).Do(ctx, op)
}
