package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// Gateway errors
var (
	ErrSettlementDeclined = errors.New("settlement declined")
	ErrUnknownReference   = errors.New("unknown settlement reference")
	ErrOTPMismatch        = errors.New("otp does not match")
)

// TransactionInfo is a settlement tracked by the mock gateway
type TransactionInfo struct {
	Reference string
	BookingID string
	Method    domain.PaymentMethod
	Amount    int64
	Status    string
	CreatedAt time.Time
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability of a successful settlement (0.0 to 1.0)
	SuccessRate float64

	// SettlementDelay is the simulated settlement latency
	SettlementDelay time.Duration

	// OTPDelay is the simulated OTP verification latency
	OTPDelay time.Duration

	// RejectedOTP, when set, is always refused so the failure path can be
	// exercised in tests. Empty accepts every code.
	RejectedOTP string

	// FailureReasons is a list of possible decline reasons
	FailureReasons []string
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate:     1,
		SettlementDelay: 2 * time.Second,
		OTPDelay:        1500 * time.Millisecond,
		FailureReasons: []string{
			"insufficient_funds",
			"card_declined",
			"bank_unavailable",
		},
	}
}

// MockGateway simulates settlement and OTP verification with fixed latency
type MockGateway struct {
	config       *MockGatewayConfig
	transactions sync.Map
	mu           sync.RWMutex
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}

	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &MockGateway{
		config: config,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Settle simulates a settlement call
func (g *MockGateway) Settle(ctx context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error) {
	if req == nil {
		return nil, fmt.Errorf("settlement request is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrSettlementDeclined)
	}

	if err := wait(ctx, g.config.SettlementDelay); err != nil {
		return nil, err
	}

	if rand.Float64() >= g.GetSuccessRate() {
		reason := "payment_failed"
		if n := len(g.config.FailureReasons); n > 0 {
			reason = g.config.FailureReasons[rand.IntN(n)]
		}
		return nil, fmt.Errorf("%w: %s", ErrSettlementDeclined, reason)
	}

	reference := fmt.Sprintf("stl_%s", uuid.New().String()[:12])

	// only settlements awaiting an OTP challenge are tracked
	if req.Method.RequiresOTP() {
		g.transactions.Store(reference, &TransactionInfo{
			Reference: reference,
			BookingID: req.BookingID,
			Method:    req.Method,
			Amount:    req.Amount,
			Status:    "requires_otp",
			CreatedAt: time.Now(),
		})
	}

	return &domain.SettlementResult{Reference: reference}, nil
}

// VerifyOTP simulates an OTP challenge check for a prior settlement
func (g *MockGateway) VerifyOTP(ctx context.Context, req *domain.OTPVerification) error {
	if req == nil {
		return fmt.Errorf("otp verification request is required")
	}

	if err := wait(ctx, g.config.OTPDelay); err != nil {
		return err
	}

	if _, ok := g.transactions.Load(req.Reference); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, req.Reference)
	}

	// a refused code keeps the challenge open for another attempt
	if g.config.RejectedOTP != "" && req.OTP == g.config.RejectedOTP {
		return ErrOTPMismatch
	}

	g.transactions.Delete(req.Reference)
	return nil
}

// ExpireBefore drops pending challenges created before cutoff, such as
// those left behind by a cancelled OTP dialog
func (g *MockGateway) ExpireBefore(cutoff time.Time) int {
	removed := 0
	g.transactions.Range(func(key, value any) bool {
		if value.(*TransactionInfo).CreatedAt.Before(cutoff) {
			g.transactions.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// GetTransaction retrieves a pending settlement by reference
func (g *MockGateway) GetTransaction(reference string) (*TransactionInfo, error) {
	txn, ok := g.transactions.Load(reference)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	info := *txn.(*TransactionInfo)
	return &info, nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// SetSuccessRate updates the success rate (for testing)
func (g *MockGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.config.SuccessRate = rate
}

// GetSuccessRate returns the current success rate
func (g *MockGateway) GetSuccessRate() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config.SuccessRate
}
