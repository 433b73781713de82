package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/workflow"
)

var _ workflow.SettlementGateway = (*MockGateway)(nil)

func instantGateway(successRate float64) *MockGateway {
	return NewMockGateway(&MockGatewayConfig{
		SuccessRate: successRate,
		RejectedOTP: "000000",
	})
}

func TestMockGateway_SettleAndVerify(t *testing.T) {
	ctx := context.Background()
	g := instantGateway(1)

	res, err := g.Settle(ctx, &domain.SettlementRequest{BookingID: "1234567890", Method: domain.PaymentMethodCard, Amount: 3990})
	require.NoError(t, err)
	require.NotEmpty(t, res.Reference)

	info, err := g.GetTransaction(res.Reference)
	require.NoError(t, err)
	assert.Equal(t, "requires_otp", info.Status)
	assert.Equal(t, int64(3990), info.Amount)

	require.NoError(t, g.VerifyOTP(ctx, &domain.OTPVerification{BookingID: "1234567890", Reference: res.Reference, OTP: "482910"}))

	// a verified challenge is forgotten
	_, err = g.GetTransaction(res.Reference)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestMockGateway_UPISettlesImmediately(t *testing.T) {
	g := instantGateway(1)

	res, err := g.Settle(context.Background(), &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodUPI, Amount: 100})
	require.NoError(t, err)
	require.NotEmpty(t, res.Reference)

	// nothing is pending, so nothing is kept
	_, err = g.GetTransaction(res.Reference)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestMockGateway_Declines(t *testing.T) {
	g := instantGateway(0)

	_, err := g.Settle(context.Background(), &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodUPI, Amount: 100})
	assert.ErrorIs(t, err, ErrSettlementDeclined)

	g.SetSuccessRate(1)
	_, err = g.Settle(context.Background(), &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodUPI, Amount: 0})
	assert.ErrorIs(t, err, ErrSettlementDeclined)

	_, err = g.Settle(context.Background(), nil)
	assert.Error(t, err)
}

func TestMockGateway_VerifyErrors(t *testing.T) {
	ctx := context.Background()
	g := instantGateway(1)

	err := g.VerifyOTP(ctx, &domain.OTPVerification{Reference: "missing", OTP: "123456"})
	assert.ErrorIs(t, err, ErrUnknownReference)

	res, err := g.Settle(ctx, &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodNetBanking, Amount: 100})
	require.NoError(t, err)
	err = g.VerifyOTP(ctx, &domain.OTPVerification{Reference: res.Reference, OTP: "000000"})
	assert.ErrorIs(t, err, ErrOTPMismatch)

	// the challenge stays open after a refused code
	require.NoError(t, g.VerifyOTP(ctx, &domain.OTPVerification{Reference: res.Reference, OTP: "123456"}))
}

func TestMockGateway_ExpireBefore(t *testing.T) {
	ctx := context.Background()
	g := instantGateway(1)

	stale, err := g.Settle(ctx, &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodCard, Amount: 100})
	require.NoError(t, err)
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	fresh, err := g.Settle(ctx, &domain.SettlementRequest{BookingID: "2", Method: domain.PaymentMethodCard, Amount: 100})
	require.NoError(t, err)

	assert.Equal(t, 1, g.ExpireBefore(cutoff))

	_, err = g.GetTransaction(stale.Reference)
	assert.ErrorIs(t, err, ErrUnknownReference)
	_, err = g.GetTransaction(fresh.Reference)
	assert.NoError(t, err)
	assert.Equal(t, 0, g.ExpireBefore(cutoff))
}

func TestDefaultMockGatewayConfig_AcceptsEverySixDigitOTP(t *testing.T) {
	cfg := DefaultMockGatewayConfig()
	assert.Empty(t, cfg.RejectedOTP)
	cfg.SettlementDelay = 0
	cfg.OTPDelay = 0
	g := NewMockGateway(cfg)

	for _, otp := range []string{"000000", "123456", "999999"} {
		t.Run(otp, func(t *testing.T) {
			c := workflow.NewPaymentController(&domain.BookingConfirmationRequest{
				BookingID: "1234567890",
				Fare:      domain.FareSummary{TotalBaseFare: 3800, DiscountedFare: 3800, GSTAmount: 190, TotalPayable: 3990},
			}, &workflow.PaymentControllerConfig{Gateway: g})

			require.NoError(t, c.Next())
			require.NoError(t, c.Next())
			require.NoError(t, c.SetDetails(domain.CardDetails{
				CardNumber: "4111 1111 1111 1111",
				NameOnCard: "Asha Rao",
				ExpiryDate: "09/28",
				CVV:        "123",
			}))
			require.NoError(t, c.Next())

			confirmation, err := c.Confirm(context.Background())
			require.NoError(t, err)
			require.Nil(t, confirmation)
			require.Equal(t, workflow.StageOtpDialog, c.Stage())

			confirmation, err = c.SubmitOTP(context.Background(), otp)
			require.NoError(t, err)
			require.NotNil(t, confirmation)
			assert.Equal(t, workflow.StageCompleted, c.Stage())
			assert.Equal(t, int64(3990), confirmation.Amount)
		})
	}
}

func TestMockGateway_DelayHonoursContext(t *testing.T) {
	g := NewMockGateway(&MockGatewayConfig{SuccessRate: 1, SettlementDelay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Settle(ctx, &domain.SettlementRequest{BookingID: "1", Method: domain.PaymentMethodUPI, Amount: 100})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockGateway_SuccessRateClamped(t *testing.T) {
	g := NewMockGateway(&MockGatewayConfig{SuccessRate: 4})
	assert.Equal(t, 1.0, g.GetSuccessRate())

	g.SetSuccessRate(-1)
	assert.Equal(t, 0.0, g.GetSuccessRate())
	assert.Equal(t, "mock", g.Name())
}
