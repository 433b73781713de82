package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

var confirmedAt = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func newTestPayment(gw SettlementGateway) *PaymentController {
	return NewPaymentController(submittedRequest(), &PaymentControllerConfig{
		Gateway: gw,
		IDs:     fixedIDs{},
		Now:     func() time.Time { return confirmedAt },
	})
}

// enterDetails walks to EnterPaymentDetails with method m and sets d
func enterDetails(t *testing.T, c *PaymentController, m domain.PaymentMethod, d domain.PaymentDetails) {
	t.Helper()
	require.NoError(t, c.Next())
	require.NoError(t, c.SelectMethod(m))
	require.NoError(t, c.Next())
	require.NoError(t, c.SetDetails(d))
}

var (
	validCard = domain.CardDetails{CardNumber: "4111 1111 1111 1111", NameOnCard: "Asha Rao", ExpiryDate: "09/28", CVV: "123"}
	validUPI  = domain.UPIDetails{UPIID: "asha@okhdfc"}
	validBank = domain.NetBankingDetails{Bank: "ICICI Bank"}
)

func TestPaymentController_Defaults(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	snap := c.Snapshot()

	assert.Equal(t, StageReviewBooking, snap.Stage)
	assert.Equal(t, domain.PaymentMethodCard, snap.Draft.Method)
	assert.Equal(t, domain.CardDetails{}, snap.Draft.Details)
	assert.Equal(t, int64(3990), snap.Amount)
	assert.Equal(t, "1234567890", snap.BookingID)
}

func TestPaymentController_InvalidUPIKeepsStage(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	enterDetails(t, c, domain.PaymentMethodUPI, domain.UPIDetails{UPIID: "abc"})

	err := c.Next()
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"upi_id": "Invalid UPI ID"}, verr.FieldMap())

	snap := c.Snapshot()
	assert.Equal(t, StageEnterPaymentDetails, snap.Stage)
	assert.Equal(t, "Invalid UPI ID", snap.FieldErrors["upi_id"])

	// Editing the field clears its error
	require.NoError(t, c.SetDetails(domain.UPIDetails{UPIID: "abcd"}))
	assert.Empty(t, c.Snapshot().FieldErrors)
}

func TestPaymentController_EditClearsOnlyChangedFields(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	enterDetails(t, c, domain.PaymentMethodCard, domain.CardDetails{CardNumber: "1", NameOnCard: "A"})

	require.Error(t, c.Next())
	require.Len(t, c.Snapshot().FieldErrors, 3)

	require.NoError(t, c.SetDetails(domain.CardDetails{CardNumber: "1", NameOnCard: "A", CVV: "123"}))
	errs := c.Snapshot().FieldErrors
	assert.Contains(t, errs, "card_number")
	assert.Contains(t, errs, "expiry_date")
	assert.NotContains(t, errs, "cvv")
}

func TestPaymentController_UPICompletesWithoutOTP(t *testing.T) {
	gw := &stubGateway{}
	c := newTestPayment(gw)
	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	require.NoError(t, c.Next())
	require.Equal(t, StageConfirmDialog, c.Stage())

	conf, err := c.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conf)

	assert.Equal(t, StageCompleted, c.Stage())
	assert.Equal(t, "1234567890", conf.BookingID)
	assert.Equal(t, "PNR00000042", conf.PNR)
	assert.Equal(t, "PAY0000000042", conf.PaymentID)
	assert.Equal(t, domain.PaymentMethodUPI, conf.Method)
	assert.Equal(t, int64(3990), conf.Amount)
	assert.Equal(t, confirmedAt, conf.ConfirmedAt)
	assert.Len(t, conf.Passengers, 2)

	settle, verify := gw.calls()
	assert.Equal(t, 1, settle)
	assert.Equal(t, 0, verify)
}

func TestPaymentController_OTPMethods(t *testing.T) {
	tests := []struct {
		name    string
		method  domain.PaymentMethod
		details domain.PaymentDetails
	}{
		{"card", domain.PaymentMethodCard, validCard},
		{"netbanking", domain.PaymentMethodNetBanking, validBank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verified *domain.OTPVerification
			gw := &stubGateway{VerifyOTPFunc: func(_ context.Context, req *domain.OTPVerification) error {
				verified = req
				return nil
			}}
			c := newTestPayment(gw)
			enterDetails(t, c, tt.method, tt.details)
			require.NoError(t, c.Next())

			conf, err := c.Confirm(context.Background())
			require.NoError(t, err)
			assert.Nil(t, conf)
			assert.Equal(t, StageOtpDialog, c.Stage())

			// Malformed OTP stays in the dialog without repeating settlement
			_, err = c.SubmitOTP(context.Background(), "12345")
			assert.ErrorIs(t, err, domain.ErrPaymentRejected)
			assert.Equal(t, StageOtpDialog, c.Stage())
			assert.Equal(t, NoticeOTP, c.Snapshot().FieldErrors["otp"])

			conf, err = c.SubmitOTP(context.Background(), "654321")
			require.NoError(t, err)
			require.NotNil(t, conf)
			assert.Equal(t, StageCompleted, c.Stage())
			assert.Equal(t, tt.method, conf.Method)

			require.NotNil(t, verified)
			assert.Equal(t, "654321", verified.OTP)
			assert.Equal(t, "REF-1234567890", verified.Reference)

			settle, verify := gw.calls()
			assert.Equal(t, 1, settle)
			assert.Equal(t, 1, verify)
		})
	}
}

func TestPaymentController_OTPVerificationFailure(t *testing.T) {
	gw := &stubGateway{VerifyOTPFunc: func(context.Context, *domain.OTPVerification) error {
		return errors.New("otp mismatch")
	}}
	c := newTestPayment(gw)
	enterDetails(t, c, domain.PaymentMethodCard, validCard)
	require.NoError(t, c.Next())
	_, err := c.Confirm(context.Background())
	require.NoError(t, err)

	_, err = c.SubmitOTP(context.Background(), "111111")
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)
	assert.Equal(t, StageOtpDialog, c.Stage())

	settle, _ := gw.calls()
	assert.Equal(t, 1, settle)
}

func TestPaymentController_CancelDialogs(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	enterDetails(t, c, domain.PaymentMethodCard, validCard)
	require.NoError(t, c.Next())

	require.NoError(t, c.Cancel())
	assert.Equal(t, StageEnterPaymentDetails, c.Stage())
	assert.Equal(t, validCard, c.Snapshot().Draft.Details)

	require.NoError(t, c.Next())
	_, err := c.Confirm(context.Background())
	require.NoError(t, err)
	require.Equal(t, StageOtpDialog, c.Stage())

	require.NoError(t, c.Cancel())
	assert.Equal(t, StageEnterPaymentDetails, c.Stage())
	assert.Nil(t, c.Snapshot().Confirmation)

	assert.ErrorIs(t, c.Cancel(), domain.ErrInvalidTransition)
}

func TestPaymentController_GatewayRejection(t *testing.T) {
	gw := &stubGateway{SettleFunc: func(context.Context, *domain.SettlementRequest) (*domain.SettlementResult, error) {
		return nil, errors.New("insufficient funds")
	}}
	c := newTestPayment(gw)
	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	require.NoError(t, c.Next())

	conf, err := c.Confirm(context.Background())
	assert.Nil(t, conf)
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Equal(t, StageEnterPaymentDetails, c.Stage())
}

func TestPaymentController_BusyWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	gw := &stubGateway{SettleFunc: func(_ context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error) {
		<-release
		return &domain.SettlementResult{Reference: "REF"}, nil
	}}
	c := newTestPayment(gw)
	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	require.NoError(t, c.Next())

	done := make(chan error, 1)
	go func() {
		_, err := c.Confirm(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Stage() == StageProcessing }, time.Second, time.Millisecond)

	assert.ErrorIs(t, c.Next(), domain.ErrBusy)
	assert.ErrorIs(t, c.Back(), domain.ErrBusy)
	assert.ErrorIs(t, c.Cancel(), domain.ErrBusy)
	_, err := c.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StageCompleted, c.Stage())

	settle, _ := gw.calls()
	assert.Equal(t, 1, settle)
}

func TestPaymentController_SettlementIgnoresCallerCancel(t *testing.T) {
	gw := &stubGateway{SettleFunc: func(ctx context.Context, _ *domain.SettlementRequest) (*domain.SettlementResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &domain.SettlementResult{Reference: "REF"}, nil
	}}
	c := newTestPayment(gw)
	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	require.NoError(t, c.Next())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conf, err := c.Confirm(ctx)
	require.NoError(t, err)
	assert.NotNil(t, conf)
}

func TestPaymentController_ClosedAfterCompletion(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	require.NoError(t, c.Next())
	_, err := c.Confirm(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Next(), domain.ErrWorkflowClosed)
	assert.ErrorIs(t, c.Cancel(), domain.ErrWorkflowClosed)
	assert.ErrorIs(t, c.SelectMethod(domain.PaymentMethodCard), domain.ErrWorkflowClosed)
	_, err = c.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrWorkflowClosed)
}

func TestPaymentController_MethodSwitchResetsDetails(t *testing.T) {
	c := newTestPayment(&stubGateway{})
	enterDetails(t, c, domain.PaymentMethodCard, validCard)

	require.NoError(t, c.Back())
	require.Equal(t, StageSelectMethod, c.Stage())

	// Same method keeps the entered details
	require.NoError(t, c.SelectMethod(domain.PaymentMethodCard))
	assert.Equal(t, validCard, c.Snapshot().Draft.Details)

	require.NoError(t, c.SelectMethod(domain.PaymentMethodNetBanking))
	assert.Equal(t, domain.NetBankingDetails{}, c.Snapshot().Draft.Details)

	assert.ErrorIs(t, c.SelectMethod("wallet"), domain.ErrValidationFailed)
}

func TestPaymentController_StageGuards(t *testing.T) {
	c := newTestPayment(&stubGateway{})

	assert.ErrorIs(t, c.Back(), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectMethod(domain.PaymentMethodUPI), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.SetDetails(validCard), domain.ErrInvalidTransition)
	_, err := c.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = c.SubmitOTP(context.Background(), "123456")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	enterDetails(t, c, domain.PaymentMethodUPI, validUPI)
	assert.ErrorIs(t, c.SetDetails(validCard), domain.ErrValidationFailed)
	assert.Equal(t, validUPI, c.Snapshot().Draft.Details)
}
