package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// SettlementGateway settles payments and verifies OTP challenges
type SettlementGateway interface {
	Settle(ctx context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error)
	VerifyOTP(ctx context.Context, req *domain.OTPVerification) error
}

// PaymentControllerConfig contains collaborators for a payment controller
type PaymentControllerConfig struct {
	Gateway SettlementGateway
	IDs     IDGenerator
	Now     func() time.Time
}

// PaymentSnapshot is a consistent read of the payment state
type PaymentSnapshot struct {
	Stage        PaymentStage
	BookingID    string
	Amount       int64
	Draft        domain.PaymentDraft
	FieldErrors  map[string]string
	Confirmation *domain.Confirmation
}

// PaymentController drives ReviewBooking -> SelectMethod ->
// EnterPaymentDetails -> ConfirmDialog -> Processing -> [OtpDialog] -> Completed.
//
// While Processing every call fails with ErrBusy. Gateway calls run on a
// context detached from the caller, so a confirmed payment is never
// abandoned mid-flight. Completed is terminal.
type PaymentController struct {
	mu sync.Mutex

	stage        PaymentStage
	request      *domain.BookingConfirmationRequest
	draft        domain.PaymentDraft
	fieldErrors  map[string]string
	settlement   *domain.SettlementResult
	confirmation *domain.Confirmation

	gateway SettlementGateway
	ids     IDGenerator
	now     func() time.Time
}

// NewPaymentController opens the payment step for a submitted booking
func NewPaymentController(req *domain.BookingConfirmationRequest, cfg *PaymentControllerConfig) *PaymentController {
	if cfg == nil {
		cfg = &PaymentControllerConfig{}
	}
	ids := cfg.IDs
	if ids == nil {
		ids = RandomIDs{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &PaymentController{
		stage:   StageReviewBooking,
		request: req,
		draft: domain.PaymentDraft{
			Method:  domain.PaymentMethodCard,
			Details: domain.EmptyDetails(domain.PaymentMethodCard),
		},
		fieldErrors: map[string]string{},
		gateway:     cfg.Gateway,
		ids:         ids,
		now:         now,
	}
}

func (c *PaymentController) guard() error {
	switch c.stage {
	case StageProcessing:
		return domain.ErrBusy
	case StageCompleted:
		return domain.ErrWorkflowClosed
	}
	return nil
}

func (c *PaymentController) ensureStage(op string, allowed ...PaymentStage) error {
	if err := c.guard(); err != nil {
		return err
	}
	for _, s := range allowed {
		if c.stage == s {
			return nil
		}
	}
	return stageError(op, c.stage)
}

func (c *PaymentController) moveTo(to PaymentStage) error {
	if err := validateTransition(paymentTransitions, c.stage, to); err != nil {
		return err
	}
	c.stage = to
	return nil
}

// Stage returns the current stage
func (c *PaymentController) Stage() PaymentStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Snapshot returns a copy of the payment state
func (c *PaymentController) Snapshot() PaymentSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		errs[k] = v
	}
	return PaymentSnapshot{
		Stage:        c.stage,
		BookingID:    c.request.BookingID,
		Amount:       c.request.TotalPayable(),
		Draft:        c.draft,
		FieldErrors:  errs,
		Confirmation: c.confirmation,
	}
}

// Next advances ReviewBooking and SelectMethod unconditionally and opens
// the confirm dialog once the entered details validate.
func (c *PaymentController) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("next", StageReviewBooking, StageSelectMethod, StageEnterPaymentDetails); err != nil {
		return err
	}

	switch c.stage {
	case StageReviewBooking:
		return c.moveTo(StageSelectMethod)
	case StageSelectMethod:
		return c.moveTo(StageEnterPaymentDetails)
	default:
		fields := ValidatePaymentDetails(c.draft.Details)
		if len(fields) > 0 {
			for _, f := range fields {
				c.fieldErrors[f.Field] = f.Message
			}
			return &domain.ValidationError{Kind: domain.ErrPaymentRejected, Notice: NoticePaymentDetails, Fields: fields}
		}
		clear(c.fieldErrors)
		return c.moveTo(StageConfirmDialog)
	}
}

// Back retreats from SelectMethod or EnterPaymentDetails
func (c *PaymentController) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("back", StageSelectMethod, StageEnterPaymentDetails); err != nil {
		return err
	}
	if c.stage == StageSelectMethod {
		return c.moveTo(StageReviewBooking)
	}
	return c.moveTo(StageSelectMethod)
}

// SelectMethod chooses the payment method. Switching methods discards
// details entered for the previous one.
func (c *PaymentController) SelectMethod(m domain.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("select method", StageSelectMethod); err != nil {
		return err
	}
	if !m.Valid() {
		return domain.NewValidationError("Please select a payment method",
			domain.FieldError{Field: "method", Message: "Unsupported payment method"})
	}
	if m != c.draft.Method {
		c.draft = domain.PaymentDraft{Method: m, Details: domain.EmptyDetails(m)}
		clear(c.fieldErrors)
	}
	return nil
}

// SetDetails replaces the entered details. Errors on edited fields are cleared.
func (c *PaymentController) SetDetails(d domain.PaymentDetails) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("enter details", StageEnterPaymentDetails); err != nil {
		return err
	}
	if d == nil || d.Method() != c.draft.Method {
		return domain.NewValidationError("Payment details do not match the selected method",
			domain.FieldError{Field: "method", Message: "Details must match " + string(c.draft.Method)})
	}

	prev := c.draft.Details.Fields()
	for field, value := range d.Fields() {
		if prev[field] != value {
			delete(c.fieldErrors, field)
		}
	}
	c.draft.Details = d
	return nil
}

// Cancel dismisses the confirm or OTP dialog and returns to detail entry.
// Nothing is committed before Completed, so there is nothing to undo.
func (c *PaymentController) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("cancel", StageConfirmDialog, StageOtpDialog); err != nil {
		return err
	}
	c.settlement = nil
	c.draft.OTP = ""
	delete(c.fieldErrors, "otp")
	return c.moveTo(StageEnterPaymentDetails)
}

// Confirm accepts the confirm dialog and settles the payment. UPI payments
// complete immediately and return the confirmation; card and net banking
// stop at the OTP dialog and return nil.
func (c *PaymentController) Confirm(ctx context.Context) (*domain.Confirmation, error) {
	c.mu.Lock()
	if err := c.ensureStage("confirm", StageConfirmDialog); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.moveTo(StageProcessing); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	req := &domain.SettlementRequest{
		BookingID: c.request.BookingID,
		Method:    c.draft.Method,
		Amount:    c.request.TotalPayable(),
	}
	c.mu.Unlock()

	result, err := c.settle(context.WithoutCancel(ctx), req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stage = StageEnterPaymentDetails
		return nil, &domain.ValidationError{Kind: domain.ErrPaymentRejected, Notice: "Payment declined: " + err.Error()}
	}
	c.settlement = result

	if req.Method.RequiresOTP() {
		return nil, c.moveTo(StageOtpDialog)
	}
	return c.complete()
}

func (c *PaymentController) settle(ctx context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error) {
	if c.gateway == nil {
		return &domain.SettlementResult{}, nil
	}
	return c.gateway.Settle(ctx, req)
}

// SubmitOTP verifies the one-time password. A malformed OTP keeps the
// dialog open with a field error and the settlement is not repeated.
func (c *PaymentController) SubmitOTP(ctx context.Context, otp string) (*domain.Confirmation, error) {
	c.mu.Lock()
	if err := c.ensureStage("submit otp", StageOtpDialog); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if fields := ValidateOTP(otp); len(fields) > 0 {
		c.fieldErrors["otp"] = fields[0].Message
		c.mu.Unlock()
		return nil, &domain.ValidationError{Kind: domain.ErrPaymentRejected, Notice: NoticeOTP, Fields: fields}
	}
	c.draft.OTP = otp
	delete(c.fieldErrors, "otp")
	if err := c.moveTo(StageProcessing); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	verification := &domain.OTPVerification{
		BookingID: c.request.BookingID,
		OTP:       otp,
	}
	if c.settlement != nil {
		verification.Reference = c.settlement.Reference
	}
	c.mu.Unlock()

	var err error
	if c.gateway != nil {
		err = c.gateway.VerifyOTP(context.WithoutCancel(ctx), verification)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stage = StageOtpDialog
		c.fieldErrors["otp"] = "OTP verification failed"
		return nil, &domain.ValidationError{
			Kind:   domain.ErrPaymentRejected,
			Notice: "OTP verification failed",
			Fields: []domain.FieldError{{Field: "otp", Message: "OTP verification failed"}},
		}
	}
	return c.complete()
}

func (c *PaymentController) complete() (*domain.Confirmation, error) {
	if err := c.moveTo(StageCompleted); err != nil {
		return nil, err
	}
	c.confirmation = &domain.Confirmation{
		BookingID:     c.request.BookingID,
		PNR:           c.ids.PNR(),
		PaymentID:     c.ids.PaymentID(),
		Method:        c.draft.Method,
		Amount:        c.request.TotalPayable(),
		Train:         c.request.Train,
		SelectedClass: c.request.SelectedClass,
		JourneyDate:   c.request.JourneyDate,
		Passengers:    domain.ClonePassengers(c.request.Passengers),
		Fare:          c.request.Fare,
		ConfirmedAt:   c.now().UTC(),
	}
	return c.confirmation, nil
}
