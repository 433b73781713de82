package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/dto"
	"github.com/prohmpiriya/rail-booking/internal/metrics"
	"github.com/prohmpiriya/rail-booking/internal/repository"
	"github.com/prohmpiriya/rail-booking/internal/workflow"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WorkflowService defines the interface for booking session orchestration
type WorkflowService interface {
	// ListTrains returns the catalog
	ListTrains(ctx context.Context) ([]*dto.TrainResponse, error)

	// CreateSession opens a booking session for a train
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)

	// GetSession returns the session view
	GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// AbandonSession discards a session
	AbandonSession(ctx context.Context, sessionID string) error

	// SelectClass switches class and redraws the seat map
	SelectClass(ctx context.Context, sessionID string, req *dto.SelectClassRequest) (*dto.SessionResponse, error)

	// SetJourneyDate changes the travel date
	SetJourneyDate(ctx context.Context, sessionID string, req *dto.JourneyDateRequest) (*dto.SessionResponse, error)

	// AddPassenger appends a blank passenger
	AddPassenger(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// RemovePassenger drops a passenger
	RemovePassenger(ctx context.Context, sessionID string, index int) (*dto.SessionResponse, error)

	// UpdatePassenger edits one passenger field
	UpdatePassenger(ctx context.Context, sessionID string, index int, req *dto.UpdatePassengerRequest) (*dto.SessionResponse, error)

	// GetSeatMap returns the held seat snapshot
	GetSeatMap(ctx context.Context, sessionID string) (*dto.SeatMapResponse, error)

	// AssignSeat seats a passenger
	AssignSeat(ctx context.Context, sessionID string, index int, req *dto.AssignSeatRequest) (*dto.SessionResponse, error)

	// SetTerms records the terms checkbox
	SetTerms(ctx context.Context, sessionID string, req *dto.TermsRequest) (*dto.SessionResponse, error)

	// Next advances the booking flow, handing off to payment from the last stage
	Next(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// Back retreats the booking flow
	Back(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// SelectPaymentMethod chooses the payment instrument
	SelectPaymentMethod(ctx context.Context, sessionID string, req *dto.PaymentMethodRequest) (*dto.SessionResponse, error)

	// SetPaymentDetails records the entry fields of the chosen method
	SetPaymentDetails(ctx context.Context, sessionID string, req *dto.PaymentDetailsRequest) (*dto.SessionResponse, error)

	// PaymentNext advances the payment flow
	PaymentNext(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// PaymentBack retreats the payment flow
	PaymentBack(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// ConfirmPayment settles the payment
	ConfirmPayment(ctx context.Context, sessionID string) (*dto.ConfirmResponse, error)

	// CancelPayment closes the confirm or OTP dialog
	CancelPayment(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// SubmitOTP verifies the OTP challenge
	SubmitOTP(ctx context.Context, sessionID string, req *dto.OTPRequest) (*dto.ConfirmResponse, error)

	// SweepIdle drops sessions idle for longer than the session TTL
	SweepIdle(ctx context.Context) int
}

// WorkflowServiceConfig contains configuration for the workflow service
type WorkflowServiceConfig struct {
	// SessionTTL is how long an untouched session lives
	SessionTTL time.Duration
	// SeatSeed seeds every seat map draw; 0 draws from the clock
	SeatSeed uint64
	IDs      workflow.IDGenerator
	Now      func() time.Time
}

// workflowService implements WorkflowService
type workflowService struct {
	catalog    repository.CatalogRepository
	sessions   repository.SessionRepository
	gateway    workflow.SettlementGateway
	publisher  ConfirmationPublisher
	sessionTTL time.Duration
	seatSeed   uint64
	ids        workflow.IDGenerator
	now        func() time.Time
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	catalog repository.CatalogRepository,
	sessions repository.SessionRepository,
	gateway workflow.SettlementGateway,
	publisher ConfirmationPublisher,
	cfg *WorkflowServiceConfig,
) WorkflowService {
	ttl := 30 * time.Minute
	var seed uint64
	var ids workflow.IDGenerator = workflow.RandomIDs{}
	now := time.Now
	if cfg != nil {
		if cfg.SessionTTL > 0 {
			ttl = cfg.SessionTTL
		}
		seed = cfg.SeatSeed
		if cfg.IDs != nil {
			ids = cfg.IDs
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
	}
	// Use NoOpConfirmationPublisher if none provided
	if publisher == nil {
		publisher = NewNoOpConfirmationPublisher()
	}
	return &workflowService{
		catalog:    catalog,
		sessions:   sessions,
		gateway:    gateway,
		publisher:  publisher,
		sessionTTL: ttl,
		seatSeed:   seed,
		ids:        ids,
		now:        now,
	}
}

func (s *workflowService) seatSource() workflow.AvailabilitySource {
	if s.seatSeed != 0 {
		return workflow.NewSeededSource(s.seatSeed)
	}
	return workflow.NewClockSource()
}

// session loads a live session and records activity on it
func (s *workflowService) session(ctx context.Context, span trace.Span, sessionID string) (*workflow.Session, error) {
	span.SetAttributes(attribute.String("session_id", sessionID))
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "session not found")
		return nil, err
	}
	sess.Touch()
	return sess, nil
}

// fail records a refused operation on the span and in metrics
func (s *workflowService) fail(ctx context.Context, span trace.Span, flow, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if domain.IsValidationError(err) {
		metrics.RecordValidationFailure(ctx, flow, stage)
	}
	return err
}

func (s *workflowService) view(sess *workflow.Session) *dto.SessionResponse {
	return dto.SessionFromDomain(sess, s.sessionTTL)
}

// ListTrains returns the catalog
func (s *workflowService) ListTrains(ctx context.Context) ([]*dto.TrainResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.list_trains")
	defer span.End()

	trains, err := s.catalog.ListTrains(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out := make([]*dto.TrainResponse, len(trains))
	for i, t := range trains {
		out[i] = dto.TrainFromDomain(t)
	}
	return out, nil
}

// CreateSession opens a booking session for a train
func (s *workflowService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.create_session")
	defer span.End()

	if req == nil || req.TrainID == "" {
		span.SetStatus(codes.Error, "invalid train_id")
		return nil, domain.NewValidationError("train_id is required",
			domain.FieldError{Field: "train_id", Message: "Train is required"})
	}
	span.SetAttributes(attribute.String("train_id", req.TrainID))

	train, err := s.catalog.GetTrainByID(ctx, req.TrainID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sess, err := workflow.NewSession(uuid.New().String(), train, req.Class, req.JourneyDate, &workflow.SessionConfig{
		Seats:   s.seatSource(),
		IDs:     s.ids,
		Gateway: s.gateway,
		Now:     s.now,
	})
	if err != nil {
		return nil, s.fail(ctx, span, "booking", "create", err)
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	class := sess.Booking().Snapshot().Draft.SelectedClass
	span.SetAttributes(
		attribute.String("session_id", sess.ID),
		attribute.String("class", class),
	)
	metrics.RecordSessionStarted(ctx, train.ID, class)
	logger.Get().InfoContext(ctx, "booking session opened",
		zap.String("session_id", sess.ID),
		zap.String("train_id", train.ID),
		zap.String("class", class),
	)

	span.SetStatus(codes.Ok, "")
	return s.view(sess), nil
}

// GetSession returns the session view
func (s *workflowService) GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.get_session")
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// AbandonSession discards a session
func (s *workflowService) AbandonSession(ctx context.Context, sessionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.abandon_session")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "session not found")
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	metrics.RecordSessionsClosed(ctx, "abandoned", 1, sess.Phase() == workflow.PhaseCompleted)
	logger.Get().InfoContext(ctx, "booking session discarded",
		zap.String("session_id", sessionID),
		zap.String("phase", string(sess.Phase())),
	)
	return nil
}

// bookingOp runs one booking controller operation and returns the session view
func (s *workflowService) bookingOp(ctx context.Context, spanName, sessionID string, op func(*workflow.BookingController) error) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	booking := sess.Booking()
	stage := booking.Stage()
	span.SetAttributes(attribute.String("stage", string(stage)))

	if err := op(booking); err != nil {
		return nil, s.fail(ctx, span, "booking", string(stage), err)
	}
	return s.view(sess), nil
}

// SelectClass switches class and redraws the seat map
func (s *workflowService) SelectClass(ctx context.Context, sessionID string, req *dto.SelectClassRequest) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.select_class", sessionID, func(b *workflow.BookingController) error {
		return b.SelectClass(req.Class)
	})
}

// SetJourneyDate changes the travel date
func (s *workflowService) SetJourneyDate(ctx context.Context, sessionID string, req *dto.JourneyDateRequest) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.set_journey_date", sessionID, func(b *workflow.BookingController) error {
		return b.SetJourneyDate(req.JourneyDate)
	})
}

// AddPassenger appends a blank passenger
func (s *workflowService) AddPassenger(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.add_passenger", sessionID, func(b *workflow.BookingController) error {
		return b.AddPassenger()
	})
}

// RemovePassenger drops a passenger
func (s *workflowService) RemovePassenger(ctx context.Context, sessionID string, index int) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.remove_passenger", sessionID, func(b *workflow.BookingController) error {
		return b.RemovePassenger(index)
	})
}

// UpdatePassenger edits one passenger field
func (s *workflowService) UpdatePassenger(ctx context.Context, sessionID string, index int, req *dto.UpdatePassengerRequest) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.update_passenger", sessionID, func(b *workflow.BookingController) error {
		return b.UpdatePassenger(index, workflow.PassengerField(req.Field), req.Value)
	})
}

// GetSeatMap returns the held seat snapshot
func (s *workflowService) GetSeatMap(ctx context.Context, sessionID string) (*dto.SeatMapResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.get_seat_map")
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Booking().Snapshot()
	return dto.SeatMapFromDomain(snap.SeatMap, snap.Draft.Passengers), nil
}

// AssignSeat seats a passenger
func (s *workflowService) AssignSeat(ctx context.Context, sessionID string, index int, req *dto.AssignSeatRequest) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.assign_seat", sessionID, func(b *workflow.BookingController) error {
		return b.AssignSeat(index, req.SeatNumber)
	})
}

// SetTerms records the terms checkbox
func (s *workflowService) SetTerms(ctx context.Context, sessionID string, req *dto.TermsRequest) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.set_terms", sessionID, func(b *workflow.BookingController) error {
		return b.SetTermsAccepted(req.Accepted)
	})
}

// Next advances the booking flow, handing off to payment from the last stage
func (s *workflowService) Next(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.next")
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	from := sess.Booking().Stage()
	span.SetAttributes(attribute.String("stage", string(from)))

	req, err := sess.Next()
	if err != nil {
		return nil, s.fail(ctx, span, "booking", string(from), err)
	}

	if req != nil {
		span.SetAttributes(
			attribute.String("booking_id", req.BookingID),
			attribute.Int64("total_payable", req.TotalPayable()),
		)
		metrics.RecordTransition(ctx, "booking", "payment")
		logger.Get().InfoContext(ctx, "booking submitted for payment",
			zap.String("session_id", sessionID),
			zap.String("booking_id", req.BookingID),
			zap.Int("passengers", len(req.Passengers)),
			zap.Int64("total_payable", req.TotalPayable()),
		)
	} else {
		metrics.RecordTransition(ctx, "booking", string(sess.Booking().Stage()))
	}

	span.SetStatus(codes.Ok, "")
	return s.view(sess), nil
}

// Back retreats the booking flow
func (s *workflowService) Back(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.bookingOp(ctx, "service.workflow.back", sessionID, func(b *workflow.BookingController) error {
		if err := b.Back(); err != nil {
			return err
		}
		metrics.RecordTransition(ctx, "booking", string(b.Stage()))
		return nil
	})
}

// paymentOp runs one payment controller operation and returns the session view
func (s *workflowService) paymentOp(ctx context.Context, spanName, sessionID string, op func(*workflow.PaymentController) error) (*dto.SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	payment, err := sess.Payment()
	if err != nil {
		return nil, s.fail(ctx, span, "payment", string(sess.Phase()), err)
	}
	stage := payment.Stage()
	span.SetAttributes(attribute.String("stage", string(stage)))

	if err := op(payment); err != nil {
		return nil, s.fail(ctx, span, "payment", string(stage), err)
	}
	if to := payment.Stage(); to != stage {
		metrics.RecordTransition(ctx, "payment", string(to))
	}
	return s.view(sess), nil
}

// SelectPaymentMethod chooses the payment instrument
func (s *workflowService) SelectPaymentMethod(ctx context.Context, sessionID string, req *dto.PaymentMethodRequest) (*dto.SessionResponse, error) {
	return s.paymentOp(ctx, "service.workflow.select_payment_method", sessionID, func(p *workflow.PaymentController) error {
		return p.SelectMethod(domain.PaymentMethod(req.Method))
	})
}

// SetPaymentDetails records the entry fields of the chosen method
func (s *workflowService) SetPaymentDetails(ctx context.Context, sessionID string, req *dto.PaymentDetailsRequest) (*dto.SessionResponse, error) {
	return s.paymentOp(ctx, "service.workflow.set_payment_details", sessionID, func(p *workflow.PaymentController) error {
		details, err := req.ToDetails()
		if err != nil {
			return err
		}
		return p.SetDetails(details)
	})
}

// PaymentNext advances the payment flow
func (s *workflowService) PaymentNext(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.paymentOp(ctx, "service.workflow.payment_next", sessionID, func(p *workflow.PaymentController) error {
		return p.Next()
	})
}

// PaymentBack retreats the payment flow
func (s *workflowService) PaymentBack(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.paymentOp(ctx, "service.workflow.payment_back", sessionID, func(p *workflow.PaymentController) error {
		return p.Back()
	})
}

// CancelPayment closes the confirm or OTP dialog
func (s *workflowService) CancelPayment(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.paymentOp(ctx, "service.workflow.cancel_payment", sessionID, func(p *workflow.PaymentController) error {
		return p.Cancel()
	})
}

// ConfirmPayment settles the payment
func (s *workflowService) ConfirmPayment(ctx context.Context, sessionID string) (*dto.ConfirmResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.confirm_payment")
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	payment, err := sess.Payment()
	if err != nil {
		return nil, s.fail(ctx, span, "payment", string(sess.Phase()), err)
	}
	method := string(payment.Snapshot().Draft.Method)
	span.SetAttributes(attribute.String("method", method))

	start := time.Now()
	confirmation, err := payment.Confirm(ctx)
	elapsed := time.Since(start).Seconds()

	switch {
	case errors.Is(err, domain.ErrPaymentRejected):
		metrics.RecordSettlement(ctx, method, "rejected", elapsed)
		logger.Get().WarnContext(ctx, "settlement rejected",
			zap.String("session_id", sessionID),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, s.fail(ctx, span, "payment", string(workflow.StageConfirmDialog), err)
	case err != nil:
		return nil, s.fail(ctx, span, "payment", string(payment.Stage()), err)
	case confirmation == nil:
		metrics.RecordSettlement(ctx, method, "requires_otp", elapsed)
		metrics.RecordTransition(ctx, "payment", string(workflow.StageOtpDialog))
		span.SetStatus(codes.Ok, "")
		return &dto.ConfirmResponse{Stage: string(payment.Stage()), RequiresOTP: true}, nil
	}

	metrics.RecordSettlement(ctx, method, "settled", elapsed)
	s.completed(ctx, sess, confirmation)
	span.SetStatus(codes.Ok, "")
	return &dto.ConfirmResponse{
		Stage:        string(workflow.StageCompleted),
		Confirmation: dto.ConfirmationFromDomain(confirmation),
	}, nil
}

// SubmitOTP verifies the OTP challenge
func (s *workflowService) SubmitOTP(ctx context.Context, sessionID string, req *dto.OTPRequest) (*dto.ConfirmResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.submit_otp")
	defer span.End()

	sess, err := s.session(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	payment, err := sess.Payment()
	if err != nil {
		return nil, s.fail(ctx, span, "payment", string(sess.Phase()), err)
	}
	method := string(payment.Snapshot().Draft.Method)
	span.SetAttributes(attribute.String("method", method))

	start := time.Now()
	confirmation, err := payment.SubmitOTP(ctx, req.OTP)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) && verr.Notice == workflow.NoticeOTP {
			// malformed input never reaches the gateway
			metrics.RecordOTPVerification(ctx, method, "invalid", 0)
		} else if errors.Is(err, domain.ErrPaymentRejected) {
			metrics.RecordOTPVerification(ctx, method, "failed", elapsed)
		}
		return nil, s.fail(ctx, span, "payment", string(workflow.StageOtpDialog), err)
	}

	metrics.RecordOTPVerification(ctx, method, "verified", elapsed)
	s.completed(ctx, sess, confirmation)
	span.SetStatus(codes.Ok, "")
	return &dto.ConfirmResponse{
		Stage:        string(workflow.StageCompleted),
		Confirmation: dto.ConfirmationFromDomain(confirmation),
	}, nil
}

// completed discards the session and hands the confirmation to the
// renderer. A failed hand-off is logged and never undoes the payment.
func (s *workflowService) completed(ctx context.Context, sess *workflow.Session, c *domain.Confirmation) {
	metrics.RecordTransition(ctx, "payment", string(workflow.StageCompleted))
	metrics.RecordSessionCompleted(ctx, string(c.Method), c.ConfirmedAt.Sub(sess.CreatedAt).Seconds())

	// an abandon racing the final step may have removed it already
	if err := s.sessions.Delete(ctx, sess.ID); err == nil {
		metrics.RecordSessionsClosed(ctx, "completed", 1, true)
	}

	log := logger.Get()
	log.InfoContext(ctx, "booking confirmed",
		zap.String("session_id", sess.ID),
		zap.String("booking_id", c.BookingID),
		zap.String("pnr", c.PNR),
		zap.String("payment_id", c.PaymentID),
		zap.Int64("amount", c.Amount),
	)

	if err := s.publisher.PublishConfirmation(context.WithoutCancel(ctx), c); err != nil {
		metrics.RecordConfirmationPublished(ctx, "failed")
		metrics.RecordError(ctx, "publish_failed", "confirmation")
		log.ErrorContext(ctx, "failed to publish confirmation",
			zap.String("booking_id", c.BookingID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordConfirmationPublished(ctx, "published")
}

// SweepIdle drops sessions idle for longer than the session TTL
func (s *workflowService) SweepIdle(ctx context.Context) int {
	ctx, span := telemetry.StartSpan(ctx, "service.workflow.sweep_idle")
	defer span.End()

	removed := s.sessions.DeleteIdle(ctx, s.now().Add(-s.sessionTTL))
	if len(removed) == 0 {
		return 0
	}

	var completed, abandoned int64
	for _, sess := range removed {
		if sess.Phase() == workflow.PhaseCompleted {
			completed++
		} else {
			abandoned++
		}
	}
	if completed > 0 {
		metrics.RecordSessionsClosed(ctx, "expired", completed, true)
	}
	if abandoned > 0 {
		metrics.RecordSessionsClosed(ctx, "expired", abandoned, false)
	}

	span.SetAttributes(
		attribute.Int64("completed", completed),
		attribute.Int64("abandoned", abandoned),
	)
	logger.Get().InfoContext(ctx, "idle sessions swept",
		zap.Int64("completed", completed),
		zap.Int64("abandoned", abandoned),
	)
	return len(removed)
}
