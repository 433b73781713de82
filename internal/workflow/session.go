package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// Phase is the coarse position of a session
type Phase string

const (
	PhaseBooking   Phase = "booking"
	PhasePayment   Phase = "payment"
	PhaseCompleted Phase = "completed"
)

// SessionConfig contains the collaborators shared by every controller of a session
type SessionConfig struct {
	Seats   AvailabilitySource
	IDs     IDGenerator
	Gateway SettlementGateway
	Now     func() time.Time
}

// Session is the context object of one booking attempt. It owns the
// booking controller and, once the booking is submitted, the payment
// controller. Callers pass it by reference; nothing is shared between sessions.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	booking  *BookingController
	payment  *PaymentController
	request  *domain.BookingConfirmationRequest
	cfg      SessionConfig
}

// NewSession opens a session for train
func NewSession(id string, train *domain.TrainOffering, class, journeyDate string, cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		cfg = &SessionConfig{}
	}
	c := *cfg
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.IDs == nil {
		c.IDs = RandomIDs{}
	}

	booking, err := NewBookingController(train, class, journeyDate, &BookingControllerConfig{
		Seats: c.Seats,
		IDs:   c.IDs,
	})
	if err != nil {
		return nil, err
	}

	now := c.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		lastSeen:  now,
		booking:   booking,
		cfg:       c,
	}, nil
}

// Touch records activity
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.cfg.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Phase reports which controller is active
func (s *Session) Phase() Phase {
	s.mu.Lock()
	payment := s.payment
	s.mu.Unlock()

	if payment == nil {
		return PhaseBooking
	}
	if payment.Stage() == StageCompleted {
		return PhaseCompleted
	}
	return PhasePayment
}

// Booking returns the booking controller
func (s *Session) Booking() *BookingController {
	return s.booking
}

// Payment returns the payment controller once the booking is submitted
func (s *Session) Payment() (*PaymentController, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payment == nil {
		return nil, stageError("payment", s.booking.Stage())
	}
	return s.payment, nil
}

// Request returns the submitted booking, nil before hand-off
func (s *Session) Request() *domain.BookingConfirmationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// SelectClass switches class on the booking draft, redrawing its seat map
func (s *Session) SelectClass(class string) error {
	return s.booking.SelectClass(class)
}

// SetJourneyDate records the travel date on the booking draft
func (s *Session) SetJourneyDate(date string) error {
	return s.booking.SetJourneyDate(date)
}

// SeatMap returns the held seat snapshot
func (s *Session) SeatMap() *domain.SeatMap {
	return s.booking.SeatMap()
}

// Next advances the booking flow. When the booking is submitted the
// payment controller is opened and the hand-off request returned.
func (s *Session) Next() (*domain.BookingConfirmationRequest, error) {
	req, err := s.booking.Next()
	if err != nil || req == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = req
	s.payment = NewPaymentController(req, &PaymentControllerConfig{
		Gateway: s.cfg.Gateway,
		IDs:     s.cfg.IDs,
		Now:     s.cfg.Now,
	})
	return req, nil
}

// Submit drives the booking flow through to hand-off. It stops at the first
// refused gate and returns its error.
func (s *Session) Submit() (*domain.BookingConfirmationRequest, error) {
	for {
		req, err := s.Next()
		if err != nil {
			return nil, err
		}
		if req != nil {
			return req, nil
		}
	}
}

// Confirm settles the payment; see PaymentController.Confirm
func (s *Session) Confirm(ctx context.Context) (*domain.Confirmation, error) {
	payment, err := s.Payment()
	if err != nil {
		return nil, err
	}
	return payment.Confirm(ctx)
}

// SubmitOTP verifies the OTP; see PaymentController.SubmitOTP
func (s *Session) SubmitOTP(ctx context.Context, otp string) (*domain.Confirmation, error) {
	payment, err := s.Payment()
	if err != nil {
		return nil, err
	}
	return payment.SubmitOTP(ctx, otp)
}
