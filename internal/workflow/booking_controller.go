package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// JourneyDateLayout is the accepted journey date format
const JourneyDateLayout = "2006-01-02"

// BookingControllerConfig contains collaborators for a booking controller
type BookingControllerConfig struct {
	// Seats drives seat availability draws; defaults to a clock-seeded source
	Seats AvailabilitySource
	// IDs issues the booking id at hand-off; defaults to RandomIDs
	IDs IDGenerator
}

// BookingSnapshot is a consistent read of the controller state
type BookingSnapshot struct {
	Stage         BookingStage
	Draft         domain.BookingDraft
	SeatMap       *domain.SeatMap
	TermsAccepted bool
	Submitted     bool
	Fare          domain.FareSummary
}

// BookingController drives PassengerDetails -> SeatSelection -> ReviewAndPay.
// Each call makes at most one stage move; a refused move leaves state unchanged.
type BookingController struct {
	mu sync.Mutex

	stage         BookingStage
	train         *domain.TrainOffering
	class         string
	journeyDate   string
	roster        *Roster
	seatMap       *domain.SeatMap
	termsAccepted bool
	submitted     bool

	seats AvailabilitySource
	ids   IDGenerator
}

// NewBookingController opens a draft for train. An empty class selects the
// train's first class.
func NewBookingController(train *domain.TrainOffering, class, journeyDate string, cfg *BookingControllerConfig) (*BookingController, error) {
	if train == nil {
		return nil, domain.ErrTrainNotFound
	}
	if cfg == nil {
		cfg = &BookingControllerConfig{}
	}
	seats := cfg.Seats
	if seats == nil {
		seats = NewClockSource()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = RandomIDs{}
	}

	c := &BookingController{
		stage:  StagePassengerDetails,
		train:  train,
		roster: NewRoster(),
		seats:  seats,
		ids:    ids,
	}

	if journeyDate != "" {
		if err := validateJourneyDate(journeyDate); err != nil {
			return nil, err
		}
		c.journeyDate = journeyDate
	}

	if class == "" {
		class = train.DefaultClass()
	}
	if err := c.selectClass(class); err != nil {
		return nil, err
	}
	return c, nil
}

func validateJourneyDate(date string) error {
	if _, err := time.Parse(JourneyDateLayout, date); err != nil {
		return domain.NewValidationError("Invalid journey date",
			domain.FieldError{Field: "journey_date", Message: "Use YYYY-MM-DD format"})
	}
	return nil
}

func (c *BookingController) ensureOpen() error {
	if c.submitted {
		return domain.ErrWorkflowClosed
	}
	return nil
}

func (c *BookingController) ensureStage(op string, allowed ...BookingStage) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	for _, s := range allowed {
		if c.stage == s {
			return nil
		}
	}
	return stageError(op, c.stage)
}

// Stage returns the current stage
func (c *BookingController) Stage() BookingStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Snapshot returns a deep copy of the draft with its derived fare
func (c *BookingController) Snapshot() BookingSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	passengers := c.roster.Entries()
	fare, _ := CalculateFare(c.train, c.class, passengers)
	return BookingSnapshot{
		Stage: c.stage,
		Draft: domain.BookingDraft{
			Train:         c.train,
			SelectedClass: c.class,
			JourneyDate:   c.journeyDate,
			Passengers:    passengers,
		},
		SeatMap:       c.seatMap,
		TermsAccepted: c.termsAccepted,
		Submitted:     c.submitted,
		Fare:          fare,
	}
}

// SeatMap returns the seat snapshot taken at the last class selection
func (c *BookingController) SeatMap() *domain.SeatMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seatMap
}

// Fare derives the fare from the current draft
func (c *BookingController) Fare() (domain.FareSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CalculateFare(c.train, c.class, c.roster.entries)
}

// SelectClass switches the travel class. Every selection draws a fresh
// seat map and releases all seat assignments.
func (c *BookingController) SelectClass(class string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("select class", StagePassengerDetails, StageSeatSelection); err != nil {
		return err
	}
	return c.selectClass(class)
}

func (c *BookingController) selectClass(class string) error {
	if !c.train.Offers(class) {
		return fmt.Errorf("%w: %s", domain.ErrClassNotOffered, class)
	}
	seatMap, err := GenerateSeatMap(class, c.train.SeatCount(class), c.seats)
	if err != nil {
		return err
	}
	c.class = class
	c.seatMap = seatMap
	c.roster.ClearSeats()
	return nil
}

// SetJourneyDate records the travel date
func (c *BookingController) SetJourneyDate(date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("set journey date", StagePassengerDetails, StageSeatSelection); err != nil {
		return err
	}
	if err := validateJourneyDate(date); err != nil {
		return err
	}
	c.journeyDate = date
	return nil
}

// AddPassenger appends a blank passenger
func (c *BookingController) AddPassenger() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("add passenger", StagePassengerDetails); err != nil {
		return err
	}
	return c.roster.Add()
}

// RemovePassenger drops the passenger at index
func (c *BookingController) RemovePassenger(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("remove passenger", StagePassengerDetails); err != nil {
		return err
	}
	return c.roster.Remove(index)
}

// UpdatePassenger edits one passenger field
func (c *BookingController) UpdatePassenger(index int, field PassengerField, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("update passenger", StagePassengerDetails); err != nil {
		return err
	}
	return c.roster.Update(index, field, value)
}

// AssignSeat gives a seat from the current snapshot to a passenger
func (c *BookingController) AssignSeat(index, seatNumber int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("assign seat", StageSeatSelection); err != nil {
		return err
	}
	return AssignSeat(c.roster, c.seatMap, index, seatNumber)
}

// SetTermsAccepted records the terms checkbox
func (c *BookingController) SetTermsAccepted(accepted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStage("accept terms", StageReviewAndPay); err != nil {
		return err
	}
	c.termsAccepted = accepted
	return nil
}

// Next advances one stage when the current stage's gate holds. From
// ReviewAndPay it submits the draft and returns the hand-off request; the
// controller is inert afterwards.
func (c *BookingController) Next() (*domain.BookingConfirmationRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	if err := c.gate(); err != nil {
		return nil, err
	}

	if c.stage == StageReviewAndPay {
		return c.submit()
	}

	to := bookingForward[c.stage]
	if err := validateTransition(bookingTransitions, c.stage, to); err != nil {
		return nil, err
	}
	c.stage = to
	return nil, nil
}

// gate is the validation predicate of the current stage
func (c *BookingController) gate() error {
	switch c.stage {
	case StagePassengerDetails:
		return c.roster.Validate()
	case StageSeatSelection:
		if !c.roster.AllSeated() {
			var fields []domain.FieldError
			for i, p := range c.roster.entries {
				if !p.HasSeat() {
					fields = append(fields, domain.FieldError{
						Field:   fmt.Sprintf("passengers[%d].seat_number", i),
						Message: "Seat is required",
					})
				}
			}
			return domain.NewValidationError(NoticeSeatSelection, fields...)
		}
		return nil
	case StageReviewAndPay:
		if !c.termsAccepted {
			return domain.NewValidationError(NoticeTerms,
				domain.FieldError{Field: "terms_accepted", Message: "Terms must be accepted"})
		}
		return nil
	}
	return stageError("next", c.stage)
}

func (c *BookingController) submit() (*domain.BookingConfirmationRequest, error) {
	passengers := c.roster.Entries()
	fare, err := CalculateFare(c.train, c.class, passengers)
	if err != nil {
		return nil, err
	}

	req := &domain.BookingConfirmationRequest{
		BookingID:     c.ids.BookingID(),
		Train:         *c.train,
		SelectedClass: c.class,
		JourneyDate:   c.journeyDate,
		Passengers:    passengers,
		Fare:          fare,
	}
	c.submitted = true
	return req, nil
}

// Back retreats one stage without validation
func (c *BookingController) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return err
	}
	to, ok := bookingBackward[c.stage]
	if !ok {
		return stageError("back", c.stage)
	}
	if err := validateTransition(bookingTransitions, c.stage, to); err != nil {
		return err
	}
	c.stage = to
	return nil
}
