package dto

import (
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/workflow"
)

// CreateSessionRequest represents request to open a booking session
type CreateSessionRequest struct {
	TrainID     string `json:"train_id" binding:"required"`
	Class       string `json:"class,omitempty"`
	JourneyDate string `json:"journey_date,omitempty"`
}

// SelectClassRequest represents request to change the travel class
type SelectClassRequest struct {
	Class string `json:"class" binding:"required"`
}

// JourneyDateRequest represents request to change the travel date
type JourneyDateRequest struct {
	JourneyDate string `json:"journey_date" binding:"required"`
}

// UpdatePassengerRequest represents a single passenger field edit
type UpdatePassengerRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// AssignSeatRequest represents request to seat a passenger
type AssignSeatRequest struct {
	SeatNumber int `json:"seat_number" binding:"required"`
}

// TermsRequest represents the terms checkbox
type TermsRequest struct {
	Accepted bool `json:"accepted"`
}

// TrainResponse represents a catalog entry in API response
type TrainResponse struct {
	ID            string           `json:"id"`
	TrainNumber   string           `json:"train_number"`
	Name          string           `json:"name"`
	Source        string           `json:"source"`
	Destination   string           `json:"destination"`
	DepartureTime string           `json:"departure_time"`
	ArrivalTime   string           `json:"arrival_time"`
	Duration      string           `json:"duration"`
	RunsOn        []string         `json:"runs_on"`
	Classes       []string         `json:"classes"`
	PriceByClass  map[string]int64 `json:"price_by_class"`
}

// PassengerResponse represents one roster entry
type PassengerResponse struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	AgeCategory string `json:"age_category"`
	SeatNumber  *int   `json:"seat_number"`
	Berth       string `json:"berth,omitempty"`
}

// FareResponse represents the derived fare
type FareResponse struct {
	TotalBaseFare  int64 `json:"total_base_fare"`
	DiscountedFare int64 `json:"discounted_fare"`
	GSTAmount      int64 `json:"gst_amount"`
	TotalPayable   int64 `json:"total_payable"`
}

// SeatSummary condenses the seat map for the session view
type SeatSummary struct {
	Class     string `json:"class"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Assigned  int    `json:"assigned"`
}

// SessionResponse is the full session view
type SessionResponse struct {
	ID            string              `json:"id"`
	Phase         string              `json:"phase"`
	Stage         string              `json:"stage"`
	BookingID     string              `json:"booking_id,omitempty"`
	Train         *TrainResponse      `json:"train"`
	SelectedClass string              `json:"selected_class"`
	JourneyDate   string              `json:"journey_date"`
	Passengers    []PassengerResponse `json:"passengers"`
	Seats         SeatSummary         `json:"seats"`
	TermsAccepted bool                `json:"terms_accepted"`
	Fare          FareResponse        `json:"fare"`
	Payment       *PaymentResponse    `json:"payment,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// SeatResponse is one seat of the held snapshot
type SeatResponse struct {
	Number    int    `json:"number"`
	Code      string `json:"code"`
	Berth     string `json:"berth,omitempty"`
	Available bool   `json:"available"`
	// HeldBy is the roster index seated here, if any
	HeldBy *int `json:"held_by,omitempty"`
}

// SeatMapResponse is the full seat map of the selected class
type SeatMapResponse struct {
	Class string         `json:"class"`
	Seats []SeatResponse `json:"seats"`
}

// TrainFromDomain converts a catalog entry
func TrainFromDomain(t *domain.TrainOffering) *TrainResponse {
	if t == nil {
		return nil
	}
	return &TrainResponse{
		ID:            t.ID,
		TrainNumber:   t.TrainNumber,
		Name:          t.Name,
		Source:        t.Source,
		Destination:   t.Destination,
		DepartureTime: t.DepartureTime,
		ArrivalTime:   t.ArrivalTime,
		Duration:      t.Duration,
		RunsOn:        t.RunsOn,
		Classes:       t.Classes,
		PriceByClass:  t.PriceByClass,
	}
}

// PassengersFromDomain converts roster entries, keeping their indices
func PassengersFromDomain(entries []domain.PassengerEntry) []PassengerResponse {
	out := make([]PassengerResponse, len(entries))
	for i, p := range entries {
		out[i] = PassengerResponse{
			Index:       i,
			Name:        p.Name,
			Age:         p.Age,
			Gender:      string(p.Gender),
			AgeCategory: string(p.AgeCategory),
			SeatNumber:  p.SeatNumber,
			Berth:       string(p.Berth),
		}
	}
	return out
}

// FareFromDomain converts a fare summary
func FareFromDomain(f domain.FareSummary) FareResponse {
	return FareResponse{
		TotalBaseFare:  f.TotalBaseFare,
		DiscountedFare: f.DiscountedFare,
		GSTAmount:      f.GSTAmount,
		TotalPayable:   f.TotalPayable,
	}
}

func holders(passengers []domain.PassengerEntry) map[int]int {
	m := make(map[int]int, len(passengers))
	for i, p := range passengers {
		if p.SeatNumber != nil {
			m[*p.SeatNumber] = i
		}
	}
	return m
}

// SeatMapFromDomain converts the seat snapshot, marking held seats
func SeatMapFromDomain(m *domain.SeatMap, passengers []domain.PassengerEntry) *SeatMapResponse {
	if m == nil {
		return &SeatMapResponse{Seats: []SeatResponse{}}
	}
	held := holders(passengers)
	seats := make([]SeatResponse, len(m.Seats))
	for i, s := range m.Seats {
		seats[i] = SeatResponse{
			Number:    s.Number,
			Code:      s.Code,
			Berth:     string(s.Berth),
			Available: s.Available,
		}
		if idx, ok := held[s.Number]; ok {
			holder := idx
			seats[i].HeldBy = &holder
		}
	}
	return &SeatMapResponse{Class: m.Class, Seats: seats}
}

// SessionFromDomain builds the session view
func SessionFromDomain(s *workflow.Session, ttl time.Duration) *SessionResponse {
	snap := s.Booking().Snapshot()

	assigned := 0
	for _, p := range snap.Draft.Passengers {
		if p.SeatNumber != nil {
			assigned++
		}
	}
	seats := SeatSummary{Class: snap.Draft.SelectedClass, Assigned: assigned}
	if snap.SeatMap != nil {
		seats.Total = len(snap.SeatMap.Seats)
		seats.Available = snap.SeatMap.AvailableCount()
	}

	resp := &SessionResponse{
		ID:            s.ID,
		Phase:         string(s.Phase()),
		Stage:         string(snap.Stage),
		Train:         TrainFromDomain(snap.Draft.Train),
		SelectedClass: snap.Draft.SelectedClass,
		JourneyDate:   snap.Draft.JourneyDate,
		Passengers:    PassengersFromDomain(snap.Draft.Passengers),
		Seats:         seats,
		TermsAccepted: snap.TermsAccepted,
		Fare:          FareFromDomain(snap.Fare),
		CreatedAt:     s.CreatedAt,
		ExpiresAt:     s.LastSeen().Add(ttl),
	}

	if payment, err := s.Payment(); err == nil {
		p := PaymentFromDomain(payment.Snapshot())
		resp.Payment = p
		resp.Stage = p.Stage
		resp.BookingID = p.BookingID
	}
	return resp
}
