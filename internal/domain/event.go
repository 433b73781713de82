package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeBookingConfirmed is published once per completed payment
const EventTypeBookingConfirmed = "booking.confirmed"

// ConfirmationEvent is the envelope published to the confirmations topic
type ConfirmationEvent struct {
	EventID      string        `json:"event_id"`
	EventType    string        `json:"event_type"`
	OccurredAt   time.Time     `json:"occurred_at"`
	Confirmation *Confirmation `json:"confirmation"`
}

// NewConfirmationEvent wraps a confirmation in an event envelope
func NewConfirmationEvent(c *Confirmation) *ConfirmationEvent {
	return &ConfirmationEvent{
		EventID:      uuid.New().String(),
		EventType:    EventTypeBookingConfirmed,
		OccurredAt:   time.Now().UTC(),
		Confirmation: c,
	}
}
