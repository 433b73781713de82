package workflow

import (
	"fmt"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// Roster bounds
const (
	MinPassengers = 1
	MaxPassengers = 6
)

// PassengerField names an editable passenger field
type PassengerField string

const (
	FieldName        PassengerField = "name"
	FieldAge         PassengerField = "age"
	FieldGender      PassengerField = "gender"
	FieldAgeCategory PassengerField = "age_category"
)

// Roster is the ordered passenger list of a draft. Its length stays in
// [MinPassengers, MaxPassengers]. It is not safe for concurrent use; the
// owning controller serializes access.
type Roster struct {
	entries []domain.PassengerEntry
}

// NewRoster returns a roster holding one blank passenger
func NewRoster() *Roster {
	return &Roster{entries: []domain.PassengerEntry{domain.NewPassengerEntry()}}
}

// Len returns the passenger count
func (r *Roster) Len() int {
	return len(r.entries)
}

// Entries returns a deep copy of the passengers
func (r *Roster) Entries() []domain.PassengerEntry {
	return domain.ClonePassengers(r.entries)
}

func (r *Roster) entry(index int) (*domain.PassengerEntry, error) {
	if index < 0 || index >= len(r.entries) {
		return nil, fmt.Errorf("%w: index %d", domain.ErrPassengerNotFound, index)
	}
	return &r.entries[index], nil
}

// Add appends a blank adult male passenger
func (r *Roster) Add() error {
	if len(r.entries) >= MaxPassengers {
		return fmt.Errorf("%w: you can book a maximum of %d passengers per booking", domain.ErrLimitExceeded, MaxPassengers)
	}
	r.entries = append(r.entries, domain.NewPassengerEntry())
	return nil
}

// Remove drops the passenger at index, releasing its seat
func (r *Roster) Remove(index int) error {
	if _, err := r.entry(index); err != nil {
		return err
	}
	if len(r.entries) <= MinPassengers {
		return domain.ErrInvariantViolation
	}
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	return nil
}

// Update sets one field. An age that parses as an integer re-derives the
// age category, overriding any category chosen earlier.
func (r *Roster) Update(index int, field PassengerField, value string) error {
	p, err := r.entry(index)
	if err != nil {
		return err
	}

	switch field {
	case FieldName:
		p.Name = value
	case FieldAge:
		p.Age = value
		if age, ok := ParseAge(value); ok {
			p.AgeCategory = domain.CategoryForAge(age)
		}
	case FieldGender:
		p.Gender = domain.Gender(value)
	case FieldAgeCategory:
		p.AgeCategory = domain.AgeCategory(value)
	default:
		return domain.NewValidationError(fmt.Sprintf("unknown passenger field %q", field),
			domain.FieldError{Field: "field", Message: "Unknown passenger field"})
	}
	return nil
}

// Validate checks every entry. Field errors are prefixed with the
// passenger index and folded into one aggregated notice.
func (r *Roster) Validate() error {
	var fields []domain.FieldError
	for i, p := range r.entries {
		for _, fe := range ValidatePassenger(p) {
			fields = append(fields, domain.FieldError{
				Field:   fmt.Sprintf("passengers[%d].%s", i, fe.Field),
				Message: fe.Message,
			})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError(NoticePassengerDetails, fields...)
	}
	return nil
}

// ClearSeats drops every seat assignment
func (r *Roster) ClearSeats() {
	for i := range r.entries {
		r.entries[i].ClearSeat()
	}
}

// AllSeated reports whether every passenger holds a seat
func (r *Roster) AllSeated() bool {
	for _, p := range r.entries {
		if !p.HasSeat() {
			return false
		}
	}
	return true
}
