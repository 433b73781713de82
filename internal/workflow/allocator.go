package workflow

import (
	"fmt"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// HolderOf returns the index of the passenger holding seat, or -1
func (r *Roster) HolderOf(seat int) int {
	for i, p := range r.entries {
		if p.SeatNumber != nil && *p.SeatNumber == seat {
			return i
		}
	}
	return -1
}

// AssignSeat gives seatNumber from seats to the passenger at index.
//
// The seat must exist in the snapshot and be available, unless the same
// passenger already holds it, in which case nothing changes. Any other
// passenger holding the seat is evicted without error.
func AssignSeat(r *Roster, seats *domain.SeatMap, index, seatNumber int) error {
	p, err := r.entry(index)
	if err != nil {
		return err
	}

	seat, ok := seats.Lookup(seatNumber)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrSeatNotFound, seatNumber)
	}

	holder := r.HolderOf(seatNumber)
	if holder == index {
		return nil
	}
	if !seat.Available {
		return fmt.Errorf("%w: %s", domain.ErrSeatUnavailable, seat.Code)
	}

	if holder >= 0 {
		r.entries[holder].ClearSeat()
	}

	n := seat.Number
	p.SeatNumber = &n
	p.Berth = seat.Berth
	return nil
}
