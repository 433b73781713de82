package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

func rosterOf(t *testing.T, n int) *Roster {
	t.Helper()
	r := NewRoster()
	for r.Len() < n {
		require.NoError(t, r.Add())
	}
	return r
}

func assertSeatsExclusive(t *testing.T, r *Roster) {
	t.Helper()
	held := map[int]int{}
	for i, p := range r.Entries() {
		if p.SeatNumber == nil {
			continue
		}
		prev, dup := held[*p.SeatNumber]
		assert.False(t, dup, "seat %d held by %d and %d", *p.SeatNumber, prev, i)
		held[*p.SeatNumber] = i
	}
}

func TestAssignSeat_EvictsOtherHolder(t *testing.T) {
	seats, err := GenerateSeatMap("2A", 24, allAvailable)
	require.NoError(t, err)
	r := rosterOf(t, 2)

	require.NoError(t, AssignSeat(r, seats, 0, 5))
	require.NoError(t, AssignSeat(r, seats, 1, 5))

	entries := r.Entries()
	assert.Nil(t, entries[0].SeatNumber)
	assert.Equal(t, domain.BerthNone, entries[0].Berth)
	require.NotNil(t, entries[1].SeatNumber)
	assert.Equal(t, 5, *entries[1].SeatNumber)
	assert.Equal(t, domain.BerthMiddle, entries[1].Berth)
}

func TestAssignSeat_ReselectIsIdempotent(t *testing.T) {
	seats, err := GenerateSeatMap("SL", 12, allAvailable)
	require.NoError(t, err)
	r := rosterOf(t, 2)

	require.NoError(t, AssignSeat(r, seats, 0, 3))
	first := r.Entries()
	require.NoError(t, AssignSeat(r, seats, 0, 3))

	assert.Equal(t, first, r.Entries())
}

func TestAssignSeat_MovesPassengerToNewSeat(t *testing.T) {
	seats, err := GenerateSeatMap("SL", 12, allAvailable)
	require.NoError(t, err)
	r := rosterOf(t, 1)

	require.NoError(t, AssignSeat(r, seats, 0, 3))
	require.NoError(t, AssignSeat(r, seats, 0, 4))

	assert.Equal(t, 4, *r.Entries()[0].SeatNumber)
	assert.Equal(t, -1, r.HolderOf(3))
}

func TestAssignSeat_Errors(t *testing.T) {
	// Seat 2 is drawn unavailable
	seats, err := GenerateSeatMap("2A", 6, &seqSource{draws: []float64{0.9, 0.1, 0.9}})
	require.NoError(t, err)
	r := rosterOf(t, 1)

	err = AssignSeat(r, seats, 0, 99)
	assert.ErrorIs(t, err, domain.ErrSeatNotFound)

	err = AssignSeat(r, seats, 0, 2)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	err = AssignSeat(r, seats, 4, 1)
	assert.ErrorIs(t, err, domain.ErrPassengerNotFound)

	assert.Nil(t, r.Entries()[0].SeatNumber)
}

func TestAssignSeat_NoSeatHeldTwice(t *testing.T) {
	seats, err := GenerateSeatMap("3A", 45, NewSeededSource(7))
	require.NoError(t, err)
	r := rosterOf(t, MaxPassengers)

	draw := NewSeededSource(99)
	for i := 0; i < 500; i++ {
		idx := draw.IntN(MaxPassengers)
		seat := 1 + draw.IntN(12)
		_ = AssignSeat(r, seats, idx, seat)
		assertSeatsExclusive(t, r)
	}
}
