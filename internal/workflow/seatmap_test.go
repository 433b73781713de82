package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

func TestGenerateSeatMap_CodesAndBerths(t *testing.T) {
	m, err := GenerateSeatMap("2A", 24, allAvailable)
	require.NoError(t, err)
	require.Len(t, m.Seats, 24)

	assert.Equal(t, "2A", m.Class)
	assert.Equal(t, domain.SeatRecord{Number: 1, Code: "1A", Berth: domain.BerthLower, Available: true}, m.Seats[0])
	assert.Equal(t, "1F", m.Seats[5].Code)
	assert.Equal(t, domain.BerthUpper, m.Seats[5].Berth)
	assert.Equal(t, "2A", m.Seats[6].Code)
	assert.Equal(t, domain.BerthLower, m.Seats[6].Berth)
	assert.Equal(t, domain.BerthMiddle, m.Seats[7].Berth)
	assert.Equal(t, "4F", m.Seats[23].Code)
}

func TestGenerateSeatMap_NoBerthsForChairCar(t *testing.T) {
	for _, class := range []string{"CC", "EC"} {
		m, err := GenerateSeatMap(class, 12, allAvailable)
		require.NoError(t, err)
		for _, s := range m.Seats {
			assert.Equal(t, domain.BerthNone, s.Berth, "class %s seat %d", class, s.Number)
		}
	}
}

func TestHasBerths(t *testing.T) {
	assert.True(t, HasBerths("SL"))
	assert.True(t, HasBerths("1A"))
	assert.True(t, HasBerths("3A"))
	assert.False(t, HasBerths("CC"))
	assert.False(t, HasBerths("EC"))
}

func TestGenerateSeatMap_Availability(t *testing.T) {
	src := &seqSource{draws: []float64{0.1, 0.3, 0.31, 0.99}}
	m, err := GenerateSeatMap("SL", 4, src)
	require.NoError(t, err)

	assert.False(t, m.Seats[0].Available)
	assert.False(t, m.Seats[1].Available)
	assert.True(t, m.Seats[2].Available)
	assert.True(t, m.Seats[3].Available)
	assert.Equal(t, 2, m.AvailableCount())
}

func TestGenerateSeatMap_SeededIsDeterministic(t *testing.T) {
	a, err := GenerateSeatMap("3A", 45, NewSeededSource(42))
	require.NoError(t, err)
	b, err := GenerateSeatMap("3A", 45, NewSeededSource(42))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateSeatMap_RejectsEmptyClass(t *testing.T) {
	_, err := GenerateSeatMap("2A", 0, allAvailable)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestSeatMap_Lookup(t *testing.T) {
	m, err := GenerateSeatMap("2A", 6, allAvailable)
	require.NoError(t, err)

	seat, ok := m.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "1C", seat.Code)

	_, ok = m.Lookup(0)
	assert.False(t, ok)
	_, ok = m.Lookup(7)
	assert.False(t, ok)
}
