package workflow

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

const (
	// SeatsPerRow is the coach row width
	SeatsPerRow = 6
	// unavailableBelow is the draw threshold; roughly 70% of seats come out available
	unavailableBelow = 0.3
)

var (
	seatLetters = [SeatsPerRow]string{"A", "B", "C", "D", "E", "F"}
	berthCycle  = [3]domain.Berth{domain.BerthLower, domain.BerthMiddle, domain.BerthUpper}
)

// AvailabilitySource supplies the uniform draws in [0,1) used for seat availability.
// *rand.Rand satisfies it.
type AvailabilitySource interface {
	Float64() float64
}

// NewSeededSource returns a deterministic source for seed
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewClockSource returns a source seeded from the wall clock
func NewClockSource() *rand.Rand {
	return NewSeededSource(uint64(time.Now().UnixNano()))
}

// HasBerths reports whether class is sleeper ("SL") or an AC class (code contains "A")
func HasBerths(class string) bool {
	return class == "SL" || strings.Contains(class, "A")
}

// GenerateSeatMap builds the ordered seat inventory for class. Availability
// is drawn once per seat from src; callers hold the result as the snapshot.
func GenerateSeatMap(class string, seatCount int, src AvailabilitySource) (*domain.SeatMap, error) {
	if seatCount <= 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("class %s has no seats", class))
	}
	if src == nil {
		src = NewClockSource()
	}

	berths := HasBerths(class)
	seats := make([]domain.SeatRecord, seatCount)
	for i := range seats {
		row := i/SeatsPerRow + 1
		pos := i % SeatsPerRow

		seat := domain.SeatRecord{
			Number:    i + 1,
			Code:      fmt.Sprintf("%d%s", row, seatLetters[pos]),
			Available: src.Float64() > unavailableBelow,
		}
		if berths {
			seat.Berth = berthCycle[pos%len(berthCycle)]
		}
		seats[i] = seat
	}

	return &domain.SeatMap{Class: class, Seats: seats}, nil
}
