package workflow

import (
	"fmt"
	"math/rand/v2"
)

// IDGenerator issues booking, PNR and payment identifiers
type IDGenerator interface {
	BookingID() string
	PNR() string
	PaymentID() string
}

// RandomIDs draws identifiers from math/rand/v2.
// Booking ids are 10-digit numbers starting at 1000000000.
type RandomIDs struct{}

func (RandomIDs) BookingID() string {
	return fmt.Sprintf("%d", 1_000_000_000+rand.Int64N(9_000_000_000))
}

func (RandomIDs) PNR() string {
	return fmt.Sprintf("PNR%08d", rand.Int64N(100_000_000))
}

func (RandomIDs) PaymentID() string {
	return fmt.Sprintf("PAY%010d", rand.Int64N(10_000_000_000))
}
