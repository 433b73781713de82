package workflow

import (
	"fmt"
	"math"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// GSTRate is the flat tax applied to the discounted fare
const GSTRate = 0.05

// CalculateFare derives the fare summary for class and passengers.
// Per-passenger amounts are summed unrounded and rounded once.
func CalculateFare(train *domain.TrainOffering, class string, passengers []domain.PassengerEntry) (domain.FareSummary, error) {
	if train == nil {
		return domain.FareSummary{}, domain.ErrTrainNotFound
	}
	price, ok := train.Price(class)
	if !ok {
		return domain.FareSummary{}, fmt.Errorf("%w: %s", domain.ErrClassNotOffered, class)
	}

	var base int64
	var discounted float64
	for _, p := range passengers {
		base += price
		discounted += float64(price) * float64(100-p.AgeCategory.DiscountPercent()) / 100
	}

	d := int64(math.Round(discounted))
	return domain.FareSummary{
		TotalBaseFare:  base,
		DiscountedFare: d,
		GSTAmount:      int64(math.Round(float64(d) * GSTRate)),
		TotalPayable:   int64(math.Round(float64(d) * (1 + GSTRate))),
	}, nil
}
