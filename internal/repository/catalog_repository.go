package repository

import (
	"context"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// CatalogRepository looks up train offerings. Offerings are immutable once
// returned; callers must not modify them.
type CatalogRepository interface {
	// GetTrainByID returns domain.ErrTrainNotFound for unknown ids
	GetTrainByID(ctx context.Context, id string) (*domain.TrainOffering, error)

	// ListTrains returns every offering in catalog order
	ListTrains(ctx context.Context) ([]*domain.TrainOffering, error)
}

// SeedTrains returns the built-in catalog
func SeedTrains() []*domain.TrainOffering {
	return []*domain.TrainOffering{
		{
			ID:            "1",
			TrainNumber:   "EXP1234",
			Name:          "Rajdhani Express",
			Source:        "New Delhi",
			Destination:   "Mumbai Central",
			DepartureTime: "16:35",
			ArrivalTime:   "08:15",
			Duration:      "15h 40m",
			RunsOn:        []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
			Classes:       []string{"1A", "2A", "3A", "SL"},
			PriceByClass:  map[string]int64{"1A": 3200, "2A": 1900, "3A": 1200, "SL": 650},
			SeatsByClass:  map[string]int{"1A": 12, "2A": 24, "3A": 45, "SL": 110},
		},
		{
			ID:            "2",
			TrainNumber:   "SF5678",
			Name:          "Shatabdi Express",
			Source:        "New Delhi",
			Destination:   "Mumbai Central",
			DepartureTime: "06:00",
			ArrivalTime:   "14:30",
			Duration:      "8h 30m",
			RunsOn:        []string{"Mon", "Wed", "Fri", "Sun"},
			Classes:       []string{"CC", "EC"},
			PriceByClass:  map[string]int64{"CC": 1500, "EC": 2800},
			SeatsByClass:  map[string]int{"CC": 65, "EC": 30},
		},
	}
}
