package repository

import (
	"context"
	"sync"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// MemoryCatalogRepository implements CatalogRepository using in-memory storage.
// Used when no catalog database is configured, and in tests.
type MemoryCatalogRepository struct {
	trains map[string]*domain.TrainOffering
	order  []string
	mu     sync.RWMutex
}

// NewMemoryCatalogRepository creates a catalog holding trains
func NewMemoryCatalogRepository(trains ...*domain.TrainOffering) *MemoryCatalogRepository {
	r := &MemoryCatalogRepository{
		trains: make(map[string]*domain.TrainOffering, len(trains)),
	}
	for _, t := range trains {
		r.Put(t)
	}
	return r
}

// Put adds or replaces a train
func (r *MemoryCatalogRepository) Put(train *domain.TrainOffering) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trains[train.ID]; !exists {
		r.order = append(r.order, train.ID)
	}
	r.trains[train.ID] = train
}

// GetTrainByID retrieves a train by its ID
func (r *MemoryCatalogRepository) GetTrainByID(ctx context.Context, id string) (*domain.TrainOffering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	train, exists := r.trains[id]
	if !exists {
		return nil, domain.ErrTrainNotFound
	}
	return train, nil
}

// ListTrains returns all trains in insertion order
func (r *MemoryCatalogRepository) ListTrains(ctx context.Context) ([]*domain.TrainOffering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.TrainOffering, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.trains[id])
	}
	return result, nil
}
