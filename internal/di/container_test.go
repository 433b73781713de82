package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/rail-booking/internal/dto"
	"github.com/prohmpiriya/rail-booking/internal/repository"
	"github.com/prohmpiriya/rail-booking/internal/service"
)

func TestNewContainer_InMemory(t *testing.T) {
	c := NewContainer(nil)

	require.NotNil(t, c.WorkflowService)
	require.NotNil(t, c.WorkflowHandler)
	require.NotNil(t, c.HealthHandler)
	assert.IsType(t, &service.NoOpConfirmationPublisher{}, c.Publisher)
	assert.IsType(t, &repository.MemoryCatalogRepository{}, c.CatalogRepo)

	ctx := context.Background()
	trains, err := c.WorkflowService.ListTrains(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, trains)

	sess, err := c.WorkflowService.CreateSession(ctx, &dto.CreateSessionRequest{TrainID: trains[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, c.SessionRepo.Count())

	require.NoError(t, c.WorkflowService.AbandonSession(ctx, sess.ID))
	assert.Zero(t, c.SessionRepo.Count())
}

func TestNewCatalogRepository_DefaultsToMemory(t *testing.T) {
	catalog := NewCatalogRepository(nil, nil, 0)
	assert.IsType(t, &repository.MemoryCatalogRepository{}, catalog)
}
