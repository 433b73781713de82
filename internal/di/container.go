package di

import (
	"time"

	"github.com/prohmpiriya/rail-booking/internal/gateway"
	"github.com/prohmpiriya/rail-booking/internal/handler"
	"github.com/prohmpiriya/rail-booking/internal/repository"
	"github.com/prohmpiriya/rail-booking/internal/service"
	"github.com/prohmpiriya/rail-booking/pkg/database"
	"github.com/prohmpiriya/rail-booking/pkg/redis"
)

// Container holds all dependencies for the booking service
type Container struct {
	// Infrastructure (optional)
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	CatalogRepo repository.CatalogRepository
	SessionRepo *repository.MemorySessionRepository

	// Gateway
	Gateway *gateway.MockGateway

	// Publishers
	Publisher service.ConfirmationPublisher

	// Services
	WorkflowService service.WorkflowService

	// Handlers
	HealthHandler   *handler.HealthHandler
	WorkflowHandler *handler.WorkflowHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher service.ConfirmationPublisher

	// CatalogCacheTTL applies when Redis fronts the catalog
	CatalogCacheTTL time.Duration
	GatewayConfig   *gateway.MockGatewayConfig
	ServiceConfig   *service.WorkflowServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	if cfg == nil {
		cfg = &ContainerConfig{}
	}

	c := &Container{
		DB:          cfg.DB,
		Redis:       cfg.Redis,
		Publisher:   cfg.Publisher,
		SessionRepo: repository.NewMemorySessionRepository(),
		Gateway:     gateway.NewMockGateway(cfg.GatewayConfig),
	}
	if c.Publisher == nil {
		c.Publisher = service.NewNoOpConfirmationPublisher()
	}

	c.CatalogRepo = NewCatalogRepository(cfg.DB, cfg.Redis, cfg.CatalogCacheTTL)

	// Initialize services
	c.WorkflowService = service.NewWorkflowService(
		c.CatalogRepo,
		c.SessionRepo,
		c.Gateway,
		c.Publisher,
		cfg.ServiceConfig,
	)

	// Initialize handlers
	// untyped nil marks a disabled component
	components := map[string]handler.HealthChecker{"catalog_database": nil, "redis": nil}
	if c.DB != nil {
		components["catalog_database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components, c.SessionRepo.Count)
	c.WorkflowHandler = handler.NewWorkflowHandler(c.WorkflowService)

	return c
}

// NewCatalogRepository picks the catalog backend. PostgreSQL is the origin
// when configured, otherwise the built-in offerings are served from memory.
// Redis, when present, is a read-through cache in front of either.
func NewCatalogRepository(db *database.PostgresDB, rdb *redis.Client, cacheTTL time.Duration) repository.CatalogRepository {
	var catalog repository.CatalogRepository
	if db != nil {
		catalog = repository.NewPostgresCatalogRepository(db.Pool())
	} else {
		catalog = repository.NewMemoryCatalogRepository(repository.SeedTrains()...)
	}
	if rdb != nil {
		catalog = repository.NewCachedCatalogRepository(catalog, rdb, cacheTTL)
	}
	return catalog
}
