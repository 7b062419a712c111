package cache

import (
	"context"
	"sync"
	"time"

	"stockroom/internal/domain"
)

// DashboardKey is the single key the dashboard counters live under.
const DashboardKey = "stockroom:dashboard:v1"

type DashboardCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, bool, error)
	Set(ctx context.Context, value *domain.DashboardStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context) (*domain.DashboardStats, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ *domain.DashboardStats, _ time.Duration) error {
	return nil
}

func (NoopDashboardCache) Invalidate(_ context.Context) error {
	return nil
}

// MemoryDashboardCache holds one entry in process. Used when Redis is not
// configured.
type MemoryDashboardCache struct {
	mu        sync.Mutex
	value     *domain.DashboardStats
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryDashboardCache() *MemoryDashboardCache {
	return &MemoryDashboardCache{now: time.Now}
}

func (c *MemoryDashboardCache) Get(_ context.Context) (*domain.DashboardStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	copied := *c.value
	return &copied, true, nil
}

func (c *MemoryDashboardCache) Set(_ context.Context, value *domain.DashboardStats, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *value
	c.value = &copied
	c.expiresAt = c.now().Add(ttl)
	return nil
}

func (c *MemoryDashboardCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	return nil
}
