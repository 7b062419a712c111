package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
)

func TestMemoryDashboardCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryDashboardCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	stats := &domain.DashboardStats{TotalProducts: 3, TotalSales: decimal.NewFromInt(10)}
	if err := c.Set(ctx, stats, 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, _ := c.Get(ctx)
	if !ok || got.TotalProducts != 3 {
		t.Fatalf("expected cached stats, got %+v ok=%v", got, ok)
	}

	now = now.Add(31 * time.Second)
	if _, ok, _ := c.Get(ctx); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryDashboardCacheInvalidate(t *testing.T) {
	c := NewMemoryDashboardCache()
	ctx := context.Background()
	_ = c.Set(ctx, &domain.DashboardStats{TotalMaterials: 1}, time.Minute)
	_ = c.Invalidate(ctx)
	if _, ok, _ := c.Get(ctx); ok {
		t.Fatalf("expected cache miss after invalidate")
	}
}

func TestNoopDashboardCacheNeverHits(t *testing.T) {
	var c DashboardCache = NoopDashboardCache{}
	_ = c.Set(context.Background(), &domain.DashboardStats{}, time.Minute)
	if _, ok, _ := c.Get(context.Background()); ok {
		t.Fatalf("noop cache must never hit")
	}
}
