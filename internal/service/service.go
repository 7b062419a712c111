package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stockroom/internal/cache"
	"stockroom/internal/domain"
	"stockroom/internal/logging"
	"stockroom/internal/metrics"
	"stockroom/internal/store"
	"stockroom/internal/xid"
)

var ErrForbidden = errors.New("forbidden role")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Config struct {
	DashboardCache    cache.DashboardCache
	DashboardCacheTTL time.Duration
	// ReportLocation decides month boundaries in reports. Nil means time.Local.
	ReportLocation *time.Location
	Metrics        *metrics.Metrics
}

type Service struct {
	repo           store.Repository
	dashboard      cache.DashboardCache
	dashboardGen   atomic.Uint64
	dashboardTTL   time.Duration
	reportLocation *time.Location
	metrics        *metrics.Metrics
	now            func() time.Time
}

func New(repo store.Repository, cfg Config) *Service {
	if cfg.DashboardCache == nil {
		cfg.DashboardCache = cache.NoopDashboardCache{}
	}
	if cfg.DashboardCacheTTL < 0 {
		cfg.DashboardCacheTTL = 0
	}
	if cfg.ReportLocation == nil {
		cfg.ReportLocation = time.Local
	}

	return &Service{
		repo:           repo,
		dashboard:      cfg.DashboardCache,
		dashboardTTL:   cfg.DashboardCacheTTL,
		reportLocation: cfg.ReportLocation,
		metrics:        cfg.Metrics,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrForbidden
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, ErrForbidden
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrNotFound, fmt.Sprintf(format, args...))
}

// normalizePage applies the default page size and clamps to the maximum.
func normalizePage(page store.Page, defaultSize int) store.Page {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit <= 0 {
		page.Limit = defaultSize
	}
	if page.Limit > store.MaxPageSize {
		page.Limit = store.MaxPageSize
	}
	return page
}

// recordWrite runs the bookkeeping every successful mutation shares: audit
// entry, write counter and dashboard invalidation.
func (s *Service) recordWrite(ctx context.Context, entity string, op string, id string, detail string) {
	s.logAudit(ctx, entity+"_"+op, entity, id, detail)
	s.metrics.EntityWrite(entity, op)
	s.invalidateDashboard(ctx)
}

// invalidateDashboard bumps the generation first so a read that started
// before this write does not repopulate the cache with old counters.
func (s *Service) invalidateDashboard(ctx context.Context) {
	s.dashboardGen.Add(1)
	if err := s.dashboard.Invalidate(ctx); err != nil {
		logging.FromContext(ctx).Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}
