package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockroom/internal/domain"
	"stockroom/internal/logging"
	"stockroom/internal/report"
	"stockroom/internal/store"
)

// DashboardStats serves the headline counters, from cache when warm.
func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	logger := logging.FromContext(ctx)

	if cached, ok, err := s.dashboard.Get(ctx); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		logger.Warn("dashboard cache read failed", zap.Error(err))
	}

	gen := s.dashboardGen.Load()
	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	if s.dashboardTTL > 0 && s.dashboardGen.Load() == gen {
		if err := s.dashboard.Set(ctx, &stats, s.dashboardTTL); err != nil {
			logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Report summarizes sales and production in [from, to). The three reads run
// in parallel and any failure abandons the whole report.
func (s *Service) Report(ctx context.Context, window store.TimeRange) (report.Summary, error) {
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return report.Summary{}, invalidf("from must be before to")
	}

	var (
		sales    []domain.Sale
		logs     []domain.ProductionLog
		products []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, window, store.Page{})
		if err != nil {
			return fmt.Errorf("load sales: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		logs, err = s.repo.ListProductionLogs(gctx, window, store.Page{})
		if err != nil {
			return fmt.Errorf("load production logs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx, store.Page{})
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Summary{}, err
	}

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return report.Summarize(sales, logs, names, report.Options{
		Location: s.reportLocation,
		Now:      s.now,
	}), nil
}

func (s *Service) ListNotifications(ctx context.Context, page store.Page) ([]domain.Notification, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}
	return s.repo.ListNotifications(ctx, actor.Username, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Notification{}, ErrForbidden
	}
	n, err := s.repo.MarkNotificationRead(ctx, actor.Username, strings.TrimSpace(id))
	if err != nil {
		return domain.Notification{}, err
	}
	return *n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	return s.repo.DeleteNotification(ctx, actor.Username, strings.TrimSpace(id))
}
