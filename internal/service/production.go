package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	"stockroom/internal/logging"
	"stockroom/internal/production"
	"stockroom/internal/store"
	"stockroom/internal/xid"
)

// CheckProduction reports whether qty units of the product can be made from
// current stock. Rule failures (no recipe, shortage) come back as an
// infeasible plan, not an error.
func (s *Service) CheckProduction(ctx context.Context, req domain.ProductionCheckRequest) (production.Plan, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return production.Plan{}, invalidf("product_id is required")
	}
	if !req.QuantityProduced.IsPositive() {
		return production.Plan{}, invalidf("quantity_produced must be greater than zero")
	}

	run, err := s.planProduction(ctx, productID, req.QuantityProduced)
	if err != nil {
		return production.Plan{}, err
	}
	return run.plan, nil
}

type plannedRun struct {
	plan    production.Plan
	ruleErr error
}

// planProduction loads the recipe and material stock for a run. The returned
// error only reports lookup failures; rule failures land in ruleErr.
func (s *Service) planProduction(ctx context.Context, productID string, qty decimal.Decimal) (plannedRun, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return plannedRun{}, referenceError(err, "product", productID)
	}

	recipes, err := s.repo.ListRecipes(ctx, productID, store.Page{})
	if err != nil {
		return plannedRun{}, err
	}
	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.MaterialID)
	}
	materials, err := s.repo.GetMaterialsByIDs(ctx, ids)
	if err != nil {
		return plannedRun{}, err
	}

	lines, ruleErr := production.Check(recipes, qty, materials)
	plan := production.Plan{
		ProductID:     productID,
		Quantity:      qty,
		Feasible:      ruleErr == nil,
		Requirements:  lines,
		EstimatedCost: production.Cost(lines, materials),
	}
	if plan.Requirements == nil {
		plan.Requirements = []production.Requirement{}
	}
	if ruleErr != nil {
		plan.Reason = ruleErr.Error()
	}
	return plannedRun{plan: plan, ruleErr: ruleErr}, nil
}

func (s *Service) ListProductionLogs(ctx context.Context, window store.TimeRange, page store.Page) ([]domain.ProductionLog, error) {
	return s.repo.ListProductionLogs(ctx, window, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetProductionLog(ctx context.Context, id string) (domain.ProductionLog, error) {
	entry, err := s.repo.GetProductionLog(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ProductionLog{}, err
	}
	return *entry, nil
}

// CreateProductionLog checks stock, then commits the log together with the
// material consumption and the finished-goods increase. A rejected check
// returns the production rule error and writes nothing.
func (s *Service) CreateProductionLog(ctx context.Context, in domain.ProductionLogInput) (domain.ProductionLog, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.ProductID == "" {
		return domain.ProductionLog{}, invalidf("product_id is required")
	}
	if !in.QuantityProduced.IsPositive() {
		return domain.ProductionLog{}, invalidf("quantity_produced must be greater than zero")
	}
	if in.TotalCost.IsNegative() {
		return domain.ProductionLog{}, invalidf("total_cost must not be negative")
	}

	run, err := s.planProduction(ctx, in.ProductID, in.QuantityProduced)
	if err != nil {
		return domain.ProductionLog{}, err
	}
	if run.ruleErr != nil {
		s.metrics.ProductionRun("rejected")
		return domain.ProductionLog{}, run.ruleErr
	}
	plan := run.plan

	totalCost := in.TotalCost
	if totalCost.IsZero() {
		totalCost = plan.EstimatedCost
	}

	actor, _ := ActorFromContext(ctx)
	entry := domain.ProductionLog{
		ID:               xid.New("plog"),
		ProductID:        in.ProductID,
		QuantityProduced: in.QuantityProduced,
		TotalCost:        totalCost,
		Notes:            in.Notes,
		CreatedBy:        actor.Username,
		CreatedAt:        s.now(),
	}

	consumption := production.Consumption(plan.Requirements)
	saved, err := s.repo.CreateProductionLog(ctx, entry, consumption)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			// Stock moved between the check and the commit.
			s.metrics.ProductionRun("conflict")
			return domain.ProductionLog{}, fmt.Errorf("%w: stock changed while the run was being recorded, check again", store.ErrInsufficientStock)
		}
		return domain.ProductionLog{}, err
	}

	s.metrics.ProductionRun("committed")
	s.recordWrite(ctx, "production_log", "create", saved.ID,
		fmt.Sprintf("product=%s,qty=%s,cost=%s", saved.ProductID, saved.QuantityProduced, saved.TotalCost))
	s.notifyLowStock(ctx, actor.Username, consumption)
	return *saved, nil
}

func (s *Service) DeleteProductionLog(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProductionLog(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "production_log", "delete", id, "")
	return nil
}

// notifyLowStock leaves a notification for every consumed material that is
// now at or below its reorder level.
func (s *Service) notifyLowStock(ctx context.Context, userID string, consumption []domain.MaterialConsumption) {
	if userID == "" || len(consumption) == 0 {
		return
	}
	logger := logging.FromContext(ctx)

	ids := make([]string, 0, len(consumption))
	for _, c := range consumption {
		ids = append(ids, c.MaterialID)
	}
	materials, err := s.repo.GetMaterialsByIDs(ctx, ids)
	if err != nil {
		logger.Warn("low stock lookup failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		material, ok := materials[id]
		if !ok || !material.LowStock() {
			continue
		}
		_, err := s.repo.CreateNotification(ctx, domain.Notification{
			ID:     xid.New("ntf"),
			UserID: userID,
			Message: fmt.Sprintf("%s is low on stock: %s %s left (reorder level %s)",
				material.Name, material.StockQuantity, material.Unit, material.ReorderLevel),
			CreatedAt: s.now(),
		})
		if err != nil {
			logger.Warn("low stock notification failed", zap.String("material_id", id), zap.Error(err))
		}
	}
}
