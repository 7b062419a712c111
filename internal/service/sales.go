package service

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/store"
	"stockroom/internal/xid"
)

const defaultSalePageSize = 20

func (s *Service) ListSales(ctx context.Context, window store.TimeRange, page store.Page) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, window, normalizePage(page, defaultSalePageSize))
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) CreateSale(ctx context.Context, in domain.SaleInput) (domain.Sale, error) {
	sale, err := s.saleFromInput(ctx, xid.New("sale"), in)
	if err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.recordWrite(ctx, "sale", "create", saved.ID, saleDetail(*saved))
	return *saved, nil
}

func (s *Service) UpdateSale(ctx context.Context, id string, in domain.SaleInput) (domain.Sale, error) {
	sale, err := s.saleFromInput(ctx, strings.TrimSpace(id), in)
	if err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.recordWrite(ctx, "sale", "update", saved.ID, saleDetail(*saved))
	return *saved, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "sale", "delete", id, "")
	return nil
}

// saleFromInput validates the input and derives total_revenue from price and
// quantity. A zero sale_price falls back to the product's list price. Any
// client supplied total_revenue is ignored.
func (s *Service) saleFromInput(ctx context.Context, id string, in domain.SaleInput) (domain.Sale, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.ProductID == "" {
		return domain.Sale{}, invalidf("product_id is required")
	}
	if !in.QuantitySold.IsPositive() {
		return domain.Sale{}, invalidf("quantity_sold must be greater than zero")
	}
	if in.SalePrice.IsNegative() {
		return domain.Sale{}, invalidf("sale_price must not be negative")
	}

	product, err := s.repo.GetProduct(ctx, in.ProductID)
	if err != nil {
		return domain.Sale{}, referenceError(err, "product", in.ProductID)
	}
	price := in.SalePrice
	if price.IsZero() {
		price = product.SalePrice
	}

	return domain.Sale{
		ID:           id,
		ProductID:    in.ProductID,
		QuantitySold: in.QuantitySold,
		SalePrice:    price,
		TotalRevenue: price.Mul(in.QuantitySold),
		CustomerName: in.CustomerName,
		CreatedAt:    s.now(),
	}, nil
}

func saleDetail(sale domain.Sale) string {
	return fmt.Sprintf("product=%s,qty=%s,revenue=%s", sale.ProductID, sale.QuantitySold, sale.TotalRevenue)
}

func (s *Service) ListFinancialRecords(ctx context.Context, page store.Page) ([]domain.FinancialRecord, error) {
	return s.repo.ListFinancialRecords(ctx, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetFinancialRecord(ctx context.Context, id string) (domain.FinancialRecord, error) {
	record, err := s.repo.GetFinancialRecord(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.FinancialRecord{}, err
	}
	return *record, nil
}

func (s *Service) CreateFinancialRecord(ctx context.Context, in domain.FinancialRecordInput) (domain.FinancialRecord, error) {
	in, err := normalizeFinancialRecord(in)
	if err != nil {
		return domain.FinancialRecord{}, err
	}

	saved, err := s.repo.CreateFinancialRecord(ctx, domain.FinancialRecord{
		ID:          xid.New("fin"),
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.FinancialRecord{}, err
	}

	s.recordWrite(ctx, "financial_record", "create", saved.ID, fmt.Sprintf("type=%s,amount=%s", saved.Type, saved.Amount))
	return *saved, nil
}

func (s *Service) UpdateFinancialRecord(ctx context.Context, id string, in domain.FinancialRecordInput) (domain.FinancialRecord, error) {
	in, err := normalizeFinancialRecord(in)
	if err != nil {
		return domain.FinancialRecord{}, err
	}

	saved, err := s.repo.UpdateFinancialRecord(ctx, domain.FinancialRecord{
		ID:          strings.TrimSpace(id),
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
	})
	if err != nil {
		return domain.FinancialRecord{}, err
	}

	s.recordWrite(ctx, "financial_record", "update", saved.ID, fmt.Sprintf("type=%s,amount=%s", saved.Type, saved.Amount))
	return *saved, nil
}

func (s *Service) DeleteFinancialRecord(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteFinancialRecord(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "financial_record", "delete", id, "")
	return nil
}

func normalizeFinancialRecord(in domain.FinancialRecordInput) (domain.FinancialRecordInput, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Description = strings.TrimSpace(in.Description)
	if in.Type != domain.RecordTypeIncome && in.Type != domain.RecordTypeExpense {
		return in, invalidf("type must be %q or %q", domain.RecordTypeIncome, domain.RecordTypeExpense)
	}
	if in.Amount.IsNegative() {
		return in, invalidf("amount must not be negative")
	}
	return in, nil
}
