package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/store"
	"stockroom/internal/xid"
)

// ErrDuplicateCategory is what callers see when a category name is taken.
// It matches store.ErrDuplicate.
var ErrDuplicateCategory error = duplicateError("category with this name already exists")

type duplicateError string

func (e duplicateError) Error() string { return string(e) }

func (e duplicateError) Is(target error) bool { return target == store.ErrDuplicate }

func (s *Service) ListCategories(ctx context.Context, page store.Page) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	category, err := s.repo.GetCategory(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Category{}, err
	}
	return *category, nil
}

func (s *Service) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	in, err := normalizeCategory(in)
	if err != nil {
		return domain.Category{}, err
	}

	saved, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:          xid.New("cat"),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Category{}, categoryError(err)
	}

	s.recordWrite(ctx, "category", "create", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error) {
	in, err := normalizeCategory(in)
	if err != nil {
		return domain.Category{}, err
	}

	saved, err := s.repo.UpdateCategory(ctx, domain.Category{
		ID:          strings.TrimSpace(id),
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		return domain.Category{}, categoryError(err)
	}

	s.recordWrite(ctx, "category", "update", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "category", "delete", id, "")
	return nil
}

func normalizeCategory(in domain.CategoryInput) (domain.CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, invalidf("name is required")
	}
	return in, nil
}

func categoryError(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return ErrDuplicateCategory
	}
	return err
}

func (s *Service) ListSuppliers(ctx context.Context, page store.Page) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Supplier{}, err
	}
	return *supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, in domain.SupplierInput) (domain.Supplier, error) {
	in, err := normalizeSupplier(in)
	if err != nil {
		return domain.Supplier{}, err
	}

	saved, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:          xid.New("sup"),
		Name:        in.Name,
		ContactName: in.ContactName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.recordWrite(ctx, "supplier", "create", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, in domain.SupplierInput) (domain.Supplier, error) {
	in, err := normalizeSupplier(in)
	if err != nil {
		return domain.Supplier{}, err
	}

	saved, err := s.repo.UpdateSupplier(ctx, domain.Supplier{
		ID:          strings.TrimSpace(id),
		Name:        in.Name,
		ContactName: in.ContactName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.recordWrite(ctx, "supplier", "update", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "supplier", "delete", id, "")
	return nil
}

func normalizeSupplier(in domain.SupplierInput) (domain.SupplierInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return in, invalidf("name is required")
	}
	if in.Email != "" {
		addr, err := mail.ParseAddress(in.Email)
		if err != nil || addr.Address != in.Email {
			return in, invalidf("email %q is not a valid address", in.Email)
		}
	}
	return in, nil
}

func (s *Service) ListMaterials(ctx context.Context, page store.Page) ([]domain.Material, error) {
	return s.repo.ListMaterials(ctx, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	material, err := s.repo.GetMaterial(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Material{}, err
	}
	return *material, nil
}

func (s *Service) CreateMaterial(ctx context.Context, in domain.MaterialInput) (domain.Material, error) {
	in, err := s.normalizeMaterial(ctx, in)
	if err != nil {
		return domain.Material{}, err
	}

	saved, err := s.repo.CreateMaterial(ctx, s.materialFromInput(xid.New("mat"), in))
	if err != nil {
		return domain.Material{}, err
	}

	s.recordWrite(ctx, "material", "create", saved.ID, fmt.Sprintf("name=%s,stock=%s", saved.Name, saved.StockQuantity))
	return *saved, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, id string, in domain.MaterialInput) (domain.Material, error) {
	in, err := s.normalizeMaterial(ctx, in)
	if err != nil {
		return domain.Material{}, err
	}

	saved, err := s.repo.UpdateMaterial(ctx, s.materialFromInput(strings.TrimSpace(id), in))
	if err != nil {
		return domain.Material{}, err
	}

	s.recordWrite(ctx, "material", "update", saved.ID, fmt.Sprintf("name=%s,stock=%s", saved.Name, saved.StockQuantity))
	return *saved, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: material is still used by a recipe", store.ErrConflict)
		}
		return err
	}
	s.recordWrite(ctx, "material", "delete", id, "")
	return nil
}

func (s *Service) normalizeMaterial(ctx context.Context, in domain.MaterialInput) (domain.MaterialInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.SupplierID = strings.TrimSpace(in.SupplierID)
	if in.Name == "" {
		return in, invalidf("name is required")
	}
	if in.Unit == "" {
		return in, invalidf("unit is required")
	}
	for field, value := range map[string]decimal.Decimal{
		"stock_quantity":   in.StockQuantity,
		"cost_per_unit":    in.CostPerUnit,
		"reorder_level":    in.ReorderLevel,
		"reorder_quantity": in.ReorderQuantity,
	} {
		if value.IsNegative() {
			return in, invalidf("%s must not be negative", field)
		}
	}
	if in.CategoryID != "" {
		if _, err := s.repo.GetCategory(ctx, in.CategoryID); err != nil {
			return in, referenceError(err, "category", in.CategoryID)
		}
	}
	if in.SupplierID != "" {
		if _, err := s.repo.GetSupplier(ctx, in.SupplierID); err != nil {
			return in, referenceError(err, "supplier", in.SupplierID)
		}
	}
	return in, nil
}

func (s *Service) materialFromInput(id string, in domain.MaterialInput) domain.Material {
	now := s.now()
	return domain.Material{
		ID:              id,
		Name:            in.Name,
		Unit:            in.Unit,
		StockQuantity:   in.StockQuantity,
		CostPerUnit:     in.CostPerUnit,
		CategoryID:      in.CategoryID,
		SupplierID:      in.SupplierID,
		ReorderLevel:    in.ReorderLevel,
		ReorderQuantity: in.ReorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) ListProducts(ctx context.Context, page store.Page) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, normalizePage(page, store.DefaultPageSize))
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	in, err := s.normalizeProduct(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.CreateProduct(ctx, s.productFromInput(xid.New("prd"), in))
	if err != nil {
		return domain.Product{}, err
	}

	s.recordWrite(ctx, "product", "create", saved.ID, fmt.Sprintf("name=%s,sale_price=%s", saved.Name, saved.SalePrice))
	return *saved, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	in, err := s.normalizeProduct(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, s.productFromInput(strings.TrimSpace(id), in))
	if err != nil {
		return domain.Product{}, err
	}

	s.recordWrite(ctx, "product", "update", saved.ID, fmt.Sprintf("name=%s,sale_price=%s", saved.Name, saved.SalePrice))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: product has recipes, sales or production history", store.ErrConflict)
		}
		return err
	}
	s.recordWrite(ctx, "product", "delete", id, "")
	return nil
}

func (s *Service) normalizeProduct(ctx context.Context, in domain.ProductInput) (domain.ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.Name == "" {
		return in, invalidf("name is required")
	}
	for field, value := range map[string]decimal.Decimal{
		"stock_quantity": in.StockQuantity,
		"cost_price":     in.CostPrice,
		"sale_price":     in.SalePrice,
	} {
		if value.IsNegative() {
			return in, invalidf("%s must not be negative", field)
		}
	}
	if in.CategoryID != "" {
		if _, err := s.repo.GetCategory(ctx, in.CategoryID); err != nil {
			return in, referenceError(err, "category", in.CategoryID)
		}
	}
	return in, nil
}

func (s *Service) productFromInput(id string, in domain.ProductInput) domain.Product {
	now := s.now()
	return domain.Product{
		ID:            id,
		Name:          in.Name,
		SKU:           in.SKU,
		Description:   in.Description,
		StockQuantity: in.StockQuantity,
		CategoryID:    in.CategoryID,
		CostPrice:     in.CostPrice,
		SalePrice:     in.SalePrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// referenceError turns a failed lookup of a referenced row into a not found
// error that names the reference.
func referenceError(err error, entity string, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundf("%s %s does not exist", entity, id)
	}
	return err
}
