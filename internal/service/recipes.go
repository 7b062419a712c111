package service

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/store"
	"stockroom/internal/xid"
)

const defaultRecipePageSize = 20

func (s *Service) ListRecipes(ctx context.Context, productID string, page store.Page) ([]domain.Recipe, error) {
	return s.repo.ListRecipes(ctx, strings.TrimSpace(productID), normalizePage(page, defaultRecipePageSize))
}

func (s *Service) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	recipe, err := s.repo.GetRecipe(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Recipe{}, err
	}
	return *recipe, nil
}

func (s *Service) CreateRecipe(ctx context.Context, in domain.RecipeInput) (domain.Recipe, error) {
	in, err := s.normalizeRecipe(ctx, in)
	if err != nil {
		return domain.Recipe{}, err
	}

	saved, err := s.repo.CreateRecipe(ctx, domain.Recipe{
		ID:                 xid.New("rcp"),
		ProductID:          in.ProductID,
		MaterialID:         in.MaterialID,
		QuantityPerProduct: in.QuantityPerProduct,
		CreatedAt:          s.now(),
	})
	if err != nil {
		return domain.Recipe{}, recipeError(err)
	}

	s.recordWrite(ctx, "recipe", "create", saved.ID, recipeDetail(*saved))
	return *saved, nil
}

func (s *Service) UpdateRecipe(ctx context.Context, id string, in domain.RecipeInput) (domain.Recipe, error) {
	in, err := s.normalizeRecipe(ctx, in)
	if err != nil {
		return domain.Recipe{}, err
	}

	saved, err := s.repo.UpdateRecipe(ctx, domain.Recipe{
		ID:                 strings.TrimSpace(id),
		ProductID:          in.ProductID,
		MaterialID:         in.MaterialID,
		QuantityPerProduct: in.QuantityPerProduct,
	})
	if err != nil {
		return domain.Recipe{}, recipeError(err)
	}

	s.recordWrite(ctx, "recipe", "update", saved.ID, recipeDetail(*saved))
	return *saved, nil
}

func (s *Service) DeleteRecipe(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	s.recordWrite(ctx, "recipe", "delete", id, "")
	return nil
}

func (s *Service) normalizeRecipe(ctx context.Context, in domain.RecipeInput) (domain.RecipeInput, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.MaterialID = strings.TrimSpace(in.MaterialID)
	if in.ProductID == "" {
		return in, invalidf("product_id is required")
	}
	if in.MaterialID == "" {
		return in, invalidf("material_id is required")
	}
	if !in.QuantityPerProduct.IsPositive() {
		return in, invalidf("quantity_per_product must be greater than zero")
	}
	if _, err := s.repo.GetProduct(ctx, in.ProductID); err != nil {
		return in, referenceError(err, "product", in.ProductID)
	}
	if _, err := s.repo.GetMaterial(ctx, in.MaterialID); err != nil {
		return in, referenceError(err, "material", in.MaterialID)
	}
	return in, nil
}

func recipeError(err error) error {
	if isDuplicate(err) {
		return fmt.Errorf("%w: product already has a recipe line for this material", store.ErrDuplicate)
	}
	return err
}

func recipeDetail(r domain.Recipe) string {
	return fmt.Sprintf("product=%s,material=%s,qty=%s", r.ProductID, r.MaterialID, r.QuantityPerProduct)
}
