package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("STOCKROOM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set STOCKROOM_TEST_DATABASE_URL to run postgres integration test")
	}
	if err := Migrate(databaseURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s, err := New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestProductionCommitMovesStock(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	materialID := fmt.Sprintf("mat-it-%d", stamp)
	productID := fmt.Sprintf("prd-it-%d", stamp)
	logID := fmt.Sprintf("log-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM production_logs WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, materialID)
	})

	if _, err := s.CreateMaterial(ctx, domain.Material{
		ID: materialID, Name: "IT Flour", Unit: "kg",
		StockQuantity: decimal.NewFromInt(10), ReorderLevel: decimal.NewFromInt(2),
	}); err != nil {
		t.Fatalf("create material: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{ID: productID, Name: "IT Loaf"}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	consumption := []domain.MaterialConsumption{{MaterialID: materialID, Quantity: decimal.NewFromInt(8)}}
	if _, err := s.CreateProductionLog(ctx, domain.ProductionLog{
		ID: logID, ProductID: productID, QuantityProduced: decimal.NewFromInt(4),
	}, consumption); err != nil {
		t.Fatalf("commit production: %v", err)
	}

	material, err := s.GetMaterial(ctx, materialID)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	if !material.StockQuantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 left in stock, got %s", material.StockQuantity)
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !product.StockQuantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected product stock 4, got %s", product.StockQuantity)
	}

	_, err = s.CreateProductionLog(ctx, domain.ProductionLog{
		ID: logID + "-again", ProductID: productID, QuantityProduced: decimal.NewFromInt(4),
	}, consumption)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock on second run, got %v", err)
	}

	if err := s.DeleteProduct(ctx, productID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting product with history, got %v", err)
	}
}

func TestDuplicateCategoryNameIsCaseInsensitive(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	name := fmt.Sprintf("IT Category %d", stamp)
	firstID := fmt.Sprintf("cat-it-%d", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, firstID)
	})

	if _, err := s.CreateCategory(ctx, domain.Category{ID: firstID, Name: name}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	_, err := s.CreateCategory(ctx, domain.Category{ID: firstID + "-b", Name: "it category " + fmt.Sprint(stamp)})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestDeleteReferencedProductOrMaterialConflicts(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	materialID := fmt.Sprintf("mat-ref-%d", stamp)
	productID := fmt.Sprintf("prd-ref-%d", stamp)
	recipeID := fmt.Sprintf("rcp-ref-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, recipeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, materialID)
	})

	if _, err := s.CreateMaterial(ctx, domain.Material{ID: materialID, Name: "Ref Sugar", Unit: "kg", StockQuantity: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("create material: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{ID: productID, Name: "Ref Cake"}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.CreateRecipe(ctx, domain.Recipe{
		ID: recipeID, ProductID: productID, MaterialID: materialID, QuantityPerProduct: decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	if err := s.DeleteProduct(ctx, productID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting product with recipes, got %v", err)
	}
	if err := s.DeleteMaterial(ctx, materialID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting material with recipes, got %v", err)
	}
	recipes, err := s.ListRecipes(ctx, productID, store.Page{})
	if err != nil || len(recipes) != 1 {
		t.Fatalf("expected recipe to survive, got %d (%v)", len(recipes), err)
	}

	if err := s.DeleteRecipe(ctx, recipeID); err != nil {
		t.Fatalf("delete recipe: %v", err)
	}
	if err := s.DeleteProduct(ctx, productID); err != nil {
		t.Fatalf("delete unreferenced product: %v", err)
	}
}
