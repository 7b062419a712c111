package production

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
)

func bakeryFixture() ([]domain.Recipe, map[string]domain.Material) {
	recipes := []domain.Recipe{
		{ID: "r1", ProductID: "p", MaterialID: "flour", QuantityPerProduct: decimal.NewFromInt(2)},
		{ID: "r2", ProductID: "p", MaterialID: "sugar", QuantityPerProduct: decimal.NewFromInt(1)},
	}
	materials := map[string]domain.Material{
		"flour": {ID: "flour", Name: "Flour", StockQuantity: decimal.NewFromInt(100), CostPerUnit: decimal.RequireFromString("0.5")},
		"sugar": {ID: "sugar", Name: "Sugar", StockQuantity: decimal.NewFromInt(40), CostPerUnit: decimal.NewFromInt(2)},
	}
	return recipes, materials
}

func TestCheckRejectsShortage(t *testing.T) {
	recipes, materials := bakeryFixture()

	lines, err := Check(recipes, decimal.NewFromInt(45), materials)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 requirement lines, got %d", len(lines))
	}
	if !lines[0].Required.Equal(decimal.NewFromInt(90)) || lines[0].Shortage {
		t.Fatalf("unexpected flour line: %+v", lines[0])
	}
	if !lines[1].Required.Equal(decimal.NewFromInt(45)) || !lines[1].Shortage {
		t.Fatalf("unexpected sugar line: %+v", lines[1])
	}

	var shortage *ShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected *ShortageError, got %T", err)
	}
	if len(shortage.Lines) != 1 || shortage.Lines[0].MaterialID != "sugar" {
		t.Fatalf("expected only sugar in shortage, got %+v", shortage.Lines)
	}
}

func TestCheckAcceptsWhenStockCovers(t *testing.T) {
	recipes, materials := bakeryFixture()

	lines, err := Check(recipes, decimal.NewFromInt(30), materials)
	if err != nil {
		t.Fatalf("expected run to be accepted, got %v", err)
	}
	if !lines[0].Required.Equal(decimal.NewFromInt(60)) || !lines[1].Required.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected requirements: %+v", lines)
	}

	cost := Cost(lines, materials)
	if !cost.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected cost 90, got %s", cost)
	}
}

func TestCheckExactStockIsNotShortage(t *testing.T) {
	recipes, materials := bakeryFixture()

	if _, err := Check(recipes, decimal.NewFromInt(40), materials); err != nil {
		t.Fatalf("expected required == available to pass, got %v", err)
	}
}

func TestCheckRejectsEmptyRecipe(t *testing.T) {
	_, materials := bakeryFixture()

	if _, err := Check(nil, decimal.NewFromInt(1), materials); !errors.Is(err, ErrNoRecipe) {
		t.Fatalf("expected ErrNoRecipe, got %v", err)
	}
}

func TestCheckRejectsNonPositiveQuantity(t *testing.T) {
	recipes, materials := bakeryFixture()

	if _, err := Check(recipes, decimal.Zero, materials); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestRequirementsUnknownMaterial(t *testing.T) {
	recipes := []domain.Recipe{{MaterialID: "ghost", QuantityPerProduct: decimal.NewFromInt(1)}}

	lines := Requirements(recipes, decimal.NewFromInt(3), map[string]domain.Material{})
	if lines[0].Name != UnknownMaterial {
		t.Fatalf("expected Unknown name, got %q", lines[0].Name)
	}
	if !lines[0].Available.IsZero() || !lines[0].Shortage {
		t.Fatalf("expected zero availability and a shortage, got %+v", lines[0])
	}
}

func TestConsumptionMergesSameMaterial(t *testing.T) {
	lines := []Requirement{
		{MaterialID: "flour", Required: decimal.NewFromInt(2)},
		{MaterialID: "sugar", Required: decimal.NewFromInt(1)},
		{MaterialID: "flour", Required: decimal.NewFromInt(3)},
	}

	got := Consumption(lines)
	if len(got) != 2 {
		t.Fatalf("expected 2 consumption entries, got %d", len(got))
	}
	if got[0].MaterialID != "flour" || !got[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected flour consumption: %+v", got[0])
	}
}
