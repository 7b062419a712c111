package production

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

// UnknownMaterial is the display name used when a recipe points at a
// material that could not be looked up.
const UnknownMaterial = "Unknown"

var (
	ErrNoRecipe        = errors.New("no recipe associated with this product")
	ErrInvalidQuantity = errors.New("quantity produced must be greater than zero")
)

// ErrInsufficientStock is shared with the store so a failed conditional
// decrement and a failed check compare equal.
var ErrInsufficientStock = store.ErrInsufficientStock

type Requirement struct {
	MaterialID string          `json:"material_id"`
	Name       string          `json:"name"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
	Shortage   bool            `json:"shortage"`
}

// ShortageError lists every recipe line that cannot be covered.
type ShortageError struct {
	Lines []Requirement
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s (need %s, have %s)", line.Name, line.Required.String(), line.Available.String()))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *ShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Requirements computes one line per recipe entry: quantity_per_product times
// qty against the material's current stock.
func Requirements(recipes []domain.Recipe, qty decimal.Decimal, materials map[string]domain.Material) []Requirement {
	lines := make([]Requirement, 0, len(recipes))
	for _, recipe := range recipes {
		required := recipe.QuantityPerProduct.Mul(qty)
		line := Requirement{
			MaterialID: recipe.MaterialID,
			Name:       UnknownMaterial,
			Required:   required,
			Available:  decimal.Zero,
		}
		if material, ok := materials[recipe.MaterialID]; ok {
			line.Name = material.Name
			line.Available = material.StockQuantity
		}
		line.Shortage = line.Required.GreaterThan(line.Available)
		lines = append(lines, line)
	}
	return lines
}

// Check returns the requirement lines and an error when the run must be
// rejected: no recipe, a non-positive quantity, or any line in shortage.
// The lines are returned in every case where they could be computed.
func Check(recipes []domain.Recipe, qty decimal.Decimal, materials map[string]domain.Material) ([]Requirement, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if len(recipes) == 0 {
		return []Requirement{}, ErrNoRecipe
	}

	lines := Requirements(recipes, qty, materials)
	var short []Requirement
	for _, line := range lines {
		if line.Shortage {
			short = append(short, line)
		}
	}
	if len(short) > 0 {
		return lines, &ShortageError{Lines: short}
	}
	return lines, nil
}

// Cost prices the requirement lines at each material's cost_per_unit.
// Unknown materials cost nothing.
func Cost(lines []Requirement, materials map[string]domain.Material) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if material, ok := materials[line.MaterialID]; ok {
			total = total.Add(line.Required.Mul(material.CostPerUnit))
		}
	}
	return total
}

// Consumption converts requirement lines into the stock the commit takes,
// merging lines that point at the same material.
func Consumption(lines []Requirement) []domain.MaterialConsumption {
	out := make([]domain.MaterialConsumption, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.MaterialID]; ok {
			out[i].Quantity = out[i].Quantity.Add(line.Required)
			continue
		}
		index[line.MaterialID] = len(out)
		out = append(out, domain.MaterialConsumption{MaterialID: line.MaterialID, Quantity: line.Required})
	}
	return out
}

// Plan is the outcome of checking a proposed run without committing it.
type Plan struct {
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity_produced"`
	Feasible      bool            `json:"feasible"`
	Reason        string          `json:"reason,omitempty"`
	Requirements  []Requirement   `json:"requirements"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}
