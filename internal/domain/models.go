package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Supplier struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ContactName string    `json:"contact_name" db:"contact_name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	Address     string    `json:"address" db:"address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SupplierInput struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type Material struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Unit            string          `json:"unit" db:"unit"`
	StockQuantity   decimal.Decimal `json:"stock_quantity" db:"stock_quantity"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`
	CategoryID      string          `json:"category_id,omitempty" db:"category_id"`
	SupplierID      string          `json:"supplier_id,omitempty" db:"supplier_id"`
	ReorderLevel    decimal.Decimal `json:"reorder_level" db:"reorder_level"`
	ReorderQuantity decimal.Decimal `json:"reorder_quantity" db:"reorder_quantity"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// LowStock reports whether the material sits at or below its reorder level.
func (m Material) LowStock() bool {
	return m.StockQuantity.LessThanOrEqual(m.ReorderLevel)
}

type MaterialInput struct {
	Name            string          `json:"name"`
	Unit            string          `json:"unit"`
	StockQuantity   decimal.Decimal `json:"stock_quantity"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	CategoryID      string          `json:"category_id,omitempty"`
	SupplierID      string          `json:"supplier_id,omitempty"`
	ReorderLevel    decimal.Decimal `json:"reorder_level"`
	ReorderQuantity decimal.Decimal `json:"reorder_quantity"`
}

type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	SKU           string          `json:"sku,omitempty" db:"sku"`
	Description   string          `json:"description" db:"description"`
	StockQuantity decimal.Decimal `json:"stock_quantity" db:"stock_quantity"`
	CategoryID    string          `json:"category_id,omitempty" db:"category_id"`
	CostPrice     decimal.Decimal `json:"cost_price" db:"cost_price"`
	SalePrice     decimal.Decimal `json:"sale_price" db:"sale_price"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

type ProductInput struct {
	Name          string          `json:"name"`
	SKU           string          `json:"sku,omitempty"`
	Description   string          `json:"description"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	CategoryID    string          `json:"category_id,omitempty"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
}

// Recipe is one bill-of-materials line: how much of a material one unit of
// the product consumes.
type Recipe struct {
	ID                 string          `json:"id" db:"id"`
	ProductID          string          `json:"product_id" db:"product_id"`
	MaterialID         string          `json:"material_id" db:"material_id"`
	QuantityPerProduct decimal.Decimal `json:"quantity_per_product" db:"quantity_per_product"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

type RecipeInput struct {
	ProductID          string          `json:"product_id"`
	MaterialID         string          `json:"material_id"`
	QuantityPerProduct decimal.Decimal `json:"quantity_per_product"`
}

type ProductionLog struct {
	ID               string          `json:"id" db:"id"`
	ProductID        string          `json:"product_id" db:"product_id"`
	QuantityProduced decimal.Decimal `json:"quantity_produced" db:"quantity_produced"`
	TotalCost        decimal.Decimal `json:"total_cost" db:"total_cost"`
	Notes            string          `json:"notes" db:"notes"`
	CreatedBy        string          `json:"created_by" db:"created_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

type ProductionLogInput struct {
	ProductID        string          `json:"product_id"`
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Notes            string          `json:"notes"`
}

// MaterialConsumption is the stock a production run takes from one material.
type MaterialConsumption struct {
	MaterialID string
	Quantity   decimal.Decimal
}

type Sale struct {
	ID           string          `json:"id" db:"id"`
	ProductID    string          `json:"product_id" db:"product_id"`
	QuantitySold decimal.Decimal `json:"quantity_sold" db:"quantity_sold"`
	SalePrice    decimal.Decimal `json:"sale_price" db:"sale_price"`
	TotalRevenue decimal.Decimal `json:"total_revenue" db:"total_revenue"`
	CustomerName string          `json:"customer_name" db:"customer_name"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type SaleInput struct {
	ProductID    string          `json:"product_id"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	CustomerName string          `json:"customer_name"`
}

type FinancialRecord struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type FinancialRecordInput struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DashboardStats are the headline counters shown on the dashboard.
type DashboardStats struct {
	TotalProducts   int64           `json:"total_products" db:"total_products"`
	TotalMaterials  int64           `json:"total_materials" db:"total_materials"`
	TotalSales      decimal.Decimal `json:"total_sales" db:"total_sales"`
	LowStockItems   int64           `json:"low_stock_items" db:"low_stock_items"`
	TotalProduction decimal.Decimal `json:"total_production" db:"total_production"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type SessionResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `db:"username"`
	Password  string    `db:"password_hash"`
	Role      string    `db:"role"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id" db:"id"`
	ActorUsername string    `json:"actor_username" db:"actor_username"`
	ActorRole     string    `json:"actor_role" db:"actor_role"`
	Action        string    `json:"action" db:"action"`
	EntityType    string    `json:"entity_type" db:"entity_type"`
	EntityID      string    `json:"entity_id" db:"entity_id"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	RecordTypeIncome  = "income"
	RecordTypeExpense = "expense"
)

type ProductionCheckRequest struct {
	ProductID        string          `json:"product_id"`
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
}
