package store

import (
	"context"
	"errors"
	"time"

	"stockroom/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicate         = errors.New("duplicate")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page selects a contiguous slice of rows in the entity's natural order.
// A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// Window clamps the page to n rows and returns the [start, end) bounds.
func (p Page) Window(n int) (int, int) {
	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

// TimeRange filters rows by created_at; zero bounds are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

type Repository interface {
	ListCategories(ctx context.Context, page Page) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context, page Page) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListMaterials(ctx context.Context, page Page) ([]domain.Material, error)
	GetMaterial(ctx context.Context, id string) (*domain.Material, error)
	GetMaterialsByIDs(ctx context.Context, ids []string) (map[string]domain.Material, error)
	CreateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error)
	UpdateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error)
	DeleteMaterial(ctx context.Context, id string) error

	ListProducts(ctx context.Context, page Page) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListRecipes(ctx context.Context, productID string, page Page) ([]domain.Recipe, error)
	GetRecipe(ctx context.Context, id string) (*domain.Recipe, error)
	CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error

	ListProductionLogs(ctx context.Context, window TimeRange, page Page) ([]domain.ProductionLog, error)
	GetProductionLog(ctx context.Context, id string) (*domain.ProductionLog, error)
	// CreateProductionLog stores the log, takes the consumption from each
	// material and adds the produced quantity to the product, all or nothing.
	// It fails with ErrInsufficientStock when any material would go negative.
	CreateProductionLog(ctx context.Context, log domain.ProductionLog, consumption []domain.MaterialConsumption) (*domain.ProductionLog, error)
	DeleteProductionLog(ctx context.Context, id string) error

	ListSales(ctx context.Context, window TimeRange, page Page) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) error

	ListFinancialRecords(ctx context.Context, page Page) ([]domain.FinancialRecord, error)
	GetFinancialRecord(ctx context.Context, id string) (*domain.FinancialRecord, error)
	CreateFinancialRecord(ctx context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error)
	UpdateFinancialRecord(ctx context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error)
	DeleteFinancialRecord(ctx context.Context, id string) error

	ListNotifications(ctx context.Context, userID string, page Page) ([]domain.Notification, error)
	CreateNotification(ctx context.Context, notification domain.Notification) (*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id string) (*domain.Notification, error)
	DeleteNotification(ctx context.Context, userID string, id string) error

	DashboardStats(ctx context.Context) (domain.DashboardStats, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
