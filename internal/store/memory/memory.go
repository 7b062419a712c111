package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

// Store keeps every table in insertion-ordered slices. Lists sort a copy so
// ties in the natural key keep insertion order.
type Store struct {
	mu               sync.RWMutex
	categories       []domain.Category
	suppliers        []domain.Supplier
	materials        []domain.Material
	products         []domain.Product
	recipes          []domain.Recipe
	productionLogs   []domain.ProductionLog
	sales            []domain.Sale
	financialRecords []domain.FinancialRecord
	notifications    []domain.Notification
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// New returns an empty store with no user accounts.
func New() *Store {
	return &Store{usersByUsername: make(map[string]domain.UserAccount)}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD and fall
// back to dev defaults with a warning.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		zap.L().Warn("memory store is using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo users and a small bakery catalogue.
func NewSeeded() *Store {
	now := time.Now().UTC()
	d := decimal.RequireFromString

	s := New()
	s.usersByUsername = seedUsers()
	s.categories = []domain.Category{
		{ID: "cat-baking", Name: "Baking", Description: "Dry baking ingredients", CreatedAt: now},
		{ID: "cat-dairy", Name: "Dairy", Description: "Chilled dairy", CreatedAt: now},
		{ID: "cat-bread", Name: "Bread", Description: "Finished loaves", CreatedAt: now},
	}
	s.suppliers = []domain.Supplier{
		{ID: "sup-mill", Name: "Northern Mill", ContactName: "Ana", Email: "orders@northernmill.example", Phone: "+1 555 0100", CreatedAt: now},
	}
	s.materials = []domain.Material{
		{ID: "mat-flour", Name: "Flour", Unit: "kg", StockQuantity: d("100"), CostPerUnit: d("0.80"), CategoryID: "cat-baking", SupplierID: "sup-mill", ReorderLevel: d("20"), ReorderQuantity: d("100"), CreatedAt: now, UpdatedAt: now},
		{ID: "mat-sugar", Name: "Sugar", Unit: "kg", StockQuantity: d("40"), CostPerUnit: d("1.10"), CategoryID: "cat-baking", SupplierID: "sup-mill", ReorderLevel: d("10"), ReorderQuantity: d("50"), CreatedAt: now, UpdatedAt: now},
		{ID: "mat-butter", Name: "Butter", Unit: "kg", StockQuantity: d("15"), CostPerUnit: d("6.50"), CategoryID: "cat-dairy", ReorderLevel: d("5"), ReorderQuantity: d("20"), CreatedAt: now, UpdatedAt: now},
	}
	s.products = []domain.Product{
		{ID: "prd-sweet-loaf", Name: "Sweet Loaf", SKU: "LOAF-01", StockQuantity: d("10"), CategoryID: "cat-bread", CostPrice: d("2.70"), SalePrice: d("5.50"), CreatedAt: now, UpdatedAt: now},
		{ID: "prd-butter-cookie", Name: "Butter Cookie Box", SKU: "COOK-01", StockQuantity: d("25"), CategoryID: "cat-bread", CostPrice: d("1.90"), SalePrice: d("4.00"), CreatedAt: now, UpdatedAt: now},
	}
	s.recipes = []domain.Recipe{
		{ID: "rcp-loaf-flour", ProductID: "prd-sweet-loaf", MaterialID: "mat-flour", QuantityPerProduct: d("2"), CreatedAt: now},
		{ID: "rcp-loaf-sugar", ProductID: "prd-sweet-loaf", MaterialID: "mat-sugar", QuantityPerProduct: d("1"), CreatedAt: now},
		{ID: "rcp-cookie-flour", ProductID: "prd-butter-cookie", MaterialID: "mat-flour", QuantityPerProduct: d("0.5"), CreatedAt: now},
		{ID: "rcp-cookie-butter", ProductID: "prd-butter-cookie", MaterialID: "mat-butter", QuantityPerProduct: d("0.25"), CreatedAt: now},
	}
	return s
}

func (s *Store) ListCategories(_ context.Context, page store.Page) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.categories, func(a, b domain.Category) int { return cmpName(a.Name, b.Name) }, page), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.categories, id, categoryID)
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == "" || category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if s.categoryNameTaken(category.Name, "") {
		return nil, store.ErrDuplicate
	}
	s.categories = append(s.categories, category)
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.categories, category.ID, categoryID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if s.categoryNameTaken(category.Name, category.ID) {
		return nil, store.ErrDuplicate
	}
	category.CreatedAt = s.categories[idx].CreatedAt
	s.categories[idx] = category
	return &category, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.categories, ok = removeByID(s.categories, id, categoryID); !ok {
		return store.ErrNotFound
	}
	for i := range s.materials {
		if s.materials[i].CategoryID == id {
			s.materials[i].CategoryID = ""
		}
	}
	for i := range s.products {
		if s.products[i].CategoryID == id {
			s.products[i].CategoryID = ""
		}
	}
	return nil
}

func (s *Store) categoryNameTaken(name string, exceptID string) bool {
	for _, c := range s.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) ListSuppliers(_ context.Context, page store.Page) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.suppliers, func(a, b domain.Supplier) int { return cmpName(a.Name, b.Name) }, page), nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.suppliers, id, supplierID)
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if supplier.ID == "" || supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.suppliers = append(s.suppliers, supplier)
	return &supplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.suppliers, supplier.ID, supplierID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	supplier.CreatedAt = s.suppliers[idx].CreatedAt
	s.suppliers[idx] = supplier
	return &supplier, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.suppliers, ok = removeByID(s.suppliers, id, supplierID); !ok {
		return store.ErrNotFound
	}
	for i := range s.materials {
		if s.materials[i].SupplierID == id {
			s.materials[i].SupplierID = ""
		}
	}
	return nil
}

func (s *Store) ListMaterials(_ context.Context, page store.Page) ([]domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.materials, func(a, b domain.Material) int { return cmpName(a.Name, b.Name) }, page), nil
}

func (s *Store) GetMaterial(_ context.Context, id string) (*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.materials, id, materialID)
}

func (s *Store) GetMaterialsByIDs(_ context.Context, ids []string) (map[string]domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Material, len(ids))
	for _, id := range ids {
		if idx := indexOf(s.materials, id, materialID); idx >= 0 {
			result[id] = s.materials[idx]
		}
	}
	return result, nil
}

func (s *Store) CreateMaterial(_ context.Context, material domain.Material) (*domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if material.ID == "" || material.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if err := s.checkMaterialRefs(material); err != nil {
		return nil, err
	}
	s.materials = append(s.materials, material)
	return &material, nil
}

func (s *Store) UpdateMaterial(_ context.Context, material domain.Material) (*domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.materials, material.ID, materialID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if err := s.checkMaterialRefs(material); err != nil {
		return nil, err
	}
	material.CreatedAt = s.materials[idx].CreatedAt
	s.materials[idx] = material
	return &material, nil
}

func (s *Store) checkMaterialRefs(material domain.Material) error {
	if material.CategoryID != "" && indexOf(s.categories, material.CategoryID, categoryID) < 0 {
		return store.ErrNotFound
	}
	if material.SupplierID != "" && indexOf(s.suppliers, material.SupplierID, supplierID) < 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMaterial(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.materials, id, materialID) < 0 {
		return store.ErrNotFound
	}
	for _, r := range s.recipes {
		if r.MaterialID == id {
			return store.ErrConflict
		}
	}
	s.materials, _ = removeByID(s.materials, id, materialID)
	return nil
}

func (s *Store) ListProducts(_ context.Context, page store.Page) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.products, func(a, b domain.Product) int { return cmpName(a.Name, b.Name) }, page), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.products, id, productID)
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.CategoryID != "" && indexOf(s.categories, product.CategoryID, categoryID) < 0 {
		return nil, store.ErrNotFound
	}
	s.products = append(s.products, product)
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.products, product.ID, productID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if product.CategoryID != "" && indexOf(s.categories, product.CategoryID, categoryID) < 0 {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = s.products[idx].CreatedAt
	s.products[idx] = product
	return &product, nil
}

// DeleteProduct refuses products that recipes, sales or production logs
// still reference.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.products, id, productID) < 0 {
		return store.ErrNotFound
	}
	for _, r := range s.recipes {
		if r.ProductID == id {
			return store.ErrConflict
		}
	}
	for _, l := range s.productionLogs {
		if l.ProductID == id {
			return store.ErrConflict
		}
	}
	for _, sale := range s.sales {
		if sale.ProductID == id {
			return store.ErrConflict
		}
	}
	s.products, _ = removeByID(s.products, id, productID)
	return nil
}

func (s *Store) ListRecipes(_ context.Context, product string, page store.Page) ([]domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if product == "" || r.ProductID == product {
			rows = append(rows, r)
		}
	}
	return sortedPage(rows, func(a, b domain.Recipe) int { return b.CreatedAt.Compare(a.CreatedAt) }, page), nil
}

func (s *Store) GetRecipe(_ context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.recipes, id, recipeID)
}

func (s *Store) CreateRecipe(_ context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recipe.ID == "" {
		return nil, store.ErrInvalidInput
	}
	if err := s.checkRecipe(recipe); err != nil {
		return nil, err
	}
	s.recipes = append(s.recipes, recipe)
	return &recipe, nil
}

func (s *Store) UpdateRecipe(_ context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.recipes, recipe.ID, recipeID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if err := s.checkRecipe(recipe); err != nil {
		return nil, err
	}
	recipe.CreatedAt = s.recipes[idx].CreatedAt
	s.recipes[idx] = recipe
	return &recipe, nil
}

func (s *Store) checkRecipe(recipe domain.Recipe) error {
	if indexOf(s.products, recipe.ProductID, productID) < 0 || indexOf(s.materials, recipe.MaterialID, materialID) < 0 {
		return store.ErrNotFound
	}
	for _, r := range s.recipes {
		if r.ID != recipe.ID && r.ProductID == recipe.ProductID && r.MaterialID == recipe.MaterialID {
			return store.ErrDuplicate
		}
	}
	return nil
}

func (s *Store) DeleteRecipe(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.recipes, ok = removeByID(s.recipes, id, recipeID); !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListProductionLogs(_ context.Context, window store.TimeRange, page store.Page) ([]domain.ProductionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ProductionLog, 0, len(s.productionLogs))
	for _, l := range s.productionLogs {
		if window.Contains(l.CreatedAt) {
			rows = append(rows, l)
		}
	}
	return sortedPage(rows, func(a, b domain.ProductionLog) int { return b.CreatedAt.Compare(a.CreatedAt) }, page), nil
}

func (s *Store) GetProductionLog(_ context.Context, id string) (*domain.ProductionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.productionLogs, id, productionLogID)
}

func (s *Store) CreateProductionLog(_ context.Context, entry domain.ProductionLog, consumption []domain.MaterialConsumption) (*domain.ProductionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" || !entry.QuantityProduced.IsPositive() {
		return nil, store.ErrInvalidInput
	}
	productIdx := indexOf(s.products, entry.ProductID, productID)
	if productIdx < 0 {
		return nil, store.ErrNotFound
	}

	// Validate every line before touching stock so a failure leaves nothing half applied.
	targets := make([]int, len(consumption))
	for i, c := range consumption {
		idx := indexOf(s.materials, c.MaterialID, materialID)
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		if s.materials[idx].StockQuantity.LessThan(c.Quantity) {
			return nil, store.ErrInsufficientStock
		}
		targets[i] = idx
	}

	now := entry.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
		entry.CreatedAt = now
	}
	for i, c := range consumption {
		m := &s.materials[targets[i]]
		m.StockQuantity = m.StockQuantity.Sub(c.Quantity)
		m.UpdatedAt = now
	}
	p := &s.products[productIdx]
	p.StockQuantity = p.StockQuantity.Add(entry.QuantityProduced)
	p.UpdatedAt = now

	s.productionLogs = append(s.productionLogs, entry)
	return &entry, nil
}

func (s *Store) DeleteProductionLog(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.productionLogs, ok = removeByID(s.productionLogs, id, productionLogID); !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSales(_ context.Context, window store.TimeRange, page store.Page) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if window.Contains(sale.CreatedAt) {
			rows = append(rows, sale)
		}
	}
	return sortedPage(rows, func(a, b domain.Sale) int { return b.CreatedAt.Compare(a.CreatedAt) }, page), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.sales, id, saleID)
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sale.ID == "" {
		return nil, store.ErrInvalidInput
	}
	if indexOf(s.products, sale.ProductID, productID) < 0 {
		return nil, store.ErrNotFound
	}
	s.sales = append(s.sales, sale)
	return &sale, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.sales, sale.ID, saleID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if indexOf(s.products, sale.ProductID, productID) < 0 {
		return nil, store.ErrNotFound
	}
	sale.CreatedAt = s.sales[idx].CreatedAt
	s.sales[idx] = sale
	return &sale, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.sales, ok = removeByID(s.sales, id, saleID); !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListFinancialRecords(_ context.Context, page store.Page) ([]domain.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.financialRecords, func(a, b domain.FinancialRecord) int { return b.CreatedAt.Compare(a.CreatedAt) }, page), nil
}

func (s *Store) GetFinancialRecord(_ context.Context, id string) (*domain.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.financialRecords, id, financialRecordID)
}

func (s *Store) CreateFinancialRecord(_ context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		return nil, store.ErrInvalidInput
	}
	s.financialRecords = append(s.financialRecords, record)
	return &record, nil
}

func (s *Store) UpdateFinancialRecord(_ context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.financialRecords, record.ID, financialRecordID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	record.CreatedAt = s.financialRecords[idx].CreatedAt
	s.financialRecords[idx] = record
	return &record, nil
}

func (s *Store) DeleteFinancialRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.financialRecords, ok = removeByID(s.financialRecords, id, financialRecordID); !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, page store.Page) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Notification, 0, 16)
	for _, n := range s.notifications {
		if n.UserID == userID {
			rows = append(rows, n)
		}
	}
	return sortedPage(rows, func(a, b domain.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) }, page), nil
}

func (s *Store) CreateNotification(_ context.Context, notification domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if notification.ID == "" || notification.UserID == "" {
		return nil, store.ErrInvalidInput
	}
	s.notifications = append(s.notifications, notification)
	return &notification, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID string, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.notifications, id, notificationID)
	if idx < 0 || s.notifications[idx].UserID != userID {
		return nil, store.ErrNotFound
	}
	s.notifications[idx].Read = true
	n := s.notifications[idx]
	return &n, nil
}

func (s *Store) DeleteNotification(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.notifications, id, notificationID)
	if idx < 0 || s.notifications[idx].UserID != userID {
		return store.ErrNotFound
	}
	s.notifications = slices.Delete(s.notifications, idx, idx+1)
	return nil
}

func (s *Store) DashboardStats(_ context.Context) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{
		TotalProducts:   int64(len(s.products)),
		TotalMaterials:  int64(len(s.materials)),
		TotalSales:      decimal.Zero,
		TotalProduction: decimal.Zero,
	}
	for _, m := range s.materials {
		if m.LowStock() {
			stats.LowStockItems++
		}
	}
	for _, sale := range s.sales {
		stats.TotalSales = stats.TotalSales.Add(sale.TotalRevenue)
	}
	for _, l := range s.productionLogs {
		stats.TotalProduction = stats.TotalProduction.Add(l.QuantityProduced)
	}
	return stats, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		return store.ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPage(s.auditLogs, func(a, b domain.AuditLog) int { return b.CreatedAt.Compare(a.CreatedAt) }, store.Page{Limit: limit}), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return strings.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	if strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func categoryID(c domain.Category) string { return c.ID }
func supplierID(s domain.Supplier) string { return s.ID }
func materialID(m domain.Material) string { return m.ID }
func productID(p domain.Product) string { return p.ID }
func recipeID(r domain.Recipe) string { return r.ID }
func productionLogID(l domain.ProductionLog) string { return l.ID }
func saleID(s domain.Sale) string { return s.ID }
func financialRecordID(r domain.FinancialRecord) string { return r.ID }
func notificationID(n domain.Notification) string { return n.ID }

func indexOf[T any](rows []T, id string, idOf func(T) string) int {
	return slices.IndexFunc(rows, func(row T) bool { return idOf(row) == id })
}

func findByID[T any](rows []T, id string, idOf func(T) string) (*T, error) {
	idx := indexOf(rows, id, idOf)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	row := rows[idx]
	return &row, nil
}

func removeByID[T any](rows []T, id string, idOf func(T) string) ([]T, bool) {
	idx := indexOf(rows, id, idOf)
	if idx < 0 {
		return rows, false
	}
	return slices.Delete(rows, idx, idx+1), true
}

func sortedPage[T any](rows []T, cmp func(a, b T) int, page store.Page) []T {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, cmp)
	start, end := page.Window(len(sorted))
	out := make([]T, end-start)
	copy(out, sorted[start:end])
	return out
}

func cmpName(a string, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
