package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const (
	categoryColumns = `id, name, description, created_at`
	supplierColumns = `id, name, contact_name, email, phone, address, created_at`
	materialColumns = `id, name, unit, stock_quantity, cost_per_unit,
		COALESCE(category_id, '') AS category_id, COALESCE(supplier_id, '') AS supplier_id,
		reorder_level, reorder_quantity, created_at, updated_at`
	productColumns = `id, name, sku, description, stock_quantity,
		COALESCE(category_id, '') AS category_id, cost_price, sale_price, created_at, updated_at`
	recipeColumns          = `id, product_id, material_id, quantity_per_product, created_at`
	productionLogColumns   = `id, product_id, quantity_produced, total_cost, notes, created_by, created_at`
	saleColumns            = `id, product_id, quantity_sold, sale_price, total_revenue, customer_name, created_at`
	financialRecordColumns = `id, type, amount, description, created_at`
	notificationColumns    = `id, user_id, message, read, created_at`
)

func (s *Store) ListCategories(ctx context.Context, page store.Page) ([]domain.Category, error) {
	rows := make([]domain.Category, 0, 32)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY lower(name), created_at
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.GetContext(ctx, &category, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var created domain.Category
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO categories (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		category.ID, category.Name, category.Description, defaultNow(category.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var updated domain.Category
	err := s.db.GetContext(ctx, &updated, `
		UPDATE categories SET name = $2, description = $3
		WHERE id = $1
		RETURNING `+categoryColumns,
		category.ID, category.Name, category.Description)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "categories", id)
}

func (s *Store) ListSuppliers(ctx context.Context, page store.Page) ([]domain.Supplier, error) {
	rows := make([]domain.Supplier, 0, 32)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+supplierColumns+`
		FROM suppliers
		ORDER BY lower(name), created_at
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	if err := s.db.GetContext(ctx, &supplier, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &supplier, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	var created domain.Supplier
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO suppliers (id, name, contact_name, email, phone, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+supplierColumns,
		supplier.ID, supplier.Name, supplier.ContactName, supplier.Email, supplier.Phone, supplier.Address, defaultNow(supplier.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	var updated domain.Supplier
	err := s.db.GetContext(ctx, &updated, `
		UPDATE suppliers
		SET name = $2, contact_name = $3, email = $4, phone = $5, address = $6
		WHERE id = $1
		RETURNING `+supplierColumns,
		supplier.ID, supplier.Name, supplier.ContactName, supplier.Email, supplier.Phone, supplier.Address)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "suppliers", id)
}

func (s *Store) ListMaterials(ctx context.Context, page store.Page) ([]domain.Material, error) {
	rows := make([]domain.Material, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+materialColumns+`
		FROM materials
		ORDER BY lower(name), created_at
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetMaterial(ctx context.Context, id string) (*domain.Material, error) {
	var material domain.Material
	if err := s.db.GetContext(ctx, &material, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &material, nil
}

func (s *Store) GetMaterialsByIDs(ctx context.Context, ids []string) (map[string]domain.Material, error) {
	result := make(map[string]domain.Material, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows := make([]domain.Material, 0, len(ids))
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+materialColumns+` FROM materials WHERE id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	for _, m := range rows {
		result[m.ID] = m
	}
	return result, nil
}

func (s *Store) CreateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error) {
	now := defaultNow(material.CreatedAt)
	var created domain.Material
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO materials (
			id, name, unit, stock_quantity, cost_per_unit, category_id, supplier_id,
			reorder_level, reorder_quantity, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+materialColumns,
		material.ID, material.Name, material.Unit, material.StockQuantity, material.CostPerUnit,
		nullIfEmpty(material.CategoryID), nullIfEmpty(material.SupplierID),
		material.ReorderLevel, material.ReorderQuantity, now)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error) {
	var updated domain.Material
	err := s.db.GetContext(ctx, &updated, `
		UPDATE materials
		SET name = $2, unit = $3, stock_quantity = $4, cost_per_unit = $5, category_id = $6,
			supplier_id = $7, reorder_level = $8, reorder_quantity = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+materialColumns,
		material.ID, material.Name, material.Unit, material.StockQuantity, material.CostPerUnit,
		nullIfEmpty(material.CategoryID), nullIfEmpty(material.SupplierID),
		material.ReorderLevel, material.ReorderQuantity)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "materials", id)
}

func (s *Store) ListProducts(ctx context.Context, page store.Page) ([]domain.Product, error) {
	rows := make([]domain.Product, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY lower(name), created_at
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	now := defaultNow(product.CreatedAt)
	var created domain.Product
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO products (
			id, name, sku, description, stock_quantity, category_id, cost_price, sale_price, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+productColumns,
		product.ID, product.Name, product.SKU, product.Description, product.StockQuantity,
		nullIfEmpty(product.CategoryID), product.CostPrice, product.SalePrice, now)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var updated domain.Product
	err := s.db.GetContext(ctx, &updated, `
		UPDATE products
		SET name = $2, sku = $3, description = $4, stock_quantity = $5, category_id = $6,
			cost_price = $7, sale_price = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID, product.Name, product.SKU, product.Description, product.StockQuantity,
		nullIfEmpty(product.CategoryID), product.CostPrice, product.SalePrice)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id)
}

func (s *Store) ListRecipes(ctx context.Context, productID string, page store.Page) ([]domain.Recipe, error) {
	rows := make([]domain.Recipe, 0, 32)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE ($1::text IS NULL OR product_id = $1)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2::int, 0) OFFSET $3
	`, nullIfEmpty(productID), page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	var recipe domain.Recipe
	if err := s.db.GetContext(ctx, &recipe, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &recipe, nil
}

func (s *Store) CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	var created domain.Recipe
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO recipes (id, product_id, material_id, quantity_per_product, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+recipeColumns,
		recipe.ID, recipe.ProductID, recipe.MaterialID, recipe.QuantityPerProduct, defaultNow(recipe.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	var updated domain.Recipe
	err := s.db.GetContext(ctx, &updated, `
		UPDATE recipes SET product_id = $2, material_id = $3, quantity_per_product = $4
		WHERE id = $1
		RETURNING `+recipeColumns,
		recipe.ID, recipe.ProductID, recipe.MaterialID, recipe.QuantityPerProduct)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "recipes", id)
}

func (s *Store) ListProductionLogs(ctx context.Context, window store.TimeRange, page store.Page) ([]domain.ProductionLog, error) {
	rows := make([]domain.ProductionLog, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+productionLogColumns+`
		FROM production_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($3::int, 0) OFFSET $4
	`, nullTime(window.From), nullTime(window.To), page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetProductionLog(ctx context.Context, id string) (*domain.ProductionLog, error) {
	var entry domain.ProductionLog
	if err := s.db.GetContext(ctx, &entry, `SELECT `+productionLogColumns+` FROM production_logs WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &entry, nil
}

// CreateProductionLog locks the product and every consumed material row,
// re-checks stock under the lock and applies all movements in one transaction.
func (s *Store) CreateProductionLog(ctx context.Context, entry domain.ProductionLog, consumption []domain.MaterialConsumption) (*domain.ProductionLog, error) {
	if entry.ID == "" || !entry.QuantityProduced.IsPositive() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var productID string
	if err := tx.GetContext(ctx, &productID, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, entry.ProductID); err != nil {
		return nil, mapReadError(err)
	}

	ids := make([]string, 0, len(consumption))
	for _, c := range consumption {
		ids = append(ids, c.MaterialID)
	}
	var locked []struct {
		ID            string          `db:"id"`
		StockQuantity decimal.Decimal `db:"stock_quantity"`
	}
	if len(ids) > 0 {
		// Fixed lock order keeps concurrent runs from deadlocking.
		if err := tx.SelectContext(ctx, &locked, `
			SELECT id, stock_quantity
			FROM materials
			WHERE id = ANY($1)
			ORDER BY id
			FOR UPDATE
		`, ids); err != nil {
			return nil, err
		}
	}
	stock := make(map[string]decimal.Decimal, len(locked))
	for _, row := range locked {
		stock[row.ID] = row.StockQuantity
	}
	for _, c := range consumption {
		available, ok := stock[c.MaterialID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if available.LessThan(c.Quantity) {
			return nil, store.ErrInsufficientStock
		}
	}

	for _, c := range consumption {
		if _, err := tx.ExecContext(ctx, `
			UPDATE materials
			SET stock_quantity = stock_quantity - $2, updated_at = now()
			WHERE id = $1
		`, c.MaterialID, c.Quantity); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1
	`, entry.ProductID, entry.QuantityProduced); err != nil {
		return nil, err
	}

	var created domain.ProductionLog
	err = tx.GetContext(ctx, &created, `
		INSERT INTO production_logs (id, product_id, quantity_produced, total_cost, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productionLogColumns,
		entry.ID, entry.ProductID, entry.QuantityProduced, entry.TotalCost, entry.Notes, entry.CreatedBy, defaultNow(entry.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) DeleteProductionLog(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "production_logs", id)
}

func (s *Store) ListSales(ctx context.Context, window store.TimeRange, page store.Page) ([]domain.Sale, error) {
	rows := make([]domain.Sale, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($3::int, 0) OFFSET $4
	`, nullTime(window.From), nullTime(window.To), page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	var created domain.Sale
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO sales (id, product_id, quantity_sold, sale_price, total_revenue, customer_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+saleColumns,
		sale.ID, sale.ProductID, sale.QuantitySold, sale.SalePrice, sale.TotalRevenue, sale.CustomerName, defaultNow(sale.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	var updated domain.Sale
	err := s.db.GetContext(ctx, &updated, `
		UPDATE sales
		SET product_id = $2, quantity_sold = $3, sale_price = $4, total_revenue = $5, customer_name = $6
		WHERE id = $1
		RETURNING `+saleColumns,
		sale.ID, sale.ProductID, sale.QuantitySold, sale.SalePrice, sale.TotalRevenue, sale.CustomerName)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "sales", id)
}

func (s *Store) ListFinancialRecords(ctx context.Context, page store.Page) ([]domain.FinancialRecord, error) {
	rows := make([]domain.FinancialRecord, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+financialRecordColumns+`
		FROM financial_records
		ORDER BY created_at DESC, id
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) GetFinancialRecord(ctx context.Context, id string) (*domain.FinancialRecord, error) {
	var record domain.FinancialRecord
	if err := s.db.GetContext(ctx, &record, `SELECT `+financialRecordColumns+` FROM financial_records WHERE id = $1`, id); err != nil {
		return nil, mapReadError(err)
	}
	return &record, nil
}

func (s *Store) CreateFinancialRecord(ctx context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error) {
	var created domain.FinancialRecord
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO financial_records (id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+financialRecordColumns,
		record.ID, record.Type, record.Amount, record.Description, defaultNow(record.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) UpdateFinancialRecord(ctx context.Context, record domain.FinancialRecord) (*domain.FinancialRecord, error) {
	var updated domain.FinancialRecord
	err := s.db.GetContext(ctx, &updated, `
		UPDATE financial_records SET type = $2, amount = $3, description = $4
		WHERE id = $1
		RETURNING `+financialRecordColumns,
		record.ID, record.Type, record.Amount, record.Description)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteFinancialRecord(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "financial_records", id)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, page store.Page) ([]domain.Notification, error) {
	rows := make([]domain.Notification, 0, 16)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2::int, 0) OFFSET $3
	`, userID, page.Limit, page.Offset)
	return rows, err
}

func (s *Store) CreateNotification(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	var created domain.Notification
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO notifications (id, user_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+notificationColumns,
		notification.ID, notification.UserID, notification.Message, notification.Read, defaultNow(notification.CreatedAt))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &created, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id string) (*domain.Notification, error) {
	var updated domain.Notification
	err := s.db.GetContext(ctx, &updated, `
		UPDATE notifications SET read = true
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns,
		id, userID)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteNotification(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT count(*) FROM products) AS total_products,
			(SELECT count(*) FROM materials) AS total_materials,
			(SELECT COALESCE(sum(total_revenue), 0) FROM sales) AS total_sales,
			(SELECT count(*) FROM materials WHERE stock_quantity <= reorder_level) AS low_stock_items,
			(SELECT COALESCE(sum(quantity_produced), 0) FROM production_logs) AS total_production
	`)
	return stats, err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, defaultNow(entry.CreatedAt))
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows := make([]domain.AuditLog, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id
		LIMIT NULLIF($1::int, 0)
	`, limit)
	return rows, err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" || user.Role == "" {
		return store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, user.Username, user.Password, user.Role, user.Active, defaultNow(user.CreatedAt))
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	err := s.db.SelectContext(ctx, &users, `
		SELECT username, password_hash, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	return users, err
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password_hash = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// deleteByID removes one row. table is always a package constant.
func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteError translates constraint failures on insert and update. A
// foreign key failure there means the referenced row does not exist.
func mapWriteError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case isUniqueViolation(err):
		return store.ErrDuplicate
	case isForeignKeyViolation(err):
		return store.ErrNotFound
	case isCheckViolation(err):
		return store.ErrInvalidInput
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isCheckViolation(err error) bool {
	return pgCode(err) == "23514"
}

func defaultNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
