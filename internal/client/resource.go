package client

import (
	"context"
	"net/http"
	"net/url"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

// Resource is the CRUD surface of one entity. It satisfies state.Source so a
// state.Container can sit on top of it.
type Resource[T any, I any] struct {
	client *Client
	path   string
	one    string
	many   string
	query  url.Values
}

func newResource[T any, I any](c *Client, path string, one string, many string, query url.Values) *Resource[T, I] {
	return &Resource[T, I]{client: c, path: path, one: one, many: many, query: query}
}

func (r *Resource[T, I]) List(ctx context.Context, page store.Page) ([]T, error) {
	query := pageQuery(page)
	for key, values := range r.query {
		query[key] = values
	}
	var rows []T
	err := r.client.do(ctx, http.MethodGet, r.path, query, nil, envelope(r.many, &rows))
	return rows, err
}

func (r *Resource[T, I]) Get(ctx context.Context, id string) (T, error) {
	var row T
	err := r.client.do(ctx, http.MethodGet, r.item(id), nil, nil, envelope(r.one, &row))
	return row, err
}

func (r *Resource[T, I]) Create(ctx context.Context, in I) (T, error) {
	var row T
	err := r.client.do(ctx, http.MethodPost, r.path, nil, in, envelope(r.one, &row))
	return row, err
}

func (r *Resource[T, I]) Update(ctx context.Context, id string, in I) (T, error) {
	var row T
	err := r.client.do(ctx, http.MethodPut, r.item(id), nil, in, envelope(r.one, &row))
	return row, err
}

func (r *Resource[T, I]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}

func (r *Resource[T, I]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (c *Client) Categories() *Resource[domain.Category, domain.CategoryInput] {
	return newResource[domain.Category, domain.CategoryInput](c, "/api/v1/categories", "category", "categories", nil)
}

func (c *Client) Suppliers() *Resource[domain.Supplier, domain.SupplierInput] {
	return newResource[domain.Supplier, domain.SupplierInput](c, "/api/v1/suppliers", "supplier", "suppliers", nil)
}

func (c *Client) Materials() *Resource[domain.Material, domain.MaterialInput] {
	return newResource[domain.Material, domain.MaterialInput](c, "/api/v1/materials", "material", "materials", nil)
}

func (c *Client) Products() *Resource[domain.Product, domain.ProductInput] {
	return newResource[domain.Product, domain.ProductInput](c, "/api/v1/products", "product", "products", nil)
}

// Recipes lists every recipe line, or only those of productID when set.
func (c *Client) Recipes(productID string) *Resource[domain.Recipe, domain.RecipeInput] {
	query := url.Values{}
	if productID != "" {
		query.Set("product_id", productID)
	}
	return newResource[domain.Recipe, domain.RecipeInput](c, "/api/v1/recipes", "recipe", "recipes", query)
}

// ProductionLogs has no Update on the server; calling it yields a 405 APIError.
func (c *Client) ProductionLogs(window store.TimeRange) *Resource[domain.ProductionLog, domain.ProductionLogInput] {
	return newResource[domain.ProductionLog, domain.ProductionLogInput](c, "/api/v1/production-logs", "production_log", "production_logs", windowQuery(window))
}

func (c *Client) Sales(window store.TimeRange) *Resource[domain.Sale, domain.SaleInput] {
	return newResource[domain.Sale, domain.SaleInput](c, "/api/v1/sales", "sale", "sales", windowQuery(window))
}

func (c *Client) FinancialRecords() *Resource[domain.FinancialRecord, domain.FinancialRecordInput] {
	return newResource[domain.FinancialRecord, domain.FinancialRecordInput](c, "/api/v1/financial-records", "financial_record", "financial_records", nil)
}
