package httpapi

import (
	"context"
	"net/http"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

// resource wires the list/get/create/update/delete routes of one entity.
// A nil update leaves PUT unrouted.
type resource[T any, I any] struct {
	path   string
	one    string
	many   string
	list   func(r *http.Request, page store.Page) ([]T, error)
	get    func(ctx context.Context, id string) (T, error)
	create func(ctx context.Context, in I) (T, error)
	update func(ctx context.Context, id string, in I) (T, error)
	remove func(ctx context.Context, id string) error
}

func (res resource[T, I]) register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	item := res.path + "/{id}"

	mux.HandleFunc("GET "+res.path, wrap(func(w http.ResponseWriter, r *http.Request) {
		rows, err := res.list(r, parsePage(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		writeJSON(w, http.StatusOK, map[string]any{res.many: rows})
	}))

	mux.HandleFunc("POST "+res.path, wrap(func(w http.ResponseWriter, r *http.Request) {
		var in I
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		row, err := res.create(r.Context(), in)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{res.one: row})
	}))

	mux.HandleFunc("GET "+item, wrap(func(w http.ResponseWriter, r *http.Request) {
		row, err := res.get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{res.one: row})
	}))

	if res.update != nil {
		mux.HandleFunc("PUT "+item, wrap(func(w http.ResponseWriter, r *http.Request) {
			var in I
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			row, err := res.update(r.Context(), r.PathValue("id"), in)
			if err != nil {
				respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{res.one: row})
		}))
	}

	mux.HandleFunc("DELETE "+item, wrap(func(w http.ResponseWriter, r *http.Request) {
		if err := res.remove(r.Context(), r.PathValue("id")); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
}

func (a *API) registerResources(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	svc := a.service

	resource[domain.Category, domain.CategoryInput]{
		path: "/api/v1/categories", one: "category", many: "categories",
		list: func(r *http.Request, page store.Page) ([]domain.Category, error) {
			return svc.ListCategories(r.Context(), page)
		},
		get: svc.GetCategory, create: svc.CreateCategory, update: svc.UpdateCategory, remove: svc.DeleteCategory,
	}.register(mux, wrap)

	resource[domain.Supplier, domain.SupplierInput]{
		path: "/api/v1/suppliers", one: "supplier", many: "suppliers",
		list: func(r *http.Request, page store.Page) ([]domain.Supplier, error) {
			return svc.ListSuppliers(r.Context(), page)
		},
		get: svc.GetSupplier, create: svc.CreateSupplier, update: svc.UpdateSupplier, remove: svc.DeleteSupplier,
	}.register(mux, wrap)

	resource[domain.Material, domain.MaterialInput]{
		path: "/api/v1/materials", one: "material", many: "materials",
		list: func(r *http.Request, page store.Page) ([]domain.Material, error) {
			return svc.ListMaterials(r.Context(), page)
		},
		get: svc.GetMaterial, create: svc.CreateMaterial, update: svc.UpdateMaterial, remove: svc.DeleteMaterial,
	}.register(mux, wrap)

	resource[domain.Product, domain.ProductInput]{
		path: "/api/v1/products", one: "product", many: "products",
		list: func(r *http.Request, page store.Page) ([]domain.Product, error) {
			return svc.ListProducts(r.Context(), page)
		},
		get: svc.GetProduct, create: svc.CreateProduct, update: svc.UpdateProduct, remove: svc.DeleteProduct,
	}.register(mux, wrap)

	resource[domain.Recipe, domain.RecipeInput]{
		path: "/api/v1/recipes", one: "recipe", many: "recipes",
		list: func(r *http.Request, page store.Page) ([]domain.Recipe, error) {
			return svc.ListRecipes(r.Context(), strings.TrimSpace(r.URL.Query().Get("product_id")), page)
		},
		get: svc.GetRecipe, create: svc.CreateRecipe, update: svc.UpdateRecipe, remove: svc.DeleteRecipe,
	}.register(mux, wrap)

	// Production logs are append-only apart from delete.
	resource[domain.ProductionLog, domain.ProductionLogInput]{
		path: "/api/v1/production-logs", one: "production_log", many: "production_logs",
		list: func(r *http.Request, page store.Page) ([]domain.ProductionLog, error) {
			window, err := a.parseTimeRange(r)
			if err != nil {
				return nil, err
			}
			return svc.ListProductionLogs(r.Context(), window, page)
		},
		get: svc.GetProductionLog, create: svc.CreateProductionLog, remove: svc.DeleteProductionLog,
	}.register(mux, wrap)

	resource[domain.Sale, domain.SaleInput]{
		path: "/api/v1/sales", one: "sale", many: "sales",
		list: func(r *http.Request, page store.Page) ([]domain.Sale, error) {
			window, err := a.parseTimeRange(r)
			if err != nil {
				return nil, err
			}
			return svc.ListSales(r.Context(), window, page)
		},
		get: svc.GetSale, create: svc.CreateSale, update: svc.UpdateSale, remove: svc.DeleteSale,
	}.register(mux, wrap)

	resource[domain.FinancialRecord, domain.FinancialRecordInput]{
		path: "/api/v1/financial-records", one: "financial_record", many: "financial_records",
		list: func(r *http.Request, page store.Page) ([]domain.FinancialRecord, error) {
			return svc.ListFinancialRecords(r.Context(), page)
		},
		get: svc.GetFinancialRecord, create: svc.CreateFinancialRecord, update: svc.UpdateFinancialRecord, remove: svc.DeleteFinancialRecord,
	}.register(mux, wrap)
}
