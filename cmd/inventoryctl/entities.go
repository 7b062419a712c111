package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"stockroom/internal/client"
	"stockroom/internal/domain"
	"stockroom/internal/state"
	"stockroom/internal/store"
)

type filters struct {
	productID string
	window    store.TimeRange
}

// entityOps is what the generic commands need from one entity.
type entityOps interface {
	list(ctx context.Context, page int, size int) (any, error)
	get(ctx context.Context, id string) (any, error)
	remove(ctx context.Context, id string) error
}

type entity[T any, I any] struct {
	res *client.Resource[T, I]
	id  func(T) string
}

// list goes through a state container so paging matches the web client.
func (e entity[T, I]) list(ctx context.Context, page int, size int) (any, error) {
	rows := state.New[T, I](e.res, e.id, size)
	if err := rows.FetchPage(ctx, page); err != nil {
		return nil, err
	}
	return rows.Rows(), nil
}

func (e entity[T, I]) get(ctx context.Context, id string) (any, error) {
	return e.res.Get(ctx, id)
}

func (e entity[T, I]) remove(ctx context.Context, id string) error {
	return e.res.Delete(ctx, id)
}

var entities = map[string]func(c *client.Client, f filters) entityOps{
	"categories": func(c *client.Client, _ filters) entityOps {
		return entity[domain.Category, domain.CategoryInput]{c.Categories(), func(v domain.Category) string { return v.ID }}
	},
	"suppliers": func(c *client.Client, _ filters) entityOps {
		return entity[domain.Supplier, domain.SupplierInput]{c.Suppliers(), func(v domain.Supplier) string { return v.ID }}
	},
	"materials": func(c *client.Client, _ filters) entityOps {
		return entity[domain.Material, domain.MaterialInput]{c.Materials(), func(v domain.Material) string { return v.ID }}
	},
	"products": func(c *client.Client, _ filters) entityOps {
		return entity[domain.Product, domain.ProductInput]{c.Products(), func(v domain.Product) string { return v.ID }}
	},
	"recipes": func(c *client.Client, f filters) entityOps {
		return entity[domain.Recipe, domain.RecipeInput]{c.Recipes(f.productID), func(v domain.Recipe) string { return v.ID }}
	},
	"production-logs": func(c *client.Client, f filters) entityOps {
		return entity[domain.ProductionLog, domain.ProductionLogInput]{c.ProductionLogs(f.window), func(v domain.ProductionLog) string { return v.ID }}
	},
	"sales": func(c *client.Client, f filters) entityOps {
		return entity[domain.Sale, domain.SaleInput]{c.Sales(f.window), func(v domain.Sale) string { return v.ID }}
	},
	"financial-records": func(c *client.Client, _ filters) entityOps {
		return entity[domain.FinancialRecord, domain.FinancialRecordInput]{c.FinancialRecords(), func(v domain.FinancialRecord) string { return v.ID }}
	},
}

func entityNames() []string {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupEntity(name string, c *client.Client, f filters) (entityOps, error) {
	build, ok := entities[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (want one of %s)", name, strings.Join(entityNames(), ", "))
	}
	return build(c, f), nil
}
