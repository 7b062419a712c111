// Package state holds client-side containers that cache one page of rows per
// entity and reconcile them with the server after every write.
package state

import (
	"context"
	"slices"
	"sync"

	"stockroom/internal/store"
)

// Source is the remote end of a container, usually the HTTP client.
type Source[T any, I any] interface {
	List(ctx context.Context, page store.Page) ([]T, error)
	Create(ctx context.Context, in I) (T, error)
	Update(ctx context.Context, id string, in I) (T, error)
	Delete(ctx context.Context, id string) error
}

// Container caches the current page of T. Local rows only ever change to
// what the server echoed back; a failed call leaves them as they were.
type Container[T any, I any] struct {
	source   Source[T, I]
	id       func(T) string
	pageSize int

	mu   sync.RWMutex
	rows []T
	page int
	err  string
}

func New[T any, I any](source Source[T, I], id func(T) string, pageSize int) *Container[T, I] {
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	return &Container[T, I]{source: source, id: id, pageSize: pageSize}
}

// Fetch loads the first page.
func (c *Container[T, I]) Fetch(ctx context.Context) error {
	return c.FetchPage(ctx, 0)
}

// FetchPage replaces the cached rows with page n, counting from zero.
func (c *Container[T, I]) FetchPage(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	rows, err := c.source.List(ctx, store.Page{Offset: n * c.pageSize, Limit: c.pageSize})
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err.Error()
		return err
	}
	c.rows = rows
	c.page = n
	c.err = ""
	return nil
}

// Add creates a row and appends the server's copy.
func (c *Container[T, I]) Add(ctx context.Context, in I) (T, error) {
	row, err := c.source.Create(ctx, in)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err.Error()
		var zero T
		return zero, err
	}
	c.rows = append(c.rows, row)
	c.err = ""
	return row, nil
}

// Update writes the row and swaps in the server's copy when it is cached.
func (c *Container[T, I]) Update(ctx context.Context, id string, in I) (T, error) {
	row, err := c.source.Update(ctx, id, in)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err.Error()
		var zero T
		return zero, err
	}
	if i := c.indexOf(id); i >= 0 {
		c.rows[i] = row
	}
	c.err = ""
	return row, nil
}

// Delete removes the row remotely, then drops exactly that row locally.
func (c *Container[T, I]) Delete(ctx context.Context, id string) error {
	err := c.source.Delete(ctx, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err.Error()
		return err
	}
	if i := c.indexOf(id); i >= 0 {
		c.rows = slices.Delete(c.rows, i, i+1)
	}
	c.err = ""
	return nil
}

// Rows returns a copy of the cached page.
func (c *Container[T, I]) Rows() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.rows)
}

func (c *Container[T, I]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.rows[i], true
	}
	var zero T
	return zero, false
}

// Page is the zero-based index of the cached page.
func (c *Container[T, I]) Page() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page
}

// Err is the message of the last failed call, empty after a success.
func (c *Container[T, I]) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Container[T, I]) indexOf(id string) int {
	return slices.IndexFunc(c.rows, func(row T) bool { return c.id(row) == id })
}
