// Package columns caches the column layout of database tables and of Go structs
// mapped onto them through db tags.
package columns

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/querykit/database/dialect"
)

// Querier is the part of a connection the table registry needs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TableRegistry caches table descriptions per dialect for one database. Concurrent
// requests for the same uncached table share one catalog query.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]dialect.TableMeta
	group  singleflight.Group
}

// NewTableRegistry returns an empty registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{tables: make(map[string]dialect.TableMeta)}
}

func cacheKey(d dialect.Dialect, table string) string {
	return d.Name() + ":" + strings.ToLower(table)
}

// Describe returns the cached description of table, querying the catalog through q
// on first use. Tables the catalog does not know are returned empty and not cached.
func (r *TableRegistry) Describe(ctx context.Context, q Querier, d dialect.Dialect, table string) (dialect.TableMeta, error) {
	key := cacheKey(d, table)

	r.mu.RLock()
	meta, ok := r.tables[key]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		query, args := d.DescribeTableSQL(table)
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return dialect.TableMeta{}, fmt.Errorf("failed to describe table %s: %w", table, err)
		}
		defer rows.Close()

		meta, err := d.ScanTableMeta(table, rows)
		if err != nil {
			return dialect.TableMeta{}, err
		}

		if len(meta.Columns) > 0 {
			r.mu.Lock()
			r.tables[key] = meta
			r.mu.Unlock()
		}
		return meta, nil
	})
	if err != nil {
		return dialect.TableMeta{}, err
	}
	return v.(dialect.TableMeta), nil
}

// Store seeds the cache, e.g. for tables whose layout is known up front.
func (r *TableRegistry) Store(d dialect.Dialect, meta dialect.TableMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[cacheKey(d, meta.Name)] = meta
}

// Invalidate drops the cached description of table, e.g. after a migration.
func (r *TableRegistry) Invalidate(d dialect.Dialect, table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, cacheKey(d, table))
}

// Clear drops every cached description.
func (r *TableRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]dialect.TableMeta)
}
