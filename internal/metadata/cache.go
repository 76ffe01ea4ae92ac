package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
)

const loadQuery = `
SELECT
	t.id, t.schema_name, t.table_name,
	f.id, f.name, f.base_type, f.special_type
FROM metadata.tables t
LEFT JOIN metadata.fields f ON f.table_id = t.id
ORDER BY t.id, f.id
`

// Cache is an in-memory, mutex-guarded Table/Field store loaded from
// Postgres. Load rebuilds the maps from a fresh query result and swaps them
// in under the lock in one assignment, so concurrent Table/Field reads
// during a reload never observe a half-populated cache.
type Cache struct {
	mu     sync.RWMutex
	tables map[int]Table
	fields map[int]Field
}

// NewCache returns an empty Cache. Call Load before using it.
func NewCache() *Cache {
	return &Cache{tables: make(map[int]Table), fields: make(map[int]Field)}
}

// Load queries Postgres for every table/field record and atomically
// replaces the cache's contents.
func (c *Cache) Load(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, loadQuery)
	if err != nil {
		return fmt.Errorf("metadata cache load: %w", err)
	}
	defer rows.Close()

	tables := make(map[int]Table)
	fields := make(map[int]Field)

	for rows.Next() {
		var (
			tID         int
			tSchema     string
			tName       string
			fID         *int
			fName       *string
			fBaseType   *string
			fSpecialTyp *string
		)
		if err := rows.Scan(&tID, &tSchema, &tName, &fID, &fName, &fBaseType, &fSpecialTyp); err != nil {
			return fmt.Errorf("metadata cache scan: %w", err)
		}
		if _, ok := tables[tID]; !ok {
			tables[tID] = Table{ID: tID, Schema: tSchema, Name: tName}
		}
		if fID != nil {
			field := Field{ID: *fID, TableID: tID, Name: *fName}
			if fBaseType != nil {
				field.BaseType = *fBaseType
			}
			if fSpecialTyp != nil {
				field.SpecialType = *fSpecialTyp
			}
			fields[*fID] = field
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("metadata cache rows: %w", err)
	}

	c.mu.Lock()
	c.tables = tables
	c.fields = fields
	c.mu.Unlock()

	return nil
}

func (c *Cache) Table(id int) (Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[id]
	if !ok {
		return Table{}, &mbqlerrors.MetadataMiss{Kind: "table", ID: id}
	}
	return t, nil
}

func (c *Cache) Field(id int) (Field, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.fields[id]
	if !ok {
		return Field{}, &mbqlerrors.MetadataMiss{Kind: "field", ID: id}
	}
	return f, nil
}

// Count returns the number of loaded tables, used by health/readiness checks.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
