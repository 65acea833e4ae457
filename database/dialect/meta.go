package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

// ColumnMeta describes one column as reported by the database catalog.
type ColumnMeta struct {
	Name          string
	Type          string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
}

// TableMeta is the cached description of one table.
type TableMeta struct {
	Name    string
	Columns []ColumnMeta
}

// Lookup returns the column named name, ignoring case.
func (t TableMeta) Lookup(name string) (ColumnMeta, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// Has reports whether the table has a column named name.
func (t TableMeta) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// PrimaryKeys returns the primary key columns in catalog order.
func (t TableMeta) PrimaryKeys() []ColumnMeta {
	var pks []ColumnMeta
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// ColumnNames returns the column names in catalog order.
func (t TableMeta) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// catalogRow is the raw shape of one DescribeTableSQL result row.
type catalogRow struct {
	name, typ, nullable, key, extra string
}

// scanCatalog reads the five-column catalog result set shared by every dialect.
func scanCatalog(table string, rows *sql.Rows, interpret func(catalogRow) ColumnMeta) (TableMeta, error) {
	meta := TableMeta{Name: table}
	for rows.Next() {
		var name, typ, nullable, key, extra sql.NullString
		if err := rows.Scan(&name, &typ, &nullable, &key, &extra); err != nil {
			return TableMeta{}, fmt.Errorf("failed to scan column metadata for %s: %w", table, err)
		}
		meta.Columns = append(meta.Columns, interpret(catalogRow{
			name:     name.String,
			typ:      typ.String,
			nullable: nullable.String,
			key:      key.String,
			extra:    extra.String,
		}))
	}
	if err := rows.Err(); err != nil {
		return TableMeta{}, fmt.Errorf("failed to read column metadata for %s: %w", table, err)
	}
	return meta, nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "pri":
		return true
	}
	return false
}
