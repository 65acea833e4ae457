package columns

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Field maps one exported struct field to its database column.
type Field struct {
	Name      string
	Column    string
	Index     []int
	OmitEmpty bool
}

// StructMeta is the cached column mapping of one struct type.
type StructMeta struct {
	TypeName string
	Fields   []Field
}

var structCache sync.Map // map[reflect.Type]*StructMeta

// ForStruct returns the column mapping of v's struct type, parsing it on first use.
// Fields are mapped through `db:"column"` tags; `db:"-"` skips a field and
// `db:"column,omitempty"` skips zero values. Embedded structs are flattened.
//
// It panics when v is not a struct or pointer to struct, or when no field has a db tag.
func ForStruct(v any) *StructMeta {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("querykit: expected a struct or pointer to struct, got %T", v))
	}

	if cached, ok := structCache.Load(t); ok {
		return cached.(*StructMeta)
	}

	meta, err := parseStruct(t)
	if err != nil {
		panic(fmt.Sprintf("querykit: failed to parse struct %s: %v", t.Name(), err))
	}

	actual, _ := structCache.LoadOrStore(t, meta)
	return actual.(*StructMeta)
}

// Values extracts column names and values from v in field order.
func (m *StructMeta) Values(v any) ([]string, []any) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	cols := make([]string, 0, len(m.Fields))
	vals := make([]any, 0, len(m.Fields))
	for _, f := range m.Fields {
		fv, ok := fieldByIndex(rv, f.Index)
		if !ok {
			continue
		}
		if f.OmitEmpty && fv.IsZero() {
			continue
		}
		cols = append(cols, f.Column)
		vals = append(vals, fv.Interface())
	}
	return cols, vals
}

// Column returns the column mapped to the Go field name.
func (m *StructMeta) Column(fieldName string) (string, bool) {
	for _, f := range m.Fields {
		if f.Name == fieldName {
			return f.Column, true
		}
	}
	return "", false
}

func parseStruct(t reflect.Type) (*StructMeta, error) {
	meta := &StructMeta{TypeName: t.Name()}
	if err := collectFields(t, nil, meta); err != nil {
		return nil, err
	}
	if len(meta.Fields) == 0 {
		return nil, fmt.Errorf("no fields with `db` tags found in struct %s", t.Name())
	}
	return meta, nil
}

func collectFields(t reflect.Type, prefix []int, meta *StructMeta) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}

		if field.Anonymous && tag == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := collectFields(ft, index, meta); err != nil {
					return err
				}
				continue
			}
		}

		if !field.IsExported() || tag == "" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if err := validateTag(name, t.Name(), field.Name); err != nil {
			return err
		}
		meta.Fields = append(meta.Fields, Field{
			Name:      field.Name,
			Column:    name,
			Index:     index,
			OmitEmpty: opts == "omitempty",
		})
	}
	return nil
}

// validateTag rejects tags that could smuggle SQL into an identifier position.
func validateTag(tag, structName, fieldName string) error {
	if tag == "" {
		return fmt.Errorf("empty db tag on field %s.%s", structName, fieldName)
	}
	for _, d := range []string{";", "--", "/*", "*/", `"`, "'", "`", " "} {
		if strings.Contains(tag, d) {
			return fmt.Errorf("invalid db tag %q in field %s.%s: contains %q", tag, structName, fieldName, d)
		}
	}
	return nil
}

// fieldByIndex walks index, reporting false when it passes through a nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}
