package builder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gaborage/querykit/database/types"
)

// maxGeneratedKeyLength keeps generated placeholder names within Oracle's identifier limit.
const maxGeneratedKeyLength = 30

// BindingType is the inferred parameter type of a binding.
type BindingType int

const (
	BindString BindingType = iota
	BindInt
	BindBool
	BindNull
)

func (t BindingType) String() string {
	switch t {
	case BindInt:
		return "int"
	case BindBool:
		return "bool"
	case BindNull:
		return "null"
	default:
		return "string"
	}
}

// InferBindingType maps a Go value to the parameter type a driver binds it as.
func InferBindingType(v any) BindingType {
	if v == nil {
		return BindNull
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return BindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return BindInt
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return BindNull
		}
		return InferBindingType(rv.Elem().Interface())
	}
	return BindString
}

// BindingEntry pairs a placeholder key with its value.
type BindingEntry struct {
	Key   string
	Value any
	Type  BindingType
}

// BindingRegistry holds a statement's bindings in the order they were registered.
type BindingRegistry struct {
	entries []BindingEntry
	index   map[string]int
}

// NewBindingRegistry returns an empty registry.
func NewBindingRegistry() *BindingRegistry {
	return &BindingRegistry{index: make(map[string]int)}
}

// Add registers value under key. A key may only be registered once.
func (r *BindingRegistry) Add(key string, value any) error {
	if _, exists := r.index[key]; exists {
		return fmt.Errorf("%w: %s", types.ErrPlaceholderCollision, key)
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, BindingEntry{Key: key, Value: value, Type: InferBindingType(value)})
	return nil
}

// Lookup returns the binding registered under key.
func (r *BindingRegistry) Lookup(key string) (BindingEntry, bool) {
	i, ok := r.index[key]
	if !ok {
		return BindingEntry{}, false
	}
	return r.entries[i], true
}

func (r *BindingRegistry) Len() int { return len(r.entries) }

// Entries returns a copy of the bindings in registration order.
func (r *BindingRegistry) Entries() []BindingEntry {
	return append([]BindingEntry(nil), r.entries...)
}

// keyAllocator hands out placeholder keys for one compilation. Keys derived from column
// names are reserved up front so generated keys never take them.
type keyAllocator struct {
	used map[string]struct{}
	raw  int
}

func newKeyAllocator() *keyAllocator {
	return &keyAllocator{used: make(map[string]struct{})}
}

// reserve claims key exactly or fails with ErrPlaceholderCollision.
func (k *keyAllocator) reserve(key string) error {
	if _, exists := k.used[key]; exists {
		return fmt.Errorf("%w: %s", types.ErrPlaceholderCollision, key)
	}
	k.used[key] = struct{}{}
	return nil
}

// generate claims base, or base_2, base_3, ... when base is taken.
func (k *keyAllocator) generate(base string) string {
	if _, exists := k.used[base]; !exists {
		k.used[base] = struct{}{}
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if _, exists := k.used[candidate]; !exists {
			k.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// nextRaw claims the next free rawN key.
func (k *keyAllocator) nextRaw() string {
	for {
		k.raw++
		candidate := "raw" + strconv.Itoa(k.raw)
		if _, exists := k.used[candidate]; !exists {
			k.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// columnKey derives the placeholder key for a where() column. With joins present a
// dotted column binds under its column part; otherwise the dots become underscores.
func columnKey(column string, joined bool) string {
	col := strings.TrimSpace(column)
	if idx := strings.LastIndex(col, "."); idx >= 0 && joined {
		col = col[idx+1:]
	}
	return sanitizeKey(col)
}

// valueKey derives a placeholder key from a literal value, as used by between and in.
func valueKey(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		s = "null"
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		s = fmt.Sprint(x)
	}
	key := sanitizeKey(strings.TrimSpace(s))
	if len(key) > maxGeneratedKeyLength {
		key = strings.TrimRight(key[:maxGeneratedKeyLength], "_")
	}
	return key
}

// sanitizeKey maps s onto [A-Za-z_][A-Za-z0-9_]*; runs of other bytes collapse to one
// underscore and a leading digit gets a "p" prefix.
func sanitizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	pendingUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		isWord := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !isWord {
			pendingUnderscore = b.Len() > 0
			continue
		}
		if pendingUnderscore {
			b.WriteByte('_')
			pendingUnderscore = false
		}
		b.WriteByte(c)
	}

	key := b.String()
	switch {
	case key == "":
		return "p"
	case key[0] >= '0' && key[0] <= '9':
		return "p" + key
	}
	return key
}
