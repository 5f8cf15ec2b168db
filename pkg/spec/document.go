// Package spec loads OpenAPI and Swagger documents into an order-preserving
// tree and checks them against the minimal rules a sync run needs.
package spec

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Methods are the operation keys a sync run recognizes, in lowercase as they
// appear under a path item. Anything else under a path item is ignored.
var Methods = []string{"get", "post", "put", "patch", "delete"}

// IsMethod reports whether key is one of Methods.
func IsMethod(key string) bool {
	for _, m := range Methods {
		if key == m {
			return true
		}
	}
	return false
}

// Map is a string-keyed mapping that remembers insertion order.
// All methods are safe to call on a nil *Map, which behaves as empty.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (m *Map) Set(key string, v any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present, even with a null value.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Map returns the child mapping under key, or nil if absent or not a mapping.
func (m *Map) Map(key string) *Map {
	v, _ := m.Get(key)
	child, _ := v.(*Map)
	return child
}

// List returns the child sequence under key, or nil.
func (m *Map) List(key string) []any {
	v, _ := m.Get(key)
	list, _ := v.([]any)
	return list
}

// String returns the string under key, or "" if absent or not a string.
func (m *Map) String(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// Bool returns the boolean under key, or false.
func (m *Map) Bool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// MarshalJSON encodes the mapping with its keys in document order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Operation is one (path, method) pair of a document.
type Operation struct {
	Path     string
	Method   string
	Details  *Map // nil when the method value is not a mapping
	PathItem *Map
}

// Document is a parsed OpenAPI or Swagger specification.
type Document struct {
	root *Map
}

// NewDocument wraps an already-built root mapping.
func NewDocument(root *Map) *Document {
	if root == nil {
		root = NewMap()
	}
	return &Document{root: root}
}

// Root returns the top-level mapping.
func (d *Document) Root() *Map {
	return d.root
}

// Info returns the info section, or nil.
func (d *Document) Info() *Map {
	return d.root.Map("info")
}

// Title returns info.title or "API Collection".
func (d *Document) Title() string {
	if t := d.Info().String("title"); t != "" {
		return t
	}
	return "API Collection"
}

// Version returns info.version or "1.0.0".
func (d *Document) Version() string {
	v, ok := d.Info().Get("version")
	if !ok || v == nil {
		return "1.0.0"
	}
	if s, isString := v.(string); isString {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Description returns info.description.
func (d *Document) Description() string {
	return d.Info().String("description")
}

// Paths returns the paths section, or nil.
func (d *Document) Paths() *Map {
	return d.root.Map("paths")
}

// Component returns components.<kind>.<name>, or nil.
func (d *Document) Component(kind, name string) *Map {
	return d.root.Map("components").Map(kind).Map(name)
}

// Resolve follows a single local "$ref" on m into components.<kind>. The
// component is looked up by the last segment of the reference. A mapping
// without "$ref" is returned unchanged; a dangling reference yields nil.
func (d *Document) Resolve(m *Map, kind string) *Map {
	ref := m.String("$ref")
	if ref == "" {
		return m
	}
	name := ref[strings.LastIndex(ref, "/")+1:]
	return d.Component(kind, name)
}

// Operations lists every recognized (path, method) pair, following path
// order and then method order as written in the document.
func (d *Document) Operations() []Operation {
	var ops []Operation
	paths := d.Paths()
	for _, path := range paths.Keys() {
		item := paths.Map(path)
		for _, method := range item.Keys() {
			if !IsMethod(method) {
				continue
			}
			ops = append(ops, Operation{
				Path:     path,
				Method:   method,
				Details:  item.Map(method),
				PathItem: item,
			})
		}
	}
	return ops
}
