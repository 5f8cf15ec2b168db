package collection

import (
	"encoding/json"

	"github.com/blackcoderx/postsync/pkg/spec"
)

// ExtractExample returns an example payload for a JSON media type. In order
// it uses the media type's own "example", the value of the first entry in
// "examples", the schema's "example", and finally an object synthesized from
// the schema's properties. The schema may be a single local reference into
// components.schemas; nested schemas are not expanded.
//
// The result is an empty object when nothing yields an example.
func ExtractExample(media *spec.Map, doc *spec.Document) any {
	if v, ok := media.Get("example"); ok {
		return v
	}

	if examples := media.Map("examples"); examples.Len() > 0 {
		first := examples.Map(examples.Keys()[0])
		if v, ok := first.Get("value"); ok {
			return v
		}
		return spec.NewMap()
	}

	schema := resolveSchema(media, doc)
	if schema == nil {
		return spec.NewMap()
	}

	if v, ok := schema.Get("example"); ok {
		return v
	}

	example := spec.NewMap()
	props := schema.Map("properties")
	for _, name := range props.Keys() {
		prop := props.Map(name)
		if v, ok := prop.Get("example"); ok {
			example.Set(name, v)
			continue
		}
		if v, ok := placeholder(prop.String("type")); ok {
			example.Set(name, v)
		}
	}
	return example
}

func resolveSchema(media *spec.Map, doc *spec.Document) *spec.Map {
	schema := media.Map("schema")
	if schema == nil {
		return nil
	}
	return doc.Resolve(schema, "schemas")
}

// placeholder maps a schema type to a stand-in value. Unhandled types are
// left out of synthesized examples.
func placeholder(typ string) (any, bool) {
	switch typ {
	case "string":
		return "string", true
	case "integer":
		return 0, true
	case "boolean":
		return true, true
	default:
		return nil, false
	}
}

// renderExample serializes an example as indented JSON, keeping document key
// order. Empty or zero examples render as "{}".
func renderExample(v any) string {
	if isEmpty(v) {
		return "{}"
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *spec.Map:
		return t.Len() == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case int64:
		return t == 0
	case uint64:
		return t == 0
	case float64:
		return t == 0
	default:
		return false
	}
}
