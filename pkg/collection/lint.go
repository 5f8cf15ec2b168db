package collection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/postsync/pkg/spec"
	"github.com/xeipuuv/gojsonschema"
)

// Lint checks every synthesized request body against the schema it was
// built from and returns one message per violation. Placeholder values such
// as "string" do not satisfy formats, enums or required properties, so the
// messages point at bodies that need editing before they are sent.
//
// Findings are advisory. Schemas that cannot be compiled are skipped.
func Lint(doc *spec.Document) []string {
	var out []string
	for _, op := range doc.Operations() {
		media := jsonMedia(op.Details, doc)
		schema := media.Map("schema")
		if schema == nil {
			continue
		}

		example, err := json.Marshal(ExtractExample(media, doc))
		if err != nil {
			continue
		}

		compiled, err := compileSchema(schema, doc)
		if err != nil {
			continue
		}

		result, err := compiled.Validate(gojsonschema.NewBytesLoader(example))
		if err != nil {
			continue
		}
		for _, e := range result.Errors() {
			out = append(out, fmt.Sprintf("%s %s: example %s", strings.ToUpper(op.Method), op.Path, e.String()))
		}
	}
	return out
}

// compileSchema compiles schema with the document's components attached so
// local references resolve against them.
func compileSchema(schema *spec.Map, doc *spec.Document) (*gojsonschema.Schema, error) {
	root := spec.NewMap()
	for _, k := range schema.Keys() {
		v, _ := schema.Get(k)
		root.Set(k, v)
	}
	if components := doc.Root().Map("components"); components != nil && !root.Has("components") {
		root.Set("components", components)
	}

	b, err := json.Marshal(root)
	if err != nil {
		return nil, err
	}

	loader := gojsonschema.NewSchemaLoader()
	loader.Draft = gojsonschema.Draft4
	loader.AutoDetect = false
	return loader.Compile(gojsonschema.NewBytesLoader(b))
}
