package spec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billingYAML = `openapi: 3.0.3
info:
  title: Billing API
  version: 2.1.0
paths:
  /zeta:
    get:
      operationId: getZeta
  /alpha:
    post:
      operationId: postAlpha
    get:
      operationId: getAlpha
`

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))
}

func TestLoadFS_YAMLPreservesOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "specs/billing.yaml", billingYAML)

	doc, raw, err := LoadFS(fsys, "specs/billing.yaml")
	require.NoError(t, err)
	assert.Equal(t, billingYAML, string(raw))
	assert.Equal(t, "Billing API", doc.Title())
	assert.Equal(t, "2.1.0", doc.Version())
	assert.Equal(t, []string{"/zeta", "/alpha"}, doc.Paths().Keys())

	var got []string
	for _, op := range doc.Operations() {
		got = append(got, op.Method+" "+op.Path)
	}
	assert.Equal(t, []string{"get /zeta", "post /alpha", "get /alpha"}, got)
}

func TestLoadFS_JSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "api.json", `{
	"swagger": "2.0",
	"info": {"title": "Legacy", "version": 3},
	"paths": {"/b": {}, "/a": {}}
}`)

	doc, _, err := LoadFS(fsys, "api.json")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", doc.Title())
	assert.Equal(t, "3", doc.Version())
	assert.Equal(t, []string{"/b", "/a"}, doc.Paths().Keys())
}

func TestLoadFS_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "broken.json", `{"openapi": "3.0.0",}`)
	writeFile(t, fsys, "broken.yml", "info: [unclosed\n")
	writeFile(t, fsys, "list.yaml", "- a\n- b\n")
	// YAML content behind a non-YAML extension is parsed as strict JSON.
	writeFile(t, fsys, "spec.txt", "openapi: 3.0.0\n")

	tests := []struct {
		name       string
		path       string
		wantFormat Format
		notFound   bool
	}{
		{name: "missing file", path: "nope.yaml", notFound: true},
		{name: "invalid json", path: "broken.json", wantFormat: FormatJSON},
		{name: "invalid yaml", path: "broken.yml", wantFormat: FormatYAML},
		{name: "non-mapping root", path: "list.yaml", wantFormat: FormatYAML},
		{name: "yaml under other extension", path: "spec.txt", wantFormat: FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadFS(fsys, tt.path)
			require.Error(t, err)

			if tt.notFound {
				var nf *NotFoundError
				require.True(t, errors.As(err, &nf), "want NotFoundError, got %T", err)
				assert.Equal(t, tt.path, nf.Path)
				return
			}

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %T", err)
			assert.Equal(t, tt.wantFormat, perr.Format)
			assert.Equal(t, tt.path, perr.Path)
			assert.NotNil(t, perr.Unwrap())
		})
	}
}

func TestParse_EmptyYAMLIsEmptyDocument(t *testing.T) {
	doc, err := Parse([]byte(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Root().Len())
	assert.Equal(t, "API Collection", doc.Title())
}

func TestParse_YAMLAnchorsAndMerge(t *testing.T) {
	doc, err := Parse([]byte(`base: &base
  type: string
  example: x
field:
  <<: *base
  example: y
`), FormatYAML)
	require.NoError(t, err)

	field := doc.Root().Map("field")
	assert.Equal(t, "string", field.String("type"))
	assert.Equal(t, "y", field.String("example"))
}

func TestParse_YAMLAliasReuse(t *testing.T) {
	doc, err := Parse([]byte(`ids: &ids [a, b]
first: *ids
second: *ids
`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, doc.Root().List("first"))
	assert.Equal(t, []any{"a", "b"}, doc.Root().List("second"))
}

func TestParse_YAMLAliasLimits(t *testing.T) {
	var laughs strings.Builder
	laughs.WriteString("a0: &a0 [lol, lol, lol, lol, lol, lol, lol, lol, lol, lol]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&laughs, "a%d: &a%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				laughs.WriteString(", ")
			}
			fmt.Fprintf(&laughs, "*a%d", i-1)
		}
		laughs.WriteString("]\n")
	}

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name: "self-referencing schema",
			src: `openapi: 3.0.0
info: {title: T}
paths: {}
components:
  schemas:
    Node: &n
      type: object
      properties:
        child: *n
`,
			wantErr: `anchor "n" references itself`,
		},
		{
			name:    "exponential expansion",
			src:     laughs.String(),
			wantErr: "document expands to more than",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), FormatYAML)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMap_MarshalJSONKeepsOrder(t *testing.T) {
	m := NewMap()
	m.Set("zeta", 1)
	m.Set("alpha", []any{true, nil})
	inner := NewMap()
	inner.Set("b", "x")
	inner.Set("a", "y")
	m.Set("inner", inner)
	m.Set("zeta", 2)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":[true,null],"inner":{"b":"x","a":"y"}}`, string(b))
}

func TestFingerprint(t *testing.T) {
	// md5("") = d41d8cd98f00b204e9800998ecf8427e
	assert.Equal(t, "d41d8cd9", Fingerprint(nil))
	assert.Len(t, Fingerprint([]byte(billingYAML)), 8)
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}

func TestDocument_Resolve(t *testing.T) {
	doc, err := Parse([]byte(`components:
  schemas:
    Charge:
      type: object
`), FormatYAML)
	require.NoError(t, err)

	ref := NewMap()
	ref.Set("$ref", "#/components/schemas/Charge")
	assert.Equal(t, "object", doc.Resolve(ref, "schemas").String("type"))

	dangling := NewMap()
	dangling.Set("$ref", "#/components/schemas/Missing")
	assert.Nil(t, doc.Resolve(dangling, "schemas"))

	plain := NewMap()
	plain.Set("type", "string")
	assert.Same(t, plain, doc.Resolve(plain, "schemas"))
}
