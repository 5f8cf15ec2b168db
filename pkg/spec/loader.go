package spec

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format is the textual serialization of a spec file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the serialization from the file extension: YAML for
// .yaml/.yml, strict JSON for everything else.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// NotFoundError is returned when the spec file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("spec file not found: %s", e.Path)
}

// ParseError wraps the syntax error of a spec that could not be parsed.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s spec %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads and parses the spec at path from the local filesystem.
func Load(path string) (*Document, []byte, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// LoadFS reads and parses the spec at path from fsys. It returns the parsed
// document and the raw text it was parsed from.
func LoadFS(fsys afero.Fs, path string) (*Document, []byte, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &NotFoundError{Path: path}
		}
		return nil, nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	doc, err := Parse(raw, FormatFor(path))
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, nil, err
	}
	return doc, raw, nil
}

// Parse decodes raw in the given format.
func Parse(raw []byte, format Format) (*Document, error) {
	var (
		root any
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = parseYAML(raw)
	default:
		root, err = parseJSON(raw)
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}

	switch v := root.(type) {
	case nil:
		return NewDocument(nil), nil
	case *Map:
		return NewDocument(v), nil
	default:
		return nil, &ParseError{Format: format, Err: fmt.Errorf("document root must be a mapping, got %T", root)}
	}
}

// Fingerprint is the first 8 hex characters of the MD5 of the raw spec text.
func Fingerprint(raw []byte) string {
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])[:8]
}

// maxNodes bounds how many nodes a document may expand to once aliases are
// followed.
const maxNodes = 1 << 20

func parseYAML(raw []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, nil
	}
	d := &nodeDecoder{active: make(map[*yaml.Node]bool)}
	return d.decode(node.Content[0])
}

// nodeDecoder converts a yaml.Node tree into Maps, lists and scalars.
type nodeDecoder struct {
	active map[*yaml.Node]bool // anchors currently being expanded
	count  int
}

func (d *nodeDecoder) decode(n *yaml.Node) (any, error) {
	d.count++
	if d.count > maxNodes {
		return nil, fmt.Errorf("document expands to more than %d nodes", maxNodes)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unknown anchor %q", n.Line, n.Value)
		}
		if d.active[n.Alias] {
			return nil, fmt.Errorf("line %d: anchor %q references itself", n.Line, n.Value)
		}
		d.active[n.Alias] = true
		defer delete(d.active, n.Alias)
		return d.decode(n.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				if err := d.mergeInto(m, v); err != nil {
					return nil, err
				}
				continue
			}
			val, err := d.decode(v)
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := d.decode(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	default:
		return scalar(n)
	}
}

// mergeInto applies a YAML merge key ("<<") without overriding keys already set.
func (d *nodeDecoder) mergeInto(m *Map, v *yaml.Node) error {
	sources := []*yaml.Node{v}
	if v.Kind == yaml.SequenceNode {
		sources = v.Content
	}
	for _, src := range sources {
		val, err := d.decode(src)
		if err != nil {
			return err
		}
		sm, ok := val.(*Map)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for _, k := range sm.Keys() {
			if !m.Has(k) {
				sv, _ := sm.Get(k)
				m.Set(k, sv)
			}
		}
	}
	return nil
}

func scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool", "!!int", "!!float":
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return n.Value, nil
	}
}

func parseJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("unexpected end of JSON input")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", kt)
				}
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return t, nil
	}
}
