package collection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blackcoderx/postsync/pkg/spec"
)

// DefaultTag names the folder for operations without tags.
const DefaultTag = "General"

// pathParamPattern matches {name} placeholders in a path template.
var pathParamPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// Builder converts spec documents into collections.
type Builder struct {
	// Script is attached as the collection prerequest hook. Empty disables it.
	Script string
}

// NewBuilder returns a builder that injects AuthScript.
func NewBuilder() *Builder {
	return &Builder{Script: AuthScript}
}

// Build converts doc into a collection. Requests are grouped into one folder
// per first tag; folders appear in the order their tag is first seen and
// requests keep document order within a folder.
func (b *Builder) Build(doc *spec.Document) *Collection {
	c := &Collection{
		Info: Info{
			Name:        doc.Title(),
			Description: doc.Description(),
			Schema:      SchemaV21,
		},
		Item:  []Folder{},
		Event: []Event{},
		Auth: Auth{
			Type: "bearer",
			Bearer: []Variable{
				{Key: "token", Value: "{{jwt_token}}", Type: "string"},
			},
		},
		Variable: []Variable{
			{Key: "base_url", Value: "{{base_url}}", Type: "string"},
		},
	}

	if b.Script != "" {
		c.Event = append(c.Event, prerequest(b.Script))
	}

	index := make(map[string]int)
	for _, op := range doc.Operations() {
		tag := firstTag(op.Details)
		i, ok := index[tag]
		if !ok {
			i = len(c.Item)
			index[tag] = i
			c.Item = append(c.Item, Folder{
				Name:        tag,
				Item:        []Item{},
				Description: fmt.Sprintf("Endpoints tagged with '%s'", tag),
			})
		}
		c.Item[i].Item = append(c.Item[i].Item, BuildRequest(op, doc))
	}

	return c
}

func firstTag(details *spec.Map) string {
	tags := details.List("tags")
	if len(tags) == 0 {
		return DefaultTag
	}
	if tag, ok := tags[0].(string); ok && tag != "" {
		return tag
	}
	return DefaultTag
}

// BuildRequest converts a single operation into a request item.
func BuildRequest(op spec.Operation, doc *spec.Document) Item {
	method := strings.ToUpper(op.Method)
	params := parameters(op, doc)

	var (
		variables []Variable
		query     []QueryParam
		headers   = []Header{}
		seen      = make(map[string]bool)
	)
	for _, p := range params {
		name := p.String("name")
		if name == "" {
			continue
		}
		switch p.String("in") {
		case "path":
			if seen[name] {
				continue
			}
			seen[name] = true
			variables = append(variables, Variable{
				Key:         name,
				Value:       "{{" + name + "}}",
				Description: p.String("description"),
			})
		case "query":
			query = append(query, QueryParam{
				Key:         name,
				Value:       "",
				Description: p.String("description"),
				Disabled:    !p.Bool("required"),
			})
		case "header":
			headers = append(headers, Header{
				Key:         name,
				Value:       "",
				Description: p.String("description"),
			})
		}
	}

	// Placeholders in the template always get a variable, declared or not.
	for _, m := range pathParamPattern.FindAllStringSubmatch(op.Path, -1) {
		if name := m[1]; !seen[name] {
			seen[name] = true
			variables = append(variables, Variable{Key: name, Value: "{{" + name + "}}"})
		}
	}
	if variables == nil {
		variables = []Variable{}
	}

	path := pathParamPattern.ReplaceAllString(op.Path, ":$1")
	segments := []string{}
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	req := Request{
		Method: method,
		Header: headers,
		URL: URL{
			Raw:      "{{base_url}}" + path,
			Host:     []string{"{{base_url}}"},
			Path:     segments,
			Variable: variables,
			Query:    query,
		},
		Description: op.Details.String("description"),
	}

	if media := jsonMedia(op.Details, doc); media != nil {
		req.Body = &Body{
			Mode:    "raw",
			Raw:     renderExample(ExtractExample(media, doc)),
			Options: BodyOptions{Raw: RawOptions{Language: "json"}},
		}
		req.Header = append(req.Header, Header{Key: "Content-Type", Value: "application/json"})
	}

	name := op.Details.String("summary")
	if name == "" {
		name = method + " " + op.Path
	}

	return Item{Name: name, Request: req}
}

// parameters merges path-item and operation parameters. An operation
// parameter replaces a path-item parameter with the same name and location.
// Each entry may be a local reference into components.parameters.
func parameters(op spec.Operation, doc *spec.Document) []*spec.Map {
	var out []*spec.Map
	pos := make(map[string]int)
	add := func(list []any) {
		for _, raw := range list {
			p, ok := raw.(*spec.Map)
			if !ok {
				continue
			}
			if p = doc.Resolve(p, "parameters"); p == nil {
				continue
			}
			key := p.String("in") + "\x00" + p.String("name")
			if i, dup := pos[key]; dup {
				out[i] = p
				continue
			}
			pos[key] = len(out)
			out = append(out, p)
		}
	}
	add(op.PathItem.List("parameters"))
	add(op.Details.List("parameters"))
	return out
}

// jsonMedia returns the application/json media type of the operation's
// request body, or nil when it declares none.
func jsonMedia(details *spec.Map, doc *spec.Document) *spec.Map {
	body := details.Map("requestBody")
	if body == nil {
		return nil
	}
	if body = doc.Resolve(body, "requestBodies"); body == nil {
		return nil
	}
	content := body.Map("content")
	if !content.Has("application/json") {
		return nil
	}
	media := content.Map("application/json")
	if media == nil {
		return spec.NewMap()
	}
	return media
}
