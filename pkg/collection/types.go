// Package collection turns a spec document into a Postman v2.1 collection.
package collection

// SchemaV21 identifies the Postman collection format the builder emits.
const SchemaV21 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman collection: folders of requests plus
// collection-scoped auth, variables and scripts.
type Collection struct {
	Info     Info       `json:"info"`
	Item     []Folder   `json:"item"`
	Event    []Event    `json:"event"`
	Auth     Auth       `json:"auth"`
	Variable []Variable `json:"variable"`
}

// Info contains collection metadata.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
}

// Folder groups the requests that share a tag.
type Folder struct {
	Name        string `json:"name"`
	Item        []Item `json:"item"`
	Description string `json:"description"`
}

// Item is a single request in a folder.
type Item struct {
	Name    string  `json:"name"`
	Request Request `json:"request"`
}

// Request is a Postman request definition.
type Request struct {
	Method      string   `json:"method"`
	Header      []Header `json:"header"`
	URL         URL      `json:"url"`
	Description string   `json:"description"`
	Body        *Body    `json:"body,omitempty"`
}

// URL is a Postman URL with path variables and query parameters.
type URL struct {
	Raw      string       `json:"raw"`
	Host     []string     `json:"host"`
	Path     []string     `json:"path"`
	Variable []Variable   `json:"variable"`
	Query    []QueryParam `json:"query,omitempty"`
}

// Header is a request header.
type Header struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// QueryParam is a query string parameter. Optional parameters are disabled.
type QueryParam struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Disabled    bool   `json:"disabled"`
}

// Variable is a key/value pair used for URL path variables, collection
// variables and bearer auth entries.
type Variable struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Body is a raw request body.
type Body struct {
	Mode    string      `json:"mode"`
	Raw     string      `json:"raw"`
	Options BodyOptions `json:"options"`
}

// BodyOptions tells Postman how to highlight a raw body.
type BodyOptions struct {
	Raw RawOptions `json:"raw"`
}

// RawOptions holds the raw body language.
type RawOptions struct {
	Language string `json:"language"`
}

// Event attaches a script to a lifecycle hook such as "prerequest".
type Event struct {
	Listen string `json:"listen"`
	Script Script `json:"script"`
}

// Script is an executable script, one source line per element.
type Script struct {
	Type string   `json:"type"`
	Exec []string `json:"exec"`
}

// Auth is collection-level authentication.
type Auth struct {
	Type   string     `json:"type"`
	Bearer []Variable `json:"bearer,omitempty"`
}

// Name returns the collection name used for upsert lookups.
func (c *Collection) Name() string {
	return c.Info.Name
}

// EndpointCount returns the number of requests across all folders.
func (c *Collection) EndpointCount() int {
	n := 0
	for _, f := range c.Item {
		n += len(f.Item)
	}
	return n
}
