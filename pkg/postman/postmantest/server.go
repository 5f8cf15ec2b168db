// Package postmantest provides an in-memory Postman API for tests.
package postmantest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Call records one request received by the server.
type Call struct {
	Method    string
	Path      string
	Workspace string
	APIKey    string
	Body      map[string]any
}

// Object is a stored collection or environment.
type Object struct {
	ID        string
	UID       string
	Name      string
	Workspace string
	Body      map[string]any
}

// Server is a stateful fake of the workspace, collection and environment
// endpoints.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	calls        []Call
	collections  []*Object
	environments []*Object
	next         int

	// Fail maps "METHOD /path" or a created object's name to a status code
	// the server answers with instead of handling the call.
	Fail map[string]int
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{Fail: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Mutations counts POST and PUT requests.
func (s *Server) Mutations() int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == http.MethodPost || c.Method == http.MethodPut {
			n++
		}
	}
	return n
}

// AddCollection seeds a collection.
func (s *Server) AddCollection(workspace, name string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.newObject(workspace, name, nil)
	s.collections = append(s.collections, o)
	return o
}

// AddEnvironment seeds an environment.
func (s *Server) AddEnvironment(workspace, name string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.newObject(workspace, name, nil)
	s.environments = append(s.environments, o)
	return o
}

// Collection returns the stored collection named name.
func (s *Server) Collection(name string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.collections, name)
}

// Environment returns the stored environment named name.
func (s *Server) Environment(name string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.environments, name)
}

func (s *Server) newObject(workspace, name string, body map[string]any) *Object {
	s.next++
	return &Object{
		ID:        fmt.Sprintf("id-%d", s.next),
		UID:       fmt.Sprintf("owner-id-%d", s.next),
		Name:      name,
		Workspace: workspace,
		Body:      body,
	}
}

func find(objs []*Object, name string) *Object {
	for _, o := range objs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{
		Method:    r.Method,
		Path:      r.URL.Path,
		Workspace: r.URL.Query().Get("workspace"),
		APIKey:    r.Header.Get("X-Api-Key"),
	}
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	s.calls = append(s.calls, call)

	if code, ok := s.Fail[r.Method+" "+r.URL.Path]; ok {
		http.Error(w, `{"error":{"name":"forced"}}`, code)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "workspaces":
		refs := []map[string]string{}
		for _, o := range s.collections {
			if o.Workspace == parts[1] {
				refs = append(refs, ref(o))
			}
		}
		writeJSON(w, map[string]any{"workspace": map[string]any{"id": parts[1], "collections": refs}})

	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "environments":
		refs := []map[string]string{}
		for _, o := range s.environments {
			if call.Workspace == "" || o.Workspace == call.Workspace {
				refs = append(refs, ref(o))
			}
		}
		writeJSON(w, map[string]any{"environments": refs})

	case r.Method == http.MethodPost && len(parts) == 1 && (parts[0] == "collections" || parts[0] == "environments"):
		kind := strings.TrimSuffix(parts[0], "s")
		body, _ := call.Body[kind].(map[string]any)
		name := objectName(kind, body)
		if code, ok := s.Fail[name]; ok {
			http.Error(w, `{"error":{"name":"forced"}}`, code)
			return
		}
		o := s.newObject(call.Workspace, name, body)
		if kind == "collection" {
			s.collections = append(s.collections, o)
		} else {
			s.environments = append(s.environments, o)
		}
		writeJSON(w, map[string]any{kind: ref(o)})

	case r.Method == http.MethodPut && len(parts) == 2 && (parts[0] == "collections" || parts[0] == "environments"):
		kind := strings.TrimSuffix(parts[0], "s")
		objs := s.environments
		if kind == "collection" {
			objs = s.collections
		}
		for _, o := range objs {
			if o.UID == parts[1] || o.ID == parts[1] {
				body, _ := call.Body[kind].(map[string]any)
				o.Body = body
				writeJSON(w, map[string]any{kind: ref(o)})
				return
			}
		}
		http.Error(w, `{"error":{"name":"instanceNotFoundError"}}`, http.StatusNotFound)

	default:
		http.NotFound(w, r)
	}
}

func objectName(kind string, body map[string]any) string {
	if kind == "collection" {
		info, _ := body["info"].(map[string]any)
		name, _ := info["name"].(string)
		return name
	}
	name, _ := body["name"].(string)
	return name
}

func ref(o *Object) map[string]string {
	return map[string]string{"id": o.ID, "uid": o.UID, "name": o.Name}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
