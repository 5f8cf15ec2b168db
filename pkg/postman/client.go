// Package postman is a small client for the Postman API covering the
// collection and environment upserts a sync run needs.
package postman

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults applied by NewClient.
const (
	DefaultBaseURL      = "https://api.getpostman.com"
	DefaultTimeout      = 30 * time.Second
	DefaultThrottleWait = 60 * time.Second
	DefaultMaxRetries   = 1

	// PreviewAPIKey stands in for the API key in preview mode.
	PreviewAPIKey = "dry-run-key"
)

// Action reports what an upsert did.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
)

// Ref identifies a remote collection or environment.
type Ref struct {
	ID   string `json:"id"`
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Reference returns the uid, falling back to the id, then "unknown".
func (r Ref) Reference() string {
	switch {
	case r.UID != "":
		return r.UID
	case r.ID != "":
		return r.ID
	default:
		return "unknown"
	}
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL string
	APIKey  string

	// Preview suppresses all network I/O. Every call logs and returns a
	// placeholder object instead.
	Preview bool

	Timeout      time.Duration
	ThrottleWait time.Duration
	// MaxRetries bounds retries of a throttled call. Zero selects
	// DefaultMaxRetries, negative disables retries.
	MaxRetries int
	// RequestsPerSecond paces outgoing calls. Zero means unlimited.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Sleep      func(ctx context.Context, d time.Duration) error
	Logger     *zap.Logger
}

// Client talks to the Postman API. Collection and environment listings are
// cached per workspace for the life of the client and are not refreshed
// after a create.
type Client struct {
	baseURL      string
	apiKey       string
	preview      bool
	throttleWait time.Duration
	maxRetries   int
	http         *http.Client
	limiter      *rate.Limiter
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *zap.Logger

	collections  map[string][]Ref
	environments map[string][]Ref
}

// NewClient returns a client configured by opts.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		if !opts.Preview {
			return nil, ErrMissingAPIKey
		}
		opts.APIKey = PreviewAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ThrottleWait <= 0 {
		opts.ThrottleWait = DefaultThrottleWait
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		preview:      opts.Preview,
		throttleWait: opts.ThrottleWait,
		maxRetries:   opts.MaxRetries,
		http:         opts.HTTPClient,
		limiter:      rate.NewLimiter(limit, 1),
		sleep:        opts.Sleep,
		logger:       opts.Logger,
		collections:  make(map[string][]Ref),
		environments: make(map[string][]Ref),
	}, nil
}

// Preview reports whether the client suppresses network I/O.
func (c *Client) Preview() bool {
	return c.preview
}

// Collections lists the collections of a workspace.
func (c *Client) Collections(ctx context.Context, workspaceID string) ([]Ref, error) {
	if refs, ok := c.collections[workspaceID]; ok {
		return refs, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/workspaces/"+url.PathEscape(workspaceID), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Workspace struct {
			Collections []Ref `json:"collections"`
		} `json:"workspace"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode workspace %s: %w", workspaceID, err)
	}

	c.collections[workspaceID] = resp.Workspace.Collections
	return resp.Workspace.Collections, nil
}

// Environments lists the environments of a workspace.
func (c *Client) Environments(ctx context.Context, workspaceID string) ([]Ref, error) {
	if refs, ok := c.environments[workspaceID]; ok {
		return refs, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/environments?"+workspaceQuery(workspaceID), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Environments []Ref `json:"environments"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode environments: %w", err)
	}

	c.environments[workspaceID] = resp.Environments
	return resp.Environments, nil
}

// FindCollection returns the collection named name, or nil if there is
// none. More than one match is ErrDuplicateName.
func (c *Client) FindCollection(ctx context.Context, workspaceID, name string) (*Ref, error) {
	refs, err := c.Collections(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return findByName(refs, "collection", name)
}

// FindEnvironment returns the environment named name, or nil if there is
// none. More than one match is ErrDuplicateName.
func (c *Client) FindEnvironment(ctx context.Context, workspaceID, name string) (*Ref, error) {
	refs, err := c.Environments(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return findByName(refs, "environment", name)
}

func findByName(refs []Ref, kind, name string) (*Ref, error) {
	var found *Ref
	for i := range refs {
		if refs[i].Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: more than one %s named %q", ErrDuplicateName, kind, name)
		}
		found = &refs[i]
	}
	return found, nil
}

// UpsertCollection updates the collection with the same name as
// collection, or creates it in the workspace if none exists.
func (c *Client) UpsertCollection(ctx context.Context, workspaceID, name string, collection any) (Ref, Action, error) {
	existing, err := c.FindCollection(ctx, workspaceID, name)
	if err != nil {
		return Ref{}, "", err
	}
	payload := map[string]any{"collection": collection}

	if existing != nil {
		c.logger.Info("updating collection", zap.String("name", name))
		ref, err := c.write(ctx, http.MethodPut, "/collections/"+url.PathEscape(refKey(*existing)), "collection", payload)
		return ref, Updated, err
	}

	c.logger.Info("creating collection", zap.String("name", name))
	ref, err := c.write(ctx, http.MethodPost, "/collections?"+workspaceQuery(workspaceID), "collection", payload)
	return ref, Created, err
}

// UpsertEnvironment updates the environment with the same name as
// environment, or creates it in the workspace if none exists.
func (c *Client) UpsertEnvironment(ctx context.Context, workspaceID, name string, environment any) (Ref, Action, error) {
	existing, err := c.FindEnvironment(ctx, workspaceID, name)
	if err != nil {
		return Ref{}, "", err
	}
	payload := map[string]any{"environment": environment}

	if existing != nil {
		c.logger.Info("updating environment", zap.String("name", name))
		ref, err := c.write(ctx, http.MethodPut, "/environments/"+url.PathEscape(refKey(*existing)), "environment", payload)
		return ref, Updated, err
	}

	c.logger.Info("creating environment", zap.String("name", name))
	ref, err := c.write(ctx, http.MethodPost, "/environments?"+workspaceQuery(workspaceID), "environment", payload)
	return ref, Created, err
}

// write sends a create or update and decodes the returned object, which is
// wrapped under envelope unless the response is a bare object.
func (c *Client) write(ctx context.Context, method, endpoint, envelope string, payload any) (Ref, error) {
	body, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		return Ref{}, err
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return Ref{}, fmt.Errorf("failed to decode %s response: %w", envelope, err)
	}
	raw, ok := wrapped[envelope]
	if !ok {
		raw = body
	}

	var ref Ref
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Ref{}, fmt.Errorf("failed to decode %s response: %w", envelope, err)
	}
	return ref, nil
}

func refKey(r Ref) string {
	if r.UID != "" {
		return r.UID
	}
	return r.ID
}

func workspaceQuery(workspaceID string) string {
	return url.Values{"workspace": {workspaceID}}.Encode()
}
