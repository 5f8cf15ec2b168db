// Package environment builds the per-target Postman environments that pair
// with a generated collection.
package environment

import "fmt"

// Value types understood by Postman.
const (
	TypeDefault = "default"
	TypeSecret  = "secret"
)

// Config holds the endpoints of one deployment target.
type Config struct {
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	AuthURL string `json:"auth_url" mapstructure:"auth_url"`
}

// Target is a named deployment target.
type Target struct {
	Name   string `json:"name" mapstructure:"name"`
	Config `mapstructure:",squash"`
}

// DefaultTargets is the built-in target table, in sync order.
var DefaultTargets = []Target{
	{Name: "Dev", Config: Config{
		BaseURL: "https://api-dev.payments.example.com/v2",
		AuthURL: "https://auth-dev.payments.example.com",
	}},
	{Name: "QA", Config: Config{
		BaseURL: "https://api-qa.payments.example.com/v2",
		AuthURL: "https://auth-qa.payments.example.com",
	}},
	{Name: "UAT", Config: Config{
		BaseURL: "https://api-uat.payments.example.com/v2",
		AuthURL: "https://auth-uat.payments.example.com",
	}},
	{Name: "Prod", Config: Config{
		BaseURL: "https://api.payments.example.com/v2",
		AuthURL: "https://auth.payments.example.com",
	}},
}

// Environment is a Postman environment.
type Environment struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// Value is a single environment variable.
type Value struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
}

// Name returns the environment name for an API and target.
func Name(apiName, envName string) string {
	return fmt.Sprintf("%s - %s", apiName, envName)
}

// Build returns the environment for apiName on the named target. Credential
// and token slots start empty; the collection's prerequest script fills the
// token slots at request time.
func Build(apiName, envName string, cfg Config) Environment {
	return Environment{
		Name: Name(apiName, envName),
		Values: []Value{
			{Key: "base_url", Value: cfg.BaseURL, Enabled: true, Type: TypeDefault},
			{Key: "auth_url", Value: cfg.AuthURL, Enabled: true, Type: TypeDefault},
			{Key: "client_id", Value: "", Enabled: true, Type: TypeSecret},
			{Key: "client_secret", Value: "", Enabled: true, Type: TypeSecret},
			{Key: "jwt_token", Value: "", Enabled: true, Type: TypeSecret},
			{Key: "jwt_expiry", Value: "", Enabled: true, Type: TypeDefault},
		},
	}
}

// BuildAll builds one environment per target, in target order.
func BuildAll(apiName string, targets []Target) []Environment {
	out := make([]Environment, 0, len(targets))
	for _, t := range targets {
		out = append(out, Build(apiName, t.Name, t.Config))
	}
	return out
}

// Lookup returns the target with the given name.
func Lookup(targets []Target, name string) (Target, bool) {
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Get returns the value stored under key.
func (e Environment) Get(key string) string {
	for _, v := range e.Values {
		if v.Key == key {
			return v.Value
		}
	}
	return ""
}

// Names lists the target names in order.
func Names(targets []Target) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Name)
	}
	return out
}
