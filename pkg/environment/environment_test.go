package environment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	env := Build("Billing API", "QA", Config{BaseURL: "https://b", AuthURL: "https://a"})

	assert.Equal(t, "Billing API - QA", env.Name)
	require.Len(t, env.Values, 6)

	var keys, types []string
	for _, v := range env.Values {
		keys = append(keys, v.Key)
		types = append(types, v.Type)
		assert.True(t, v.Enabled, v.Key)
	}
	assert.Equal(t, []string{"base_url", "auth_url", "client_id", "client_secret", "jwt_token", "jwt_expiry"}, keys)
	assert.Equal(t, []string{TypeDefault, TypeDefault, TypeSecret, TypeSecret, TypeSecret, TypeDefault}, types)
	assert.Equal(t, "https://b", env.Get("base_url"))
	assert.Equal(t, "https://a", env.Get("auth_url"))
	assert.Equal(t, "", env.Get("client_id"))
	assert.Equal(t, "", env.Get("nope"))
}

func TestBuild_JSONShape(t *testing.T) {
	b, err := json.Marshal(Build("A", "Dev", Config{BaseURL: "u", AuthURL: "v"}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `{"key":"base_url","value":"u","enabled":true,"type":"default"}`)
	assert.Contains(t, string(b), `"name":"A - Dev"`)
}

func TestDefaultTargets(t *testing.T) {
	assert.Equal(t, []string{"Dev", "QA", "UAT", "Prod"}, Names(DefaultTargets))

	prod, ok := Lookup(DefaultTargets, "Prod")
	require.True(t, ok)
	assert.Equal(t, "https://api.payments.example.com/v2", prod.BaseURL)
	assert.Equal(t, "https://auth.payments.example.com", prod.AuthURL)

	_, ok = Lookup(DefaultTargets, "Staging")
	assert.False(t, ok)
}

func TestBuildAll(t *testing.T) {
	envs := BuildAll("Shop", DefaultTargets)
	require.Len(t, envs, 4)
	for i, env := range envs {
		assert.Equal(t, Name("Shop", DefaultTargets[i].Name), env.Name)
	}
	assert.Empty(t, BuildAll("Shop", nil))
}
