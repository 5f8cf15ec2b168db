// Package auth performs the client_credentials exchange that generated
// collections run before each request, so credentials can be checked from
// the command line.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// TokenPath is appended to an environment's auth_url.
	TokenPath = "/oauth/token"
	// ExpiryBuffer is how long before expiry a token is refreshed.
	ExpiryBuffer = 60 * time.Second
	// DefaultLifetime applies when the server reports no expiry.
	DefaultLifetime = 3600 * time.Second
)

// ErrMissingCredentials is returned when the auth URL, client id or
// client secret is empty.
var ErrMissingCredentials = errors.New("auth: missing auth_url, client_id or client_secret")

// Credentials are the client_credentials inputs of one environment.
type Credentials struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
}

// TokenURL returns the token endpoint for c.
func (c Credentials) TokenURL() string {
	return strings.TrimRight(c.AuthURL, "/") + TokenPath
}

func (c Credentials) validate() error {
	var missing []string
	if c.AuthURL == "" {
		missing = append(missing, "auth_url")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Expiry sources reported on Token.
const (
	FromExpiresIn = "expires_in"
	FromClaim     = "exp claim"
	FromDefault   = "default"
)

// Token is an access token and when it expires.
type Token struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
	// ExpirySource says where Expiry came from.
	ExpirySource string
}

// NeedsRefresh reports whether the token is within ExpiryBuffer of expiring
// at now.
func (t *Token) NeedsRefresh(now time.Time) bool {
	return NeedsRefresh(t.Expiry, now)
}

// NeedsRefresh reports whether a token expiring at expiry should be
// replaced at now. A zero expiry always needs a refresh.
func NeedsRefresh(expiry, now time.Time) bool {
	if expiry.IsZero() {
		return true
	}
	return !now.Before(expiry.Add(-ExpiryBuffer))
}

// Exchanger runs client_credentials exchanges.
type Exchanger struct {
	// HTTPClient is used for the token request. Nil uses the default client.
	HTTPClient *http.Client
	Now        func() time.Time
}

// Exchange posts the credentials to the token endpoint and returns the
// issued token. The expiry comes from expires_in, then from the token's own
// exp claim when it is a JWT, then from DefaultLifetime.
func (e *Exchanger) Exchange(ctx context.Context, creds Credentials) (*Token, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if e.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.HTTPClient)
	}

	config := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL(),
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	start := now()
	tok, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("token exchange with %s failed: %w", creds.TokenURL(), err)
	}

	out := &Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if lifetime, ok := expiresIn(tok); ok {
		out.Expiry = start.Add(lifetime)
		out.ExpirySource = FromExpiresIn
	} else if !tok.Expiry.IsZero() {
		out.Expiry = tok.Expiry
		out.ExpirySource = FromExpiresIn
	} else {
		if exp, ok := ClaimExpiry(tok.AccessToken); ok {
			out.Expiry = exp
			out.ExpirySource = FromClaim
		} else {
			out.Expiry = start.Add(DefaultLifetime)
			out.ExpirySource = FromDefault
		}
	}
	return out, nil
}

// expiresIn reads the raw expires_in field of the token response. Expiry on
// the returned token is measured from the wall clock, not from Now.
func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var secs int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		secs = n
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		secs = n
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// Claims decodes the claims of a JWT without verifying its signature.
func Claims(token string) (jwt.MapClaims, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("invalid JWT: %w", err)
	}
	return claims, nil
}

// ClaimExpiry returns the exp claim of a JWT, if it has one.
func ClaimExpiry(token string) (time.Time, bool) {
	claims, err := Claims(token)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
