package postman

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrMissingAPIKey is returned by NewClient when no API key is set
	// outside preview mode.
	ErrMissingAPIKey = errors.New("postman: POSTMAN_API_KEY is required")

	// ErrDuplicateName is returned when a name lookup matches more than one
	// object, since an upsert could not tell which one to update.
	ErrDuplicateName = errors.New("postman: duplicate name")
)

// maxErrorBody bounds the response text kept on an APIError.
const maxErrorBody = 200

// APIError is a 4xx or 5xx response from the Postman API.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postman: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
