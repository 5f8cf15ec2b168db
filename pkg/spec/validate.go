package spec

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityError findings block a sync run unless validation is bypassed.
	SeverityError Severity = "ERROR"
	// SeverityWarning findings are advisory only.
	SeverityWarning Severity = "WARNING"
)

// Finding is a single validation result.
type Finding struct {
	Severity Severity
	Message  string
}

func (f Finding) String() string {
	return string(f.Severity) + ": " + f.Message
}

// Findings is an ordered list of validation results.
type Findings []Finding

// HasErrors reports whether any finding is blocking.
func (fs Findings) HasErrors() bool {
	for _, f := range fs {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of findings with severity sev.
func (fs Findings) Count(sev Severity) int {
	n := 0
	for _, f := range fs {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// Strings renders every finding as "SEVERITY: message".
func (fs Findings) Strings() []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.String())
	}
	return out
}

func errorf(format string, args ...any) Finding {
	return Finding{Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) Finding {
	return Finding{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the structural rules a document must satisfy before it is
// synced. Findings are returned in rule order.
func Validate(doc *Document) Findings {
	var out Findings
	root := doc.Root()

	if !root.Has("openapi") && !root.Has("swagger") {
		out = append(out, errorf("Missing 'openapi' or 'swagger' version field"))
	}

	if !root.Has("info") {
		out = append(out, errorf("Missing 'info' section"))
	} else if !root.Map("info").Has("title") {
		out = append(out, warnf("Missing 'info.title'"))
	}

	if !root.Has("paths") {
		out = append(out, errorf("Missing 'paths' section"))
	} else if root.Map("paths").Len() == 0 {
		out = append(out, warnf("No paths defined"))
	}

	for _, op := range doc.Operations() {
		if !op.Details.Has("operationId") {
			out = append(out, warnf("%s %s missing operationId", strings.ToUpper(op.Method), op.Path))
		}
	}

	return out
}

// ValidateStrict runs the full OpenAPI 3 validator over raw and reports every
// problem as a warning. Documents that are not OpenAPI 3 yield no findings.
func ValidateStrict(ctx context.Context, doc *Document, raw []byte) Findings {
	marker, ok := doc.Root().Get("openapi")
	if !ok || !strings.HasPrefix(fmt.Sprint(marker), "3") {
		return nil
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	t, err := loader.LoadFromData(raw)
	if err != nil {
		return Findings{warnf("openapi3: %v", err)}
	}
	if err := t.Validate(loader.Context); err != nil {
		return Findings{warnf("openapi3: %v", err)}
	}
	return nil
}
