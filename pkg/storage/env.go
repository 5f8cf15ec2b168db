package storage

import (
	"os"
	"regexp"
	"strings"
)

// varPattern matches {{VAR_NAME}} or {{env:VAR_NAME}}
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ExpandEnvRefs replaces {{env:VAR}} references with the value of the
// process environment variable VAR. References to unset variables, and
// plain {{name}} placeholders, are left untouched.
func ExpandEnvRefs(text string) string {
	return ExpandEnvRefsFunc(text, os.Getenv)
}

// ExpandEnvRefsFunc is ExpandEnvRefs with a custom lookup.
func ExpandEnvRefsFunc(text string, getenv func(string) string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		varName := strings.TrimSpace(varPattern.FindStringSubmatch(match)[1])

		if sysVar, ok := strings.CutPrefix(varName, "env:"); ok {
			if val := getenv(strings.TrimSpace(sysVar)); val != "" {
				return val
			}
		}
		return match
	})
}
