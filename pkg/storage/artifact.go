// Package storage writes the durable outputs of a run: the JSON summary and
// the generated collection and environment files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/afero"
)

// File name suffixes used by Postman's import dialog.
const (
	CollectionSuffix  = ".postman_collection.json"
	EnvironmentSuffix = ".postman_environment.json"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a display name into a file name stem.
func Slug(name string) string {
	s := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "unnamed"
	}
	return s
}

// CollectionPath returns the file for the collection named name in dir.
func CollectionPath(dir, name string) string {
	return filepath.Join(dir, Slug(name)+CollectionSuffix)
}

// EnvironmentPath returns the file for the environment named name in dir.
func EnvironmentPath(dir, name string) string {
	return filepath.Join(dir, Slug(name)+EnvironmentSuffix)
}

// Marshal encodes v as two-space indented JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSON writes v to path as indented JSON, creating parent directories
// and replacing any existing file.
func WriteJSON(fsys afero.Fs, path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return writeFile(fsys, path, data)
}

func writeFile(fsys afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Artifact describes one generated file.
type Artifact struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Changed bool   `json:"changed"`
	// Diff is a unified diff against the previous content. It is empty when
	// nothing changed.
	Diff string `json:"diff,omitempty"`
}

// WriteArtifact writes v to path as indented JSON and reports how it
// differs from the file it replaces. Unchanged files are not rewritten.
func WriteArtifact(fsys afero.Fs, path string, v any) (Artifact, error) {
	data, err := Marshal(v)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	art := Artifact{Path: path}
	var original string
	existing, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		art.Created = true
	case err != nil:
		return Artifact{}, fmt.Errorf("failed to read existing file: %w", err)
	default:
		original = string(existing)
	}

	if !art.Created && original == string(data) {
		return art, nil
	}

	art.Changed = true
	art.Diff = Diff(filepath.ToSlash(path), original, string(data))
	if err := writeFile(fsys, path, data); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// Diff returns a unified diff between original and modified with three
// lines of context.
func Diff(filename, original, modified string) string {
	edits := udiff.Strings(original, modified)
	unified, err := udiff.ToUnified("a/"+filename, "b/"+filename, original, edits, 3)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n(diff generation failed)\n", filename, filename)
	}
	return unified
}
