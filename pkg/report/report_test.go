package report

import (
	"strings"
	"testing"

	"github.com/blackcoderx/postsync/pkg/syncer"
	"github.com/stretchr/testify/assert"
)

func sample() *syncer.Summary {
	return &syncer.Summary{
		Mode:           syncer.ModeLive,
		WorkspaceID:    "ws1",
		SpecPath:       "specs/billing.yaml",
		SpecHash:       "abcd1234",
		Success:        true,
		APIName:        "Billing API",
		APIVersion:     "2.0.0",
		EndpointsCount: 3,
		Actions: []syncer.ActionEntry{
			{Type: "collection", Action: "created", Name: "Billing API", ID: "u-1"},
			{Type: "environment", Action: "updated", Name: "Billing API - Dev", ID: "u-2"},
		},
		ValidationIssues: []string{"WARNING: POST /charges missing operationId"},
		Environments:     []string{"Dev", "QA"},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())

	assert.True(t, strings.HasPrefix(md, "# Billing API v2.0.0\n"))
	assert.Contains(t, md, "(hash `abcd1234`)")
	assert.Contains(t, md, "| collection | created | Billing API | `u-1` |")
	assert.Contains(t, md, "## Validation issues\n\n- WARNING: POST /charges missing operationId")
	assert.Contains(t, md, "Select an environment (Dev/QA)")
	assert.NotContains(t, md, "## Error")
	assert.NotContains(t, md, "Example warnings")
}

func TestMarkdown_Failure(t *testing.T) {
	sum := &syncer.Summary{Mode: syncer.ModePreview, SpecPath: "x.yaml", Error: "spec file not found: x.yaml"}
	md := Markdown(sum)

	assert.True(t, strings.HasPrefix(md, "# Sync\n"))
	assert.Contains(t, md, "## Error\n\nspec file not found: x.yaml")
	assert.NotContains(t, md, "Next steps")
	assert.NotContains(t, md, "## Actions")
}

func TestRender(t *testing.T) {
	out := Render(Markdown(sample()))
	assert.Contains(t, out, "Billing API")
	assert.Contains(t, out, "u-1")
}

func TestStatusLine(t *testing.T) {
	live := sample()
	live.FailedEnvironments = []string{"QA"}
	assert.Contains(t, StatusLine(live), "3 endpoints, 1 created, 1 updated")
	assert.Contains(t, StatusLine(live), "1 environments failed")

	preview := sample()
	preview.DryRun = true
	assert.Contains(t, StatusLine(preview), "2 actions simulated")

	failed := &syncer.Summary{Error: "boom"}
	assert.Contains(t, StatusLine(failed), "boom")
}

func TestHighlightJSON(t *testing.T) {
	assert.Equal(t, "not json", HighlightJSON("not json"))
	out := HighlightJSON(`{"sub":"svc"}`)
	assert.Contains(t, out, "sub")
	assert.Contains(t, out, "svc")
}
