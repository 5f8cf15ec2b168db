// Package report renders run summaries for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/postsync/pkg/syncer"
	"github.com/charmbracelet/glamour"
)

// Markdown renders a summary as a markdown document.
func Markdown(sum *syncer.Summary) string {
	var sb strings.Builder

	title := sum.APIName
	if title == "" {
		title = "Sync"
	}
	if sum.APIVersion != "" {
		title += " v" + sum.APIVersion
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	fmt.Fprintf(&sb, "- **Mode:** %s\n", sum.Mode)
	fmt.Fprintf(&sb, "- **Workspace:** `%s`\n", sum.WorkspaceID)
	fmt.Fprintf(&sb, "- **Spec:** `%s`", sum.SpecPath)
	if sum.SpecHash != "" {
		fmt.Fprintf(&sb, " (hash `%s`)", sum.SpecHash)
	}
	sb.WriteString("\n")
	if sum.AWSExport != nil {
		fmt.Fprintf(&sb, "- **Exported from:** API Gateway `%s` stage `%s`\n", sum.AWSExport.APIID, sum.AWSExport.Stage)
	}
	fmt.Fprintf(&sb, "- **Endpoints:** %d\n", sum.EndpointsCount)
	fmt.Fprintf(&sb, "- **Duration:** %.1fs\n\n", sum.DurationSeconds)

	if len(sum.Actions) > 0 {
		sb.WriteString("## Actions\n\n")
		sb.WriteString("| Type | Action | Name | ID |\n")
		sb.WriteString("| --- | --- | --- | --- |\n")
		for _, a := range sum.Actions {
			fmt.Fprintf(&sb, "| %s | %s | %s | `%s` |\n", a.Type, a.Action, escapeCell(a.Name), a.ID)
		}
		sb.WriteString("\n")
	}

	writeList(&sb, "Validation issues", sum.ValidationIssues)
	writeList(&sb, "Example warnings", sum.ExampleWarnings)
	writeList(&sb, "Failed environments", sum.FailedEnvironments)

	if sum.Error != "" {
		fmt.Fprintf(&sb, "## Error\n\n%s\n\n", sum.Error)
		return sb.String()
	}

	if len(sum.Environments) > 0 {
		sb.WriteString("## Next steps\n\n")
		sb.WriteString("1. Open the Postman workspace\n")
		fmt.Fprintf(&sb, "2. Select an environment (%s)\n", strings.Join(sum.Environments, "/"))
		sb.WriteString("3. Set `client_id` and `client_secret` in the environment\n")
		sb.WriteString("4. Send a request; the collection fetches a token on first use\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render renders markdown for the terminal. The input is returned unchanged
// if the renderer fails.
func Render(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// StatusLine is a one-line outcome of a run.
func StatusLine(sum *syncer.Summary) string {
	switch {
	case !sum.Success:
		return ErrorStyle.Render(FailPrefix) + sum.Error
	case sum.DryRun:
		return SuccessStyle.Render(PreviewPrefix) +
			DimStyle.Render(fmt.Sprintf("%d endpoints, %d actions simulated", sum.EndpointsCount, len(sum.Actions)))
	default:
		line := SuccessStyle.Render(OKPrefix) +
			fmt.Sprintf("%d endpoints, %d created, %d updated",
				sum.EndpointsCount, sum.Count("", "created"), sum.Count("", "updated"))
		if n := len(sum.FailedEnvironments); n > 0 {
			line += WarnStyle.Render(fmt.Sprintf(", %d environments failed", n))
		}
		return line
	}
}

// HighlightJSON takes a JSON string, validates it, and returns a syntax-highlighted string.
// If the input is not valid JSON, it returns the original string.
func HighlightJSON(input string) string {
	var js any
	if json.Unmarshal([]byte(input), &js) != nil {
		return input
	}

	pretty, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return input
	}

	out := Render("```json\n" + string(pretty) + "\n```")
	if out == "" {
		return input
	}
	return strings.TrimSpace(out)
}
