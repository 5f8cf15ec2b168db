package syncer

// Modes recorded on a Summary.
const (
	ModePreview = "preview"
	ModeLive    = "live"
)

// Object types recorded on an ActionEntry.
const (
	TypeCollection  = "collection"
	TypeEnvironment = "environment"
)

// DefaultSummaryPath is where the run summary is written.
const DefaultSummaryPath = "sync-summary.json"

// Summary is the machine-readable record of one run. It is written on every
// exit path, including early failures.
type Summary struct {
	RunID            string        `json:"run_id"`
	Timestamp        string        `json:"timestamp"`
	Mode             string        `json:"mode"`
	DryRun           bool          `json:"dry_run"`
	SpecPath         string        `json:"spec_path"`
	WorkspaceID      string        `json:"workspace_id"`
	Success          bool          `json:"success"`
	Actions          []ActionEntry `json:"actions"`
	Error            string        `json:"error,omitempty"`
	APIName          string        `json:"api_name,omitempty"`
	APIVersion       string        `json:"api_version,omitempty"`
	SpecHash         string        `json:"spec_hash,omitempty"`
	ValidationIssues []string      `json:"validation_issues,omitempty"`
	ExampleWarnings  []string      `json:"example_warnings,omitempty"`
	AWSExport        *ExportInfo   `json:"aws_export,omitempty"`
	DurationSeconds  float64       `json:"duration_seconds"`
	EndpointsCount   int           `json:"endpoints_count"`
	Environments     []string      `json:"environments,omitempty"`
	// FailedEnvironments lists targets whose upsert failed. Those failures
	// do not fail the run.
	FailedEnvironments []string `json:"failed_environments,omitempty"`
}

// ActionEntry records one create or update.
type ActionEntry struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Name   string `json:"name"`
	ID     string `json:"id"`
}

// ExportInfo records the upstream export that produced the spec.
type ExportInfo struct {
	APIID string `json:"api_id"`
	Stage string `json:"stage"`
}

// Count returns how many actions of the given type and action were recorded.
// An empty argument matches anything.
func (s *Summary) Count(typ, action string) int {
	n := 0
	for _, a := range s.Actions {
		if (typ == "" || a.Type == typ) && (action == "" || a.Action == action) {
			n++
		}
	}
	return n
}
