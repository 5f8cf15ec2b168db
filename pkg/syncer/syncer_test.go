package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/blackcoderx/postsync/pkg/environment"
	"github.com/blackcoderx/postsync/pkg/postman"
	"github.com/blackcoderx/postsync/pkg/postman/postmantest"
	"github.com/blackcoderx/postsync/pkg/spec"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billingSpec = `openapi: 3.0.3
info:
  title: Billing API
  version: 2.0.0
paths:
  /charges:
    post:
      tags: [Payments]
      operationId: createCharge
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Charge"
components:
  schemas:
    Charge:
      type: object
      properties:
        amount:
          type: string
`

type fixture struct {
	fs     afero.Fs
	server *postmantest.Server
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	srv := postmantest.NewServer()
	t.Cleanup(srv.Close)
	return &fixture{fs: fs, server: srv}
}

func (f *fixture) syncer(t *testing.T, preview bool) *Syncer {
	t.Helper()
	opts := postman.Options{BaseURL: f.server.URL, APIKey: "pmak-test", Preview: preview}
	client, err := postman.NewClient(opts)
	require.NoError(t, err)

	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Syncer{
		Platform: client,
		FS:       f.fs,
		Now: func() time.Time {
			tick = tick.Add(500 * time.Millisecond)
			return tick
		},
	}
}

func (f *fixture) summary(t *testing.T) map[string]any {
	t.Helper()
	data, err := afero.ReadFile(f.fs, DefaultSummaryPath)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestRun_PreviewScenario(t *testing.T) {
	f := newFixture(t, map[string]string{"specs/billing.yaml": billingSpec})

	sum, err := f.syncer(t, true).Run(context.Background(), Options{
		SpecPath:    "specs/billing.yaml",
		WorkspaceID: "ws1",
		Preview:     true,
	})
	require.NoError(t, err)

	assert.True(t, sum.Success)
	assert.Equal(t, ModePreview, sum.Mode)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 1, sum.EndpointsCount)
	assert.Equal(t, "Billing API", sum.APIName)
	assert.Equal(t, "2.0.0", sum.APIVersion)
	assert.Len(t, sum.SpecHash, 8)
	assert.Equal(t, 1, sum.Count(TypeCollection, string(postman.Created)))
	assert.Equal(t, 4, sum.Count(TypeEnvironment, ""))
	for _, a := range sum.Actions {
		assert.Equal(t, "dry-run-uid", a.ID)
	}
	assert.Equal(t, []string{"Dev", "QA", "UAT", "Prod"}, sum.Environments)
	assert.Equal(t, "Billing API - Prod", sum.Actions[4].Name)
	assert.Empty(t, f.server.Calls(), "preview must not reach the network")

	written := f.summary(t)
	assert.Equal(t, true, written["success"])
	assert.Equal(t, float64(1), written["endpoints_count"])
	assert.Equal(t, "preview", written["mode"])
	assert.Equal(t, sum.RunID, written["run_id"])
	assert.InDelta(t, sum.DurationSeconds, written["duration_seconds"], 1e-9)
	assert.Equal(t, "2026-03-01T12:00:00Z", written["timestamp"])
	assert.NotContains(t, written, "error")
}

func TestRun_MissingVersionMarker(t *testing.T) {
	src := "info: {title: Billing API}\npaths: {}\n"

	t.Run("aborts before any remote call", func(t *testing.T) {
		f := newFixture(t, map[string]string{"api.yaml": src})
		sum, err := f.syncer(t, false).Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1"})

		require.ErrorIs(t, err, ErrValidation)
		assert.False(t, sum.Success)
		assert.Contains(t, sum.ValidationIssues, "ERROR: Missing 'openapi' or 'swagger' version field")
		assert.Empty(t, sum.Actions)
		assert.Empty(t, f.server.Calls())

		written := f.summary(t)
		assert.Equal(t, false, written["success"])
		assert.Contains(t, written["error"], "validation errors")
		assert.Equal(t, []any{}, written["actions"])
	})

	t.Run("bypass proceeds", func(t *testing.T) {
		f := newFixture(t, map[string]string{"api.yaml": src})
		sum, err := f.syncer(t, false).Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1", SkipValidation: true})

		require.NoError(t, err)
		assert.True(t, sum.Success)
		assert.Nil(t, sum.ValidationIssues)
		assert.Equal(t, 0, sum.EndpointsCount)
		assert.Equal(t, 5, len(sum.Actions))
	})
}

func TestRun_EmptyPathsWarns(t *testing.T) {
	f := newFixture(t, map[string]string{"api.json": `{"openapi":"3.0.0","info":{"title":"Empty"},"paths":{}}`})
	sum, err := f.syncer(t, true).Run(context.Background(), Options{SpecPath: "api.json", WorkspaceID: "ws1", Preview: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"WARNING: No paths defined"}, sum.ValidationIssues)
	assert.Equal(t, 0, sum.EndpointsCount)
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, map[string]string{"api.yaml": billingSpec})
	opts := Options{SpecPath: "api.yaml", WorkspaceID: "ws1"}

	first, err := f.syncer(t, false).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Count("", string(postman.Created)))

	second, err := f.syncer(t, false).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Count("", string(postman.Updated)))
	assert.Equal(t, 0, second.Count("", string(postman.Created)))

	for i := range first.Actions {
		assert.Equal(t, first.Actions[i].ID, second.Actions[i].ID)
		assert.Equal(t, first.Actions[i].Name, second.Actions[i].Name)
	}

	stored := f.server.Collection("Billing API")
	require.NotNil(t, stored)
	info, _ := stored.Body["info"].(map[string]any)
	assert.Equal(t, "Billing API", info["name"])

	env := f.server.Environment("Billing API - Dev")
	require.NotNil(t, env)
	assert.Equal(t, "ws1", env.Workspace)
}

func TestRun_EnvironmentFailureIsSkipped(t *testing.T) {
	f := newFixture(t, map[string]string{"api.yaml": billingSpec})
	f.server.Fail["Billing API - QA"] = http.StatusInternalServerError

	sum, err := f.syncer(t, false).Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1"})
	require.NoError(t, err)
	assert.True(t, sum.Success)
	assert.Equal(t, 3, sum.Count(TypeEnvironment, ""))
	assert.Equal(t, []string{"QA"}, sum.FailedEnvironments)
	assert.Nil(t, f.server.Environment("Billing API - QA"))
	assert.NotNil(t, f.server.Environment("Billing API - UAT"))
}

func TestRun_CollectionFailureIsFatal(t *testing.T) {
	f := newFixture(t, map[string]string{"api.yaml": billingSpec})
	f.server.Fail["POST /collections"] = http.StatusBadRequest

	sum, err := f.syncer(t, false).Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1"})

	var apiErr *postman.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, sum.Success)
	assert.Empty(t, sum.Actions)
	assert.Nil(t, sum.Environments)
	assert.Contains(t, f.summary(t)["error"], "collection sync failed")
}

func TestRun_MissingSpec(t *testing.T) {
	f := newFixture(t, nil)
	sum, err := f.syncer(t, true).Run(context.Background(), Options{SpecPath: "nope.yaml", WorkspaceID: "ws1", Preview: true})

	var nf *spec.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope.yaml", nf.Path)
	assert.False(t, sum.Success)
	assert.Empty(t, sum.APIName)
	assert.Equal(t, false, f.summary(t)["success"])
}

func TestAbort(t *testing.T) {
	f := newFixture(t, nil)
	cause := errors.New("no credentials")

	sum, err := f.syncer(t, false).Abort(Options{SpecPath: "api.yaml", WorkspaceID: "ws1"}, cause)
	require.ErrorIs(t, err, cause)
	assert.False(t, sum.Success)
	assert.Equal(t, ModeLive, sum.Mode)
	assert.NotEmpty(t, sum.RunID)

	written := f.summary(t)
	assert.Equal(t, false, written["success"])
	assert.Equal(t, "no credentials", written["error"])
	assert.Equal(t, "api.yaml", written["spec_path"])
	assert.Empty(t, f.server.Calls())
}

type fakeExporter struct {
	fs  afero.Fs
	err error
}

func (e *fakeExporter) Export(_ context.Context, apiID, stage string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	path := "specs/" + apiID + "-" + stage + ".yaml"
	return path, afero.WriteFile(e.fs, path, []byte(billingSpec), 0644)
}

func TestRun_Export(t *testing.T) {
	f := newFixture(t, nil)
	s := f.syncer(t, true)
	s.Exporter = &fakeExporter{fs: f.fs}

	sum, err := s.Run(context.Background(), Options{WorkspaceID: "ws1", Preview: true, ExportAPIID: "abc123", ExportStage: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "specs/abc123-prod.yaml", sum.SpecPath)
	assert.Equal(t, &ExportInfo{APIID: "abc123", Stage: "prod"}, sum.AWSExport)

	written := f.summary(t)
	assert.Equal(t, map[string]any{"api_id": "abc123", "stage": "prod"}, written["aws_export"])
}

func TestRun_ExportErrors(t *testing.T) {
	f := newFixture(t, nil)
	s := f.syncer(t, true)

	_, err := s.Run(context.Background(), Options{WorkspaceID: "ws1", ExportAPIID: "abc123"})
	assert.ErrorIs(t, err, ErrNoExporter)

	boom := errors.New("boom")
	s.Exporter = &fakeExporter{err: boom}
	sum, err := s.Run(context.Background(), Options{WorkspaceID: "ws1", ExportAPIID: "abc123"})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, sum.AWSExport)
}

func TestRun_CustomTargets(t *testing.T) {
	f := newFixture(t, map[string]string{"api.yaml": billingSpec})
	s := f.syncer(t, true)
	s.Targets = []environment.Target{{Name: "Local", Config: environment.Config{BaseURL: "http://localhost:8080"}}}
	s.SummaryPath = "out/summary.json"

	sum, err := s.Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1", Preview: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Local"}, sum.Environments)
	assert.Equal(t, "Billing API - Local", sum.Actions[1].Name)

	exists, err := afero.Exists(f.fs, "out/summary.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_StrictAddsWarnings(t *testing.T) {
	src := "openapi: 3.0.3\ninfo: {title: T, version: '1'}\npaths:\n  /x:\n    get: {operationId: x}\n"
	f := newFixture(t, map[string]string{"api.yaml": src})

	sum, err := f.syncer(t, true).Run(context.Background(), Options{SpecPath: "api.yaml", WorkspaceID: "ws1", Preview: true, Strict: true})
	require.NoError(t, err)
	require.NotEmpty(t, sum.ValidationIssues)
	assert.Contains(t, sum.ValidationIssues[0], "WARNING: openapi3:")
}
