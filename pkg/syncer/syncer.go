// Package syncer runs the load, validate, build and upsert pipeline that
// syncs one spec into a Postman workspace.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blackcoderx/postsync/pkg/collection"
	"github.com/blackcoderx/postsync/pkg/environment"
	"github.com/blackcoderx/postsync/pkg/postman"
	"github.com/blackcoderx/postsync/pkg/spec"
	"github.com/blackcoderx/postsync/pkg/storage"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	// ErrValidation is returned when the spec has blocking findings and
	// validation was not skipped.
	ErrValidation = errors.New("spec has validation errors")

	// ErrNoExporter is returned when an export is requested but no
	// exporter is configured.
	ErrNoExporter = errors.New("no exporter configured")
)

// Platform upserts collections and environments by name.
type Platform interface {
	UpsertCollection(ctx context.Context, workspaceID, name string, collection any) (postman.Ref, postman.Action, error)
	UpsertEnvironment(ctx context.Context, workspaceID, name string, environment any) (postman.Ref, postman.Action, error)
}

// Exporter fetches a spec from an upstream gateway and returns its local path.
type Exporter interface {
	Export(ctx context.Context, apiID, stage string) (string, error)
}

// Options are the inputs of one run.
type Options struct {
	SpecPath    string
	WorkspaceID string

	// Preview is recorded on the summary. The Platform must already be a
	// preview client for no remote state to change.
	Preview        bool
	SkipValidation bool
	// Strict adds OpenAPI 3 schema validation findings as warnings.
	Strict bool

	// ExportAPIID, when set, replaces SpecPath with an upstream export.
	ExportAPIID string
	ExportStage string
}

// Syncer sequences a run. Zero-valued fields fall back to defaults: the OS
// filesystem, DefaultSummaryPath, environment.DefaultTargets, a builder with
// the auth script, a no-op logger and time.Now.
type Syncer struct {
	Platform    Platform
	Exporter    Exporter
	FS          afero.Fs
	SummaryPath string
	Targets     []environment.Target
	Builder     *collection.Builder
	Logger      *zap.Logger
	Now         func() time.Time
}

// Run executes one sync and returns its summary. The summary is persisted
// before Run returns, whether or not the run succeeded.
func (s *Syncer) Run(ctx context.Context, opts Options) (*Summary, error) {
	return s.record(opts, func(sum *Summary, log *zap.Logger) error {
		return s.run(ctx, opts, sum, log)
	})
}

// Abort persists the summary of a run that failed before it could start,
// such as one without platform credentials. It returns cause.
func (s *Syncer) Abort(opts Options, cause error) (*Summary, error) {
	return s.record(opts, func(*Summary, *zap.Logger) error {
		return cause
	})
}

func (s *Syncer) record(opts Options, fn func(*Summary, *zap.Logger) error) (*Summary, error) {
	s.defaults()

	start := s.Now()
	sum := &Summary{
		RunID:       uuid.NewString(),
		Timestamp:   start.Format(time.RFC3339),
		Mode:        ModeLive,
		DryRun:      opts.Preview,
		SpecPath:    opts.SpecPath,
		WorkspaceID: opts.WorkspaceID,
		Actions:     []ActionEntry{},
	}
	if opts.Preview {
		sum.Mode = ModePreview
	}

	log := s.Logger.With(zap.String("run_id", sum.RunID))
	log.Info("starting sync", zap.String("mode", sum.Mode), zap.String("workspace_id", opts.WorkspaceID))

	err := fn(sum, log)

	sum.DurationSeconds = s.Now().Sub(start).Seconds()
	if err != nil {
		sum.Error = err.Error()
		log.Error("sync failed", zap.Error(err))
	} else {
		sum.Success = true
		log.Info("sync complete",
			zap.Int("endpoints", sum.EndpointsCount),
			zap.Int("actions", len(sum.Actions)),
			zap.Float64("duration_seconds", sum.DurationSeconds),
		)
	}

	if werr := storage.WriteJSON(s.FS, s.SummaryPath, sum); werr != nil {
		log.Error("failed to write summary", zap.String("path", s.SummaryPath), zap.Error(werr))
		if err == nil {
			err = fmt.Errorf("failed to write summary: %w", werr)
		}
	} else {
		log.Info("summary written", zap.String("path", s.SummaryPath))
	}

	return sum, err
}

func (s *Syncer) run(ctx context.Context, opts Options, sum *Summary, log *zap.Logger) error {
	specPath := opts.SpecPath
	if opts.ExportAPIID != "" {
		if s.Exporter == nil {
			return ErrNoExporter
		}
		path, err := s.Exporter.Export(ctx, opts.ExportAPIID, opts.ExportStage)
		if err != nil {
			return err
		}
		specPath = path
		sum.SpecPath = path
		sum.AWSExport = &ExportInfo{APIID: opts.ExportAPIID, Stage: opts.ExportStage}
	}

	doc, raw, err := spec.LoadFS(s.FS, specPath)
	if err != nil {
		return err
	}
	sum.APIName = doc.Title()
	sum.APIVersion = doc.Version()
	sum.SpecHash = spec.Fingerprint(raw)
	log.Info("loaded spec",
		zap.String("source", specPath),
		zap.String("api", sum.APIName),
		zap.String("version", sum.APIVersion),
		zap.String("hash", sum.SpecHash),
	)

	if !opts.SkipValidation {
		findings := spec.Validate(doc)
		if opts.Strict {
			findings = append(findings, spec.ValidateStrict(ctx, doc, raw)...)
		}
		sum.ValidationIssues = findings.Strings()
		for _, f := range findings {
			log.Warn("validation issue", zap.String("issue", f.String()))
		}
		if findings.HasErrors() {
			return fmt.Errorf("%w: %d blocking findings", ErrValidation, findings.Count(spec.SeverityError))
		}
	}

	c, envs := Generate(doc, s.Builder, s.Targets)
	sum.EndpointsCount = c.EndpointCount()
	sum.ExampleWarnings = collection.Lint(doc)
	for _, w := range sum.ExampleWarnings {
		log.Warn("example does not match schema", zap.String("warning", w))
	}
	log.Info("built collection", zap.Int("endpoints", sum.EndpointsCount), zap.Int("folders", len(c.Item)))

	ref, action, err := s.Platform.UpsertCollection(ctx, opts.WorkspaceID, c.Name(), c)
	if err != nil {
		return fmt.Errorf("collection sync failed: %w", err)
	}
	sum.Actions = append(sum.Actions, ActionEntry{
		Type:   TypeCollection,
		Action: string(action),
		Name:   c.Name(),
		ID:     ref.Reference(),
	})
	log.Info("collection synced", zap.String("action", string(action)), zap.String("id", ref.Reference()))

	sum.Environments = environment.Names(s.Targets)
	for i, env := range envs {
		ref, action, err := s.Platform.UpsertEnvironment(ctx, opts.WorkspaceID, env.Name, env)
		if err != nil {
			log.Warn("environment sync failed", zap.String("environment", s.Targets[i].Name), zap.Error(err))
			sum.FailedEnvironments = append(sum.FailedEnvironments, s.Targets[i].Name)
			continue
		}
		sum.Actions = append(sum.Actions, ActionEntry{
			Type:   TypeEnvironment,
			Action: string(action),
			Name:   env.Name,
			ID:     ref.Reference(),
		})
	}
	return nil
}

// Generate builds the collection and one environment per target for doc.
func Generate(doc *spec.Document, b *collection.Builder, targets []environment.Target) (*collection.Collection, []environment.Environment) {
	if b == nil {
		b = collection.NewBuilder()
	}
	c := b.Build(doc)
	return c, environment.BuildAll(c.Name(), targets)
}

func (s *Syncer) defaults() {
	if s.FS == nil {
		s.FS = afero.NewOsFs()
	}
	if s.SummaryPath == "" {
		s.SummaryPath = DefaultSummaryPath
	}
	if s.Targets == nil {
		s.Targets = environment.DefaultTargets
	}
	if s.Builder == nil {
		s.Builder = collection.NewBuilder()
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
}
