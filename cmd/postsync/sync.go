package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/blackcoderx/postsync/pkg/export"
	"github.com/blackcoderx/postsync/pkg/postman"
	"github.com/blackcoderx/postsync/pkg/report"
	"github.com/blackcoderx/postsync/pkg/syncer"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncFlags struct {
	spec           string
	workspaceID    string
	awsAPIID       string
	stage          string
	region         string
	dryRun         bool
	skipValidation bool
	strict         bool
	summary        string
	confirm        bool
	copyID         bool
	quiet          bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create or update the collection and environments for a spec",
	Example: `  # Basic sync
  postsync sync --spec specs/api.yaml --workspace-id abc123

  # Dry run (preview without changes)
  postsync sync --spec specs/api.yaml --workspace-id abc123 --dry-run

  # Export from AWS API Gateway and sync
  postsync sync --aws-api-id xyz789 --stage prod --workspace-id abc123`,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncFlags.spec, "spec", "", "path to the OpenAPI spec file (YAML or JSON)")
	f.StringVar(&syncFlags.workspaceID, "workspace-id", "", "Postman workspace id (default $POSTMAN_WORKSPACE_ID)")
	f.StringVar(&syncFlags.awsAPIID, "aws-api-id", "", "export the spec from this API Gateway REST API")
	f.StringVar(&syncFlags.stage, "stage", "prod", "API Gateway stage to export")
	f.StringVar(&syncFlags.region, "region", "", "AWS region")
	f.BoolVar(&syncFlags.dryRun, "dry-run", false, "preview the sync without changing the workspace")
	f.BoolVar(&syncFlags.skipValidation, "skip-validation", false, "sync even if the spec has validation errors")
	f.BoolVar(&syncFlags.strict, "strict", false, "also report OpenAPI 3 schema violations as warnings")
	f.StringVar(&syncFlags.summary, "summary", "", "summary file path (default from config, sync-summary.json)")
	f.BoolVar(&syncFlags.confirm, "confirm", false, "ask before changing the workspace")
	f.BoolVar(&syncFlags.copyID, "copy-id", false, "copy the collection id to the clipboard")
	f.BoolVarP(&syncFlags.quiet, "quiet", "q", false, "print only the status line")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if syncFlags.spec == "" && syncFlags.awsAPIID == "" {
		return errors.New("either --spec or --aws-api-id is required")
	}
	workspaceID := syncFlags.workspaceID
	if workspaceID == "" {
		workspaceID = settings.WorkspaceID
	}
	if workspaceID == "" {
		return errors.New("--workspace-id is required (or set POSTMAN_WORKSPACE_ID)")
	}

	if syncFlags.confirm && !syncFlags.dryRun {
		proceed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Create or update objects in workspace %s?", workspaceID)).
			Affirmative("Sync").
			Negative("Cancel").
			Value(&proceed).
			Run()
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(cmd.OutOrStdout(), "Sync cancelled.")
			return nil
		}
	}

	s := &syncer.Syncer{
		FS:          fs,
		SummaryPath: settings.SummaryPath,
		Targets:     settings.Environments,
		Logger:      logger,
	}
	if syncFlags.summary != "" {
		s.SummaryPath = syncFlags.summary
	}
	runOpts := syncer.Options{
		SpecPath:       syncFlags.spec,
		WorkspaceID:    workspaceID,
		Preview:        syncFlags.dryRun,
		SkipValidation: syncFlags.skipValidation,
		Strict:         syncFlags.strict,
		ExportAPIID:    syncFlags.awsAPIID,
		ExportStage:    syncFlags.stage,
	}

	var (
		sum    *syncer.Summary
		runErr error
	)
	if err := prepare(ctx, s); err != nil {
		sum, runErr = s.Abort(runOpts, err)
	} else {
		sum, runErr = s.Run(ctx, runOpts)
	}

	out := cmd.OutOrStdout()
	if !syncFlags.quiet {
		fmt.Fprint(out, report.Render(report.Markdown(sum)))
	}
	fmt.Fprintln(out, report.StatusLine(sum))

	if syncFlags.copyID && runErr == nil && !syncFlags.dryRun {
		copyCollectionID(sum)
	}
	return runErr
}

// prepare attaches the platform client and, when exporting, the AWS
// exporter to s.
func prepare(ctx context.Context, s *syncer.Syncer) error {
	opts := settings.ClientOptions(syncFlags.dryRun)
	opts.Logger = logger.Named("postman")
	client, err := postman.NewClient(opts)
	if errors.Is(err, postman.ErrMissingAPIKey) {
		return fmt.Errorf("%w (get a key at https://web.postman.co/settings/me/api-keys)", err)
	}
	if err != nil {
		return err
	}
	s.Platform = client

	if syncFlags.awsAPIID != "" {
		exp, err := export.NewAWS(ctx, syncFlags.region, fs, logger.Named("export"))
		if err != nil {
			return err
		}
		s.Exporter = exp
	}
	return nil
}

func copyCollectionID(sum *syncer.Summary) {
	for _, a := range sum.Actions {
		if a.Type != syncer.TypeCollection {
			continue
		}
		if err := clipboard.WriteAll(a.ID); err != nil {
			logger.Warn("failed to copy collection id", zap.Error(err))
			return
		}
		logger.Info("collection id copied to clipboard", zap.String("id", a.ID))
		return
	}
}
