package main

import (
	"fmt"
	"path/filepath"

	"github.com/blackcoderx/postsync/pkg/collection"
	"github.com/blackcoderx/postsync/pkg/report"
	"github.com/blackcoderx/postsync/pkg/spec"
	"github.com/blackcoderx/postsync/pkg/storage"
	"github.com/blackcoderx/postsync/pkg/syncer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildFlags struct {
	spec           string
	out            string
	skipValidation bool
	diff           bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write the collection and environments to files without contacting Postman",
	Long: `build generates the same collection and environments a sync would upload and
writes them in Postman's import format. Files that already exist are compared
with the new output and a unified diff is printed.`,
	Example: `  postsync build --spec specs/api.yaml --out postman/`,
	RunE:    runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.spec, "spec", "", "path to the OpenAPI spec file (YAML or JSON)")
	f.StringVar(&buildFlags.out, "out", "postman", "output directory")
	f.BoolVar(&buildFlags.skipValidation, "skip-validation", false, "build even if the spec has validation errors")
	f.BoolVar(&buildFlags.diff, "diff", true, "print a diff for changed files")
	_ = buildCmd.MarkFlagRequired("spec")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	doc, _, err := spec.LoadFS(fs, buildFlags.spec)
	if err != nil {
		return err
	}

	findings := spec.Validate(doc)
	for _, f := range findings {
		fmt.Fprintln(out, report.WarnStyle.Render(f.String()))
	}
	if findings.HasErrors() && !buildFlags.skipValidation {
		return fmt.Errorf("%w: %d blocking findings", syncer.ErrValidation, findings.Count(spec.SeverityError))
	}
	for _, w := range collection.Lint(doc) {
		logger.Warn("example does not match schema", zap.String("warning", w))
	}

	c, envs := syncer.Generate(doc, collection.NewBuilder(), settings.Environments)

	artifacts := make([]storage.Artifact, 0, len(envs)+1)
	art, err := storage.WriteArtifact(fs, storage.CollectionPath(buildFlags.out, c.Name()), c)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, art)
	for _, env := range envs {
		art, err := storage.WriteArtifact(fs, storage.EnvironmentPath(buildFlags.out, env.Name), env)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, art)
	}

	changed := 0
	for _, a := range artifacts {
		status := report.DimStyle.Render("unchanged")
		switch {
		case a.Created:
			status = report.SuccessStyle.Render("created")
		case a.Changed:
			status = report.AccentStyle.Render("updated")
		}
		if a.Changed {
			changed++
		}
		fmt.Fprintf(out, "%s %s\n", status, filepath.ToSlash(a.Path))
		if buildFlags.diff && a.Changed && !a.Created {
			fmt.Fprintln(out, a.Diff)
		}
	}

	fmt.Fprintf(out, "%d endpoints, %d of %d files changed\n", c.EndpointCount(), changed, len(artifacts))
	return nil
}
