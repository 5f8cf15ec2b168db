package main

import (
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/charmbracelet/huh"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

// releaseRepo is the GitHub repository releases are published to.
const releaseRepo = "blackcoderx/postsync"

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the postsync version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "postsync", version)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update postsync to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if version == "dev" {
			fmt.Fprintln(out, "You are running a development version of postsync. Update is not supported.")
			return nil
		}

		latest, found, err := selfupdate.DetectLatest(releaseRepo)
		if err != nil {
			return fmt.Errorf("failed to detect latest version: %w", err)
		}

		v, err := semver.Parse(version)
		if err != nil {
			return fmt.Errorf("failed to parse current version %q: %w", version, err)
		}

		if !found || latest.Version.LTE(v) {
			fmt.Fprintln(out, "Current version is the latest")
			return nil
		}

		proceed := false
		if err := huh.NewConfirm().
			Title(fmt.Sprintf("Update to %s?", latest.Version)).
			Value(&proceed).
			Run(); err != nil {
			return err
		}
		if !proceed {
			return nil
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("could not locate executable path: %w", err)
		}
		if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
			return fmt.Errorf("failed to update binary: %w", err)
		}
		fmt.Fprintln(out, "Successfully updated to version", latest.Version)
		return nil
	},
}
