package main

import (
	"fmt"

	"github.com/blackcoderx/postsync/pkg/core"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .postsync/config.json with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := core.InitializeFolder(fs, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, nothing to do.\n", core.FolderName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
