package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armory/halyard/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Get halbackup version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "halbackup Release: %s\n", info.Release)
		fmt.Fprintf(out, "Git: %s\n", info.Git.Commit)
		fmt.Fprintf(out, "Dirty: %t\n", info.Git.Dirty)
		if !info.Git.LastCommit.IsZero() {
			fmt.Fprintf(out, "Last commit: %s\n", info.Git.LastCommit.Format("2006-01-02 15:04:05 MST"))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
