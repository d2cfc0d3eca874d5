package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armory/halyard/pkg/journal"
	"github.com/armory/halyard/pkg/system"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore the backup taken before the most recent one",
	Long: `Restore the backup taken before the most recent one.
The most recent archive is assumed to hold the state being rolled back, so at
least two archives must exist in the backup directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if dryRun {
			target, err := system.SelectRollbackTarget(settings.Layout().BackupDir())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), progressStyle.Render("Would roll back to: ")+target)
			return nil
		}

		var target string
		err := journaled(journal.KindRollback, "", func(opID string) (string, error) {
			var err error
			target, err = newBackupManager("rollback", opID).Rollback()
			return target, err
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Rolled back to: ")+target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().Bool("dry-run", false, "print the archive that would be restored and stop")
}
