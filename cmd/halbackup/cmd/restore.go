package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/armory/halyard/pkg/journal"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore a backup archive into the halconfig directory",
	Long: `Restore a backup archive into the halconfig directory.
Files in the archive replace files of the same name; other files are left
alone. Local file references in the restored halconfig are pointed at the
restored copies.

Example:
  halbackup restore ~/.hal/.backups/halbackup-20240102030405.tar`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		err = journaled(journal.KindRestore, archivePath, func(opID string) (string, error) {
			return archivePath, newBackupManager("restore", opID).Restore(archivePath)
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Restored ")+archivePath+" into "+settings.ConfigRoot)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
