package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armory/halyard/pkg/journal"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup archive of the halconfig directory",
	Long: `Create a backup archive of the halconfig directory.
Local files referenced from the halconfig that live outside the directory are
copied into it first so the archive can be restored anywhere.

By default the archive is written to the backup directory as
halbackup-<timestamp>.tar. Use --output to write it somewhere else.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		var created string
		err := journaled(journal.KindCreate, output, func(opID string) (string, error) {
			manager := newBackupManager("create", opID)
			var err error
			if output != "" {
				created, err = manager.CreateAt(output)
			} else {
				created, err = manager.Create()
			}
			return created, err
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Backup created: ")+created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringP("output", "o", "", "write the archive to this path instead of the backup directory")
}
