package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/system"
	"github.com/armory/halyard/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup archives, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := settings.Layout().BackupDir()
		names, err := system.ListBackups(dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Backups in "+dir))
		if len(names) == 0 {
			fmt.Fprintln(out, subtitleStyle.Render("No backups found"))
			return nil
		}
		for _, name := range names {
			when := "unknown time"
			if t, err := halyard.BackupTime(name); err == nil {
				when = t.Format("2006-01-02 15:04:05 MST")
			}
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil {
				when += ", " + utils.PrettyPrintDiskSize(uint64(info.Size()))
			}
			fmt.Fprintf(out, " - %s %s\n", path, subtitleStyle.Render("("+when+")"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
