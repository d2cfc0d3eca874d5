package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/armory/halyard/pkg/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent create, restore and rollback operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		j, err := journal.Open(settings.JournalPath())
		if err != nil {
			return err
		}
		defer j.Close()

		records, err := j.List(limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, subtitleStyle.Render("No operations recorded"))
			return nil
		}
		for _, rec := range records {
			fmt.Fprintf(out, "%s  %-8s  %s  %s\n",
				rec.Started.Local().Format(time.DateTime),
				rec.Kind,
				renderStatus(rec.Status),
				rec.Archive,
			)
			if rec.ErrorMessage != "" {
				fmt.Fprintln(out, "    "+errorStyle.Render(rec.ErrorMessage))
			}
		}
		return nil
	},
}

func renderStatus(s journal.Status) string {
	label := fmt.Sprintf("%-11s", s)
	switch s {
	case journal.StatusCompleted:
		return successStyle.Render(label)
	case journal.StatusFailed:
		return errorStyle.Render(label)
	default:
		return progressStyle.Render(label)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of operations to show, 0 for all")
}
