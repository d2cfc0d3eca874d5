package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/config"
	"github.com/armory/halyard/pkg/journal"
	"github.com/armory/halyard/pkg/system"
)

var (
	configFile string
	settings   config.Settings
	logFile    *lumberjack.Logger

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
)

var rootCmd = &cobra.Command{
	Use:   "halbackup",
	Short: "Back up, restore and roll back a halconfig directory",
	Long: `halbackup snapshots a halconfig directory, together with the local files
its accounts reference, into a portable tar archive and restores it later,
possibly on another machine or under another directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(cmd, configFile)
		if err != nil {
			return err
		}
		settings = s
		return setupLogging(s, cmd.ErrOrStderr())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "settings file (default is $XDG_CONFIG_HOME/halbackup/halbackup.yaml or ./halbackup.yaml)")
	flags.String(config.KeyConfigRoot, "", "halconfig directory (default ~/.hal)")
	flags.String(config.KeyBackupDir, "", "directory holding backup archives (default <config-root>/.backups)")
	flags.String(config.KeyJournal, "", "operation journal database (default <config-root>/.halbackup/journal.db)")
	flags.Uint64(config.KeyMinFreeSpace, 0, "bytes that must be free before an archive is written")
	flags.String(config.KeyLogLevel, "", "log level: trace, debug, info, warn, error (default info)")
	flags.String(config.KeyLogFormat, "", "log format: text or json (default text)")
	flags.String(config.KeyLogFile, "", "also write logs to this file, rotated")
}

func setupLogging(s config.Settings, stderr io.Writer) error {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch s.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", s.LogFormat)
	}

	if s.LogFile == "" {
		logrus.SetOutput(stderr)
		return nil
	}
	logFile = &lumberjack.Logger{
		Filename:   s.LogFile,
		MaxSize:    s.LogMaxSizeMB,
		MaxBackups: s.LogMaxBackups,
	}
	logrus.SetOutput(io.MultiWriter(stderr, logFile))
	return nil
}

func newBackupManager(op, opID string) *system.BackupManager {
	return system.NewBackupManager(
		settings.Store(),
		settings.Layout(),
		settings.BackupOptions(),
		halyard.NewActionLogger(op, opID, logrus.StandardLogger()),
	)
}

// journaled runs fn as one journal entry. fn gets the operation id and
// returns the archive it produced or consumed. The operation still runs when
// the journal cannot be opened.
func journaled(kind journal.Kind, archive string, fn func(opID string) (string, error)) error {
	j, err := journal.Open(settings.JournalPath())
	if err != nil {
		logrus.WithError(err).Warn("operation journal unavailable")
		_, opErr := fn("")
		return opErr
	}
	defer j.Close()

	rec, err := j.Begin(kind, archive)
	if err != nil {
		logrus.WithError(err).Warn("failed to journal operation")
		_, opErr := fn("")
		return opErr
	}

	got, opErr := fn(rec.ID)
	if got != "" {
		rec.Archive = got
	}
	if err := j.Finish(rec, opErr); err != nil {
		logrus.WithError(err).Warn("failed to journal operation result")
	}
	return opErr
}
