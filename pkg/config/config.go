// Package config loads halbackup settings from halbackup.yaml, HALBACKUP_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/archive"
	"github.com/armory/halyard/pkg/halconfig"
	"github.com/armory/halyard/pkg/system"
)

const (
	KeyConfigRoot      = "config-root"
	KeyBackupDir       = "backup-dir"
	KeyJournal         = "journal"
	KeyMinFreeSpace    = "min-free-space"
	KeyExclusions      = "exclusions"
	KeyHiddenAllowlist = "hidden-allowlist"
	KeyLocalFileKeys   = "local-file-keys"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyLogFile         = "log-file"
	KeyLogMaxSizeMB    = "log-max-size-mb"
	KeyLogMaxBackups   = "log-max-backups"
)

type Settings struct {
	ConfigRoot string `mapstructure:"config-root"`
	// BackupDir overrides the rotation directory. Empty means <config-root>/.backups.
	BackupDir string `mapstructure:"backup-dir"`
	// Journal is the sqlite operation history. Empty means <config-root>/.halbackup/journal.db.
	Journal         string   `mapstructure:"journal"`
	MinFreeSpace    uint64   `mapstructure:"min-free-space"`
	Exclusions      []string `mapstructure:"exclusions"`
	HiddenAllowlist []string `mapstructure:"hidden-allowlist"`
	LocalFileKeys   []string `mapstructure:"local-file-keys"`

	LogLevel      string `mapstructure:"log-level"`
	LogFormat     string `mapstructure:"log-format"`
	LogFile       string `mapstructure:"log-file"`
	LogMaxSizeMB  int    `mapstructure:"log-max-size-mb"`
	LogMaxBackups int    `mapstructure:"log-max-backups"`
}

func Defaults() map[string]any {
	return map[string]any{
		KeyConfigRoot:      "~/.hal",
		KeyBackupDir:       "",
		KeyJournal:         "",
		KeyMinFreeSpace:    0,
		KeyExclusions:      halyard.DefaultExclusions,
		KeyHiddenAllowlist: halyard.DefaultHiddenAllowlist,
		KeyLocalFileKeys:   halconfig.DefaultLocalFileKeys,
		KeyLogLevel:        "info",
		KeyLogFormat:       "text",
		KeyLogFile:         "",
		KeyLogMaxSizeMB:    10,
		KeyLogMaxBackups:   3,
	}
}

func userConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "halbackup"), nil
}

// Load reads settings for cmd. configFile, when not empty, replaces the
// halbackup.yaml search and must exist.
func Load(cmd *cobra.Command, configFile string) (Settings, error) {
	var s Settings
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("halbackup")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if dir, err := userConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return s, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	v.SetEnvPrefix("halbackup")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return s, err
		}
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}

	root, err := expandHome(s.ConfigRoot)
	if err != nil {
		return s, err
	}
	s.ConfigRoot = root
	return s, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func (s Settings) Layout() halconfig.Layout {
	layout := halconfig.NewLayout(s.ConfigRoot)
	if s.BackupDir != "" {
		layout.Backups = s.BackupDir
	}
	return layout
}

func (s Settings) JournalPath() string {
	if s.Journal != "" {
		return s.Journal
	}
	return filepath.Join(s.ConfigRoot, ".halbackup", "journal.db")
}

func (s Settings) BackupOptions() system.BackupOptions {
	opts := system.DefaultBackupOptions()
	opts.Archive = archive.Options{
		Exclusions:      s.Exclusions,
		HiddenAllowlist: s.HiddenAllowlist,
	}
	opts.MinFreeBytes = s.MinFreeSpace
	return opts
}

func (s Settings) Store() *halconfig.FileStore {
	return halconfig.NewFileStore(s.Layout(), s.LocalFileKeys)
}
