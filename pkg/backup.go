package halyard

import (
	"fmt"
	"strings"
	"time"
)

const (
	BackupPrefix    = "halbackup-"
	BackupExtension = ".tar"

	// BackupTimestampLayout is fixed width so that sorting backup names
	// lexicographically also sorts them chronologically.
	BackupTimestampLayout = "20060102150405"
)

// DefaultExclusions are basenames that never end up in an archive, at any depth.
var DefaultExclusions = []string{"service-logs"}

// DefaultHiddenAllowlist are the top-level hidden entries that travel with a backup.
var DefaultHiddenAllowlist = []string{".backup", ".boms"}

// BackupFileName returns the rotation file name for a snapshot taken at t.
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("%s%s%s", BackupPrefix, t.UTC().Format(BackupTimestampLayout), BackupExtension)
}

// IsBackupFileName reports whether name belongs to the backup rotation.
func IsBackupFileName(name string) bool {
	return strings.HasPrefix(name, BackupPrefix)
}

// BackupTime parses the timestamp out of a sortable backup file name.
func BackupTime(name string) (time.Time, error) {
	if !IsBackupFileName(name) || !strings.HasSuffix(name, BackupExtension) {
		return time.Time{}, fmt.Errorf("not a backup file name: %s", name)
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, BackupPrefix), BackupExtension)
	return time.ParseInLocation(BackupTimestampLayout, ts, time.UTC)
}

// ConfigMode selects which working copy of the configuration is read or written.
type ConfigMode int

const (
	ConfigPrimary ConfigMode = iota
	ConfigBackup
)

func (m ConfigMode) String() string {
	switch m {
	case ConfigPrimary:
		return "primary"
	case ConfigBackup:
		return "backup"
	default:
		return fmt.Sprintf("ConfigMode(%d)", int(m))
	}
}

// LocalFileRef is a single reference from the configuration to a file on local disk.
type LocalFileRef interface {
	Path() string
	SetPath(path string)
}

// Config is the structured configuration as far as backups are concerned.
type Config interface {
	LocalFiles() []LocalFileRef
	Marshal() ([]byte, error)
}

// ConfigPersistence loads and saves the configuration working copies.
type ConfigPersistence interface {
	Load(mode ConfigMode) (Config, error)
	Save(mode ConfigMode, cfg Config) error
}

// PathResolver knows where the configuration and its backups live.
type PathResolver interface {
	ConfigRoot() string
	BackupDir() string
	DependenciesDir() string
}
