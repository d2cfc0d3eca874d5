package halconfig

import "path/filepath"

const (
	configFileName    = "config"
	backupStateDir    = ".backup"
	requiredFilesDir  = "required-files"
	backupTarballsDir = ".backups"
)

// Layout resolves the paths of a halconfig directory.
type Layout struct {
	Root         string
	Backups      string
	Dependencies string
}

// NewLayout returns the default layout for a halconfig directory. Backups go
// to a hidden directory inside root so that they are never archived themselves.
func NewLayout(root string) Layout {
	return Layout{
		Root:         root,
		Backups:      filepath.Join(root, backupTarballsDir),
		Dependencies: filepath.Join(root, backupStateDir, requiredFilesDir),
	}
}

func (l Layout) ConfigRoot() string {
	return l.Root
}

func (l Layout) BackupDir() string {
	return l.Backups
}

func (l Layout) DependenciesDir() string {
	return l.Dependencies
}

// ConfigPath is the live halconfig.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.Root, configFileName)
}

// BackupConfigPath holds the copy taken before a backup rewrites the live halconfig.
func (l Layout) BackupConfigPath() string {
	return filepath.Join(l.Root, backupStateDir, configFileName)
}
