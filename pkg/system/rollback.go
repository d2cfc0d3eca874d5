package system

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	halyard "github.com/armory/halyard/pkg"
)

// ListBackups returns the names of the backup archives in dir, oldest first.
// A missing dir is an empty rotation.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, halyard.IOError("list backups", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !halyard.IsBackupFileName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SelectRollbackTarget picks the archive written before the most recent one.
// The most recent archive is assumed to capture the state being rolled back.
func SelectRollbackTarget(dir string) (string, error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return "", err
	}
	if len(backups) < 2 {
		return "", halyard.RotationError(dir, halyard.ErrNoRollbackTarget)
	}
	return filepath.Join(dir, backups[len(backups)-2]), nil
}
