package halconfig

import (
	"fmt"
	"os"
	"path/filepath"

	halyard "github.com/armory/halyard/pkg"
)

// FileStore persists the primary and backup halconfig working copies as files.
type FileStore struct {
	layout Layout
	keys   []string
}

// NewFileStore creates a store over layout. A nil keys slice means DefaultLocalFileKeys.
func NewFileStore(layout Layout, keys []string) *FileStore {
	if keys == nil {
		keys = DefaultLocalFileKeys
	}
	return &FileStore{layout: layout, keys: keys}
}

func (s *FileStore) path(mode halyard.ConfigMode) (string, error) {
	switch mode {
	case halyard.ConfigPrimary:
		return s.layout.ConfigPath(), nil
	case halyard.ConfigBackup:
		return s.layout.BackupConfigPath(), nil
	default:
		return "", fmt.Errorf("unknown config mode %v", mode)
	}
}

func (s *FileStore) Load(mode halyard.ConfigMode) (halyard.Config, error) {
	path, err := s.path(mode)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, halyard.IOError(fmt.Sprintf("read %s halconfig", mode), path, err)
	}
	doc, err := Parse(data, s.keys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes cfg to a temp file next to the target and renames it into place.
func (s *FileStore) Save(mode halyard.ConfigMode, cfg halyard.Config) error {
	path, err := s.path(mode)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return halyard.IOError("create directory", filepath.Dir(path), err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return halyard.IOError(fmt.Sprintf("write %s halconfig", mode), tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return halyard.IOError(fmt.Sprintf("write %s halconfig", mode), path, err)
	}
	return nil
}
