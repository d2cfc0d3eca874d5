package system

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/halconfig"
)

func mustWriteFile(t *testing.T, path string, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func writeHalconfig(t *testing.T, root, deployment string, kubeconfigs ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("currentDeployment: " + deployment + "\n")
	b.WriteString("deploymentConfigurations:\n  - name: " + deployment + "\n    providers:\n      kubernetes:\n        accounts:\n")
	for i, k := range kubeconfigs {
		b.WriteString("          - name: account" + string(rune('a'+i)) + "\n")
		b.WriteString("            kubeconfigFile: " + k + "\n")
	}
	mustWriteFile(t, filepath.Join(root, "config"), b.String())
}

// archiveNames lists the member names of the tar file at path.
func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var names []string
	tr := tar.NewReader(f)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return names
		}
		require.NoError(t, err)
		names = append(names, header.Name)
	}
}

func localPaths(t *testing.T, store halyard.ConfigPersistence, mode halyard.ConfigMode) []string {
	t.Helper()
	cfg, err := store.Load(mode)
	require.NoError(t, err)
	var out []string
	for _, ref := range cfg.LocalFiles() {
		out = append(out, ref.Path())
	}
	return out
}

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			panic(err)
		}
		return t
	}
}

func newManager(root string, opts BackupOptions) (*BackupManager, *halconfig.FileStore) {
	layout := halconfig.NewLayout(root)
	store := halconfig.NewFileStore(layout, nil)
	return NewBackupManager(store, layout, opts, nil), store
}

// recordingStore fails the requested calls and records every call made.
type recordingStore struct {
	halyard.ConfigPersistence
	calls     []string
	failSave  map[int]bool
	failLoad  map[halyard.ConfigMode]bool
	saveCount int
}

func (s *recordingStore) Load(mode halyard.ConfigMode) (halyard.Config, error) {
	s.calls = append(s.calls, "load "+mode.String())
	if s.failLoad[mode] {
		return nil, errors.New("load failed")
	}
	return s.ConfigPersistence.Load(mode)
}

func (s *recordingStore) Save(mode halyard.ConfigMode, cfg halyard.Config) error {
	s.calls = append(s.calls, "save "+mode.String())
	s.saveCount++
	if s.failSave[s.saveCount] {
		return errors.New("save failed")
	}
	return s.ConfigPersistence.Save(mode, cfg)
}
