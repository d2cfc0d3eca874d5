package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	halyard "github.com/armory/halyard/pkg"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0644))
}

func TestCreateListRollbackHistory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	configPath := filepath.Join(root, "config")
	require.NoError(t, os.WriteFile(configPath, []byte("currentDeployment: old\n"), 0644))

	out, err := execute(t, "create", "--config-root", root, "--output=")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup created")

	backups := filepath.Join(root, ".backups")
	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	older := filepath.Join(backups, "halbackup-20000101000000.tar")
	copyFile(t, filepath.Join(backups, entries[0].Name()), older)

	out, err = execute(t, "list", "--config-root", root)
	require.NoError(t, err)
	assert.Contains(t, out, older)
	assert.Contains(t, out, entries[0].Name())

	out, err = execute(t, "rollback", "--config-root", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, older)

	require.NoError(t, os.WriteFile(configPath, []byte("currentDeployment: new\n"), 0644))
	out, err = execute(t, "rollback", "--config-root", root, "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back to")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "currentDeployment: old")

	out, err = execute(t, "history", "--config-root", root)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "rollback")
	assert.Contains(t, lines[0], "completed")
	assert.Contains(t, lines[0], older)
	assert.Contains(t, lines[1], "create")
}

func TestRollbackWithoutHistory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()

	_, err := execute(t, "rollback", "--config-root", root, "--dry-run")

	require.Error(t, err)
	assert.ErrorIs(t, err, halyard.ErrRotation)
}

func TestRestoreRejectsNonArchive(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	bogus := filepath.Join(t.TempDir(), "bogus.tar")
	require.NoError(t, os.WriteFile(bogus, []byte("not a tar"), 0644))

	_, err := execute(t, "restore", bogus, "--config-root", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, halyard.ErrArchiveFormat)

	out, err := execute(t, "history", "--config-root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, bogus)
}

func TestVersion(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := execute(t, "version", "--config-root", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, out, "halbackup Release:")
}
