package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/archive"
	"github.com/armory/halyard/pkg/relativize"
)

type BackupOptions struct {
	Archive archive.Options
	// MinFreeBytes is the free space the destination filesystem must have
	// before an archive is written. Zero disables the check.
	MinFreeBytes uint64
	Now          func() time.Time
}

func DefaultBackupOptions() BackupOptions {
	return BackupOptions{
		Archive: archive.DefaultOptions(),
		Now:     time.Now,
	}
}

// BackupManager snapshots a halconfig directory into a tar archive and
// restores one back into place.
type BackupManager struct {
	store halyard.ConfigPersistence
	paths halyard.PathResolver
	rel   *relativize.Relativizer
	opts  BackupOptions
	log   halyard.ActionLogger
}

func NewBackupManager(store halyard.ConfigPersistence, paths halyard.PathResolver, opts BackupOptions, log halyard.ActionLogger) *BackupManager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = halyard.NewActionLogger("backup", "", nil)
	}
	rel := relativize.New(paths)
	rel.Options = opts.Archive
	return &BackupManager{
		store: store,
		paths: paths,
		rel:   rel,
		opts:  opts,
		log:   log,
	}
}

// Create writes a new archive into the rotation directory and returns its path.
func (t *BackupManager) Create() (string, error) {
	name := halyard.BackupFileName(t.opts.Now())
	return t.CreateAt(filepath.Join(t.paths.BackupDir(), name))
}

// CreateAt writes an archive of the configuration root to dest. The live
// halconfig is rewritten with relative references while the archive is built
// and put back afterwards, whatever the outcome.
func (t *BackupManager) CreateAt(dest string) (path string, err error) {
	log := t.log.Step("backup-config")
	log.Progress(5).Log("Saving a copy of the current halconfig")

	cfg, err := t.store.Load(halyard.ConfigPrimary)
	if err != nil {
		log.Errf("Failed to load halconfig: %v", err)
		return "", err
	}
	if err := t.store.Save(halyard.ConfigBackup, cfg); err != nil {
		log.Errf("Failed to save halconfig working copy: %v", err)
		return "", err
	}

	defer func() {
		rerr := t.revert()
		if rerr != nil {
			log.Errf("Failed to restore halconfig after backup: %v", rerr)
		}
		err = halyard.WithCleanup(err, "revert halconfig", t.paths.ConfigRoot(), rerr)
		if err != nil {
			path = ""
		}
	}()

	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		log.Errf("Failed to create backup directory: %v", err)
		return "", halyard.IOError("create directory", destDir, err)
	}

	log.Progress(15).Log("Checking free space")
	if err := checkFreeSpace(destDir, t.opts.MinFreeBytes); err != nil {
		log.Errf("Free space check failed: %v", err)
		return "", err
	}

	log.Progress(25).Log("Collecting local file dependencies")
	if err := t.rel.Outbound(cfg); err != nil {
		log.Errf("Failed to relativize local files: %v", err)
		return "", fmt.Errorf("unable to safely backup halconfig: %w", err)
	}
	if err := t.store.Save(halyard.ConfigPrimary, cfg); err != nil {
		log.Errf("Failed to save relativized halconfig: %v", err)
		return "", err
	}

	log.Progress(50).Log("Writing backup archive")
	if err := t.writeArchive(dest); err != nil {
		log.Errf("Failed to write backup archive: %v", err)
		return "", fmt.Errorf("unable to safely backup halconfig: %w", err)
	}

	log.Progress(100).Logf("Backup created at %s", dest)
	return dest, nil
}

func (t *BackupManager) revert() error {
	cfg, err := t.store.Load(halyard.ConfigBackup)
	if err != nil {
		return err
	}
	return t.store.Save(halyard.ConfigPrimary, cfg)
}

// writeArchive builds into a hidden temp file beside dest so a failed build
// never leaves a half written halbackup-*.tar in the rotation. Neither file,
// nor the rotation directory, is archived when it sits under the root.
func (t *BackupManager) writeArchive(dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".halbackup-*.tmp")
	if err != nil {
		return halyard.IOError("create temp archive", filepath.Dir(dest), err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return halyard.IOError("create temp archive", tmpPath, err)
	}

	root := t.paths.ConfigRoot()
	opts := t.opts.Archive
	opts.Skip = append([]string(nil), opts.Skip...)
	for _, p := range []string{dest, tmpPath, t.paths.BackupDir()} {
		if rel, ok := relativeTo(root, p); ok {
			opts.Skip = append(opts.Skip, rel)
		}
	}

	if err := archive.BuildFile(tmpPath, osfs.New(root), opts); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return halyard.IOError("move archive into place", dest, err)
	}
	return nil
}

// relativeTo returns p as a slash path below root, or false when p is not
// strictly inside root.
func relativeTo(root, p string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Restore unpacks archivePath into the configuration root and points every
// relative local file reference at its restored copy.
func (t *BackupManager) Restore(archivePath string) error {
	log := t.log.Step("restore-config")
	root := t.paths.ConfigRoot()

	log.Progress(5).Logf("Restoring %s into %s", archivePath, root)
	if err := os.MkdirAll(root, 0755); err != nil {
		log.Errf("Failed to create halconfig directory: %v", err)
		return halyard.IOError("create directory", root, err)
	}
	if err := archive.ExtractFile(archivePath, osfs.New(root)); err != nil {
		log.Errf("Failed to extract backup archive: %v", err)
		return err
	}

	log.Progress(60).Log("Resolving local file references")
	cfg, err := t.store.Load(halyard.ConfigPrimary)
	if err != nil {
		log.Errf("Failed to load restored halconfig: %v", err)
		return err
	}
	if err := t.rel.Inbound(cfg); err != nil {
		log.Errf("Failed to resolve local files: %v", err)
		return err
	}
	if err := t.store.Save(halyard.ConfigPrimary, cfg); err != nil {
		log.Errf("Failed to save restored halconfig: %v", err)
		return err
	}

	log.Progress(100).Log("Restore complete")
	return nil
}

// Rollback restores the backup taken before the most recent one and returns
// its path.
func (t *BackupManager) Rollback() (string, error) {
	target, err := SelectRollbackTarget(t.paths.BackupDir())
	if err != nil {
		t.log.Step("rollback").Errf("No rollback target: %v", err)
		return "", err
	}
	t.log.Step("rollback").Logf("Rolling back to %s", filepath.Base(target))
	if err := t.Restore(target); err != nil {
		return "", err
	}
	return target, nil
}
