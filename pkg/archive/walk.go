// Package archive turns a configuration directory into a tar stream and back.
//
// Traversal (Walk) is kept apart from serialization (Build) so the filtering
// rules can be exercised without writing any archive.
package archive

import (
	"iter"
	"os"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	halyard "github.com/armory/halyard/pkg"
)

// Options controls which entries of the configuration root are archived.
type Options struct {
	// Exclusions are basenames dropped at every depth.
	Exclusions []string
	// HiddenAllowlist are hidden top-level names that are kept anyway.
	HiddenAllowlist []string
	// Skip are root-relative slash paths dropped together with everything
	// below them.
	Skip []string
}

// DefaultOptions returns the exclusion set and allow-list used for halconfig backups.
func DefaultOptions() Options {
	return Options{
		Exclusions:      append([]string(nil), halyard.DefaultExclusions...),
		HiddenAllowlist: append([]string(nil), halyard.DefaultHiddenAllowlist...),
	}
}

// Filtered reports whether the root-relative slash path rel, or one of its
// parents, is left out of an archive built with o.
func (o Options) Filtered(rel string) bool {
	parts := strings.Split(path.Clean(rel), "/")
	if strings.HasPrefix(parts[0], ".") && !slices.Contains(o.HiddenAllowlist, parts[0]) {
		return true
	}
	for i, part := range parts {
		if slices.Contains(o.Exclusions, part) || slices.Contains(o.Skip, path.Join(parts[:i+1]...)) {
			return true
		}
	}
	return false
}

// Entry is one archive member, addressed relative to the configuration root.
type Entry struct {
	// Path is slash separated and never absolute.
	Path string
	Dir  bool
	Info os.FileInfo
}

// Walk lists the entries that belong in an archive of fsys, directories before
// their contents. The hidden-name rule only applies to the top level: hidden
// entries nested under an archived directory are kept. Each range over the
// returned sequence re-reads the tree.
func Walk(fsys billy.Filesystem, opts Options) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		w := &walker{
			fs:       fsys,
			excluded: toSet(opts.Exclusions),
			allowed:  toSet(opts.HiddenAllowlist),
			skipped:  toSet(opts.Skip),
			yield:    yield,
		}
		w.walkRoot()
	}
}

type walker struct {
	fs       billy.Filesystem
	excluded map[string]bool
	allowed  map[string]bool
	skipped  map[string]bool
	yield    func(Entry, error) bool
}

func (w *walker) walkRoot() {
	children, err := w.readDir(".")
	if err != nil {
		w.yield(Entry{}, err)
		return
	}
	for _, child := range children {
		name := child.Name()
		if strings.HasPrefix(name, ".") && !w.allowed[name] {
			logrus.WithField("name", name).Debug("skipping hidden entry")
			continue
		}
		if !w.add(child, "") {
			return
		}
	}
}

// add yields info (and everything below it) and reports whether the walk should go on.
func (w *walker) add(info os.FileInfo, base string) bool {
	name := info.Name()
	if w.excluded[name] {
		logrus.WithField("path", path.Join(base, name)).Debug("skipping excluded entry")
		return true
	}
	rel := path.Join(base, name)
	if w.skipped[rel] {
		logrus.WithField("path", rel).Debug("skipping entry")
		return true
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := w.fs.Stat(rel)
		if err != nil {
			return w.yield(Entry{}, halyard.IOError("stat", rel, err))
		}
		if target.IsDir() {
			logrus.WithField("path", rel).Warn("skipping symlinked directory")
			return true
		}
		info = target
	}

	switch {
	case info.Mode().IsRegular():
		return w.yield(Entry{Path: rel, Info: info}, nil)
	case info.IsDir():
		if !w.yield(Entry{Path: rel, Dir: true, Info: info}, nil) {
			return false
		}
		children, err := w.readDir(rel)
		if err != nil {
			return w.yield(Entry{}, err)
		}
		for _, child := range children {
			if !w.add(child, rel) {
				return false
			}
		}
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"path": rel,
			"mode": info.Mode().String(),
		}).Warn("unknown file type, skipping addition to archive")
		return true
	}
}

func (w *walker) readDir(dir string) ([]os.FileInfo, error) {
	children, err := w.fs.ReadDir(dir)
	if err != nil {
		return nil, halyard.IOError("list directory", dir, err)
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name() < children[j].Name()
	})
	return children, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
