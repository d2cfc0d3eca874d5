// Package relativize rewrites the local file references of a configuration so
// that it can move between machines inside a backup archive.
package relativize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/archive"
)

// Relativizer converts references between absolute paths and paths relative
// to Root. Files living outside Root, or inside it but left out of archives
// built with Options, are copied into DependenciesDir, which must itself be
// inside Root, so that they travel with the archive.
type Relativizer struct {
	Root            string
	DependenciesDir string
	Options         archive.Options
}

func New(paths halyard.PathResolver) *Relativizer {
	return &Relativizer{
		Root:            paths.ConfigRoot(),
		DependenciesDir: paths.DependenciesDir(),
		Options:         archive.DefaultOptions(),
	}
}

// Outbound makes every absolute reference in cfg relative to Root, copying
// referenced files that an archive would not carry into DependenciesDir first.
func (r *Relativizer) Outbound(cfg halyard.Config) error {
	root := filepath.Clean(r.Root)
	deps := filepath.Clean(r.DependenciesDir)
	if _, ok := within(root, deps); !ok {
		return fmt.Errorf("dependencies directory %s is not inside %s", deps, root)
	}

	for _, ref := range cfg.LocalFiles() {
		p := ref.Path()
		if !filepath.IsAbs(p) {
			continue
		}
		p = filepath.Clean(p)

		if rel, ok := within(root, p); ok {
			if _, inDeps := within(deps, p); inDeps || !r.Options.Filtered(rel) {
				ref.SetPath(rel)
				continue
			}
		}

		dest := filepath.Join(deps, dependencyName(p))
		if err := copyFile(p, dest); err != nil {
			return err
		}
		rel, _ := within(root, dest)
		logrus.WithFields(logrus.Fields{"from": p, "to": rel}).Debug("copied local file dependency")
		ref.SetPath(rel)
	}
	return nil
}

// Inbound turns every relative reference in cfg into an absolute path under Root.
func (r *Relativizer) Inbound(cfg halyard.Config) error {
	for _, ref := range cfg.LocalFiles() {
		p := ref.Path()
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		ref.SetPath(filepath.Join(r.Root, filepath.FromSlash(p)))
	}
	return nil
}

// within returns p relative to root as a slash path when p is strictly below root.
func within(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// dependencyName keeps copies of same-named files from different directories apart.
func dependencyName(p string) string {
	sum := sha256.Sum256([]byte(p))
	return fmt.Sprintf("%s-%s", hex.EncodeToString(sum[:4]), path.Base(filepath.ToSlash(p)))
}

func copyFile(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return halyard.IOError("create directory", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return halyard.IOError("open local file", src, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close", src, in.Close())
	}()

	info, err := in.Stat()
	if err != nil {
		return halyard.IOError("stat local file", src, err)
	}
	if !info.Mode().IsRegular() {
		return halyard.IOError("copy local file", src, fmt.Errorf("not a regular file"))
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return halyard.IOError("create", dst, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close", dst, out.Close())
	}()

	if _, err := io.Copy(out, in); err != nil {
		return halyard.IOError("copy local file", src, err)
	}
	return nil
}
