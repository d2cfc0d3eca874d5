package archive

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	halyard "github.com/armory/halyard/pkg"
)

const tarBlockSize = 512

var errUnsafePath = errors.New("entry escapes the target directory")

// Extract materializes the tar stream r into fsys in stream order. Existing
// files are replaced. The stream is checked for a readable tar header before
// anything is written; after that any failure aborts with whatever was already
// extracted left in place.
func Extract(r io.Reader, fsys billy.Filesystem) error {
	br := bufio.NewReader(r)
	if _, err := br.Peek(tarBlockSize); err != nil {
		return halyard.FormatError("open backup", "", fmt.Errorf("stream shorter than a tar block: %w", err))
	}

	tr := tar.NewReader(br)
	header, err := next(tr)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return halyard.FormatError("open backup", "", err)
	}

	for header != nil {
		if err := extractEntry(tr, header, fsys); err != nil {
			return err
		}
		header, err = next(tr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return halyard.IOError("read archive entry", "", err)
		}
	}
	return nil
}

// next reads the following header. Insecure names are not an error here,
// entryPath rejects the ones that would leave the target.
func next(tr *tar.Reader) (*tar.Header, error) {
	header, err := tr.Next()
	if errors.Is(err, tar.ErrInsecurePath) {
		return header, nil
	}
	return header, err
}

// ExtractFile opens the archive at archivePath and extracts it into fsys.
func ExtractFile(archivePath string, fsys billy.Filesystem) (err error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return halyard.IOError("open backup", archivePath, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close backup", archivePath, file.Close())
	}()

	if err := Extract(file, fsys); err != nil {
		var e *halyard.Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = archivePath
		}
		return err
	}
	return nil
}

func extractEntry(tr *tar.Reader, header *tar.Header, fsys billy.Filesystem) error {
	name, err := entryPath(header.Name)
	if err != nil {
		return halyard.FormatError("read archive entry", header.Name, err)
	}
	if name == "." {
		return nil
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err := fsys.MkdirAll(name, 0755); err != nil {
			return halyard.IOError("create directory", name, err)
		}
		return nil
	case tar.TypeReg:
		return writeFile(tr, name, os.FileMode(header.Mode).Perm(), fsys)
	default:
		logrus.WithFields(logrus.Fields{
			"entry": header.Name,
			"type":  string(header.Typeflag),
		}).Warn("skipping unsupported archive entry")
		return nil
	}
}

func writeFile(r io.Reader, name string, perm os.FileMode, fsys billy.Filesystem) (err error) {
	if dir := path.Dir(name); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return halyard.IOError("create directory", dir, err)
		}
	}
	if perm == 0 {
		perm = 0644
	}

	file, err := fsys.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return halyard.IOError("create", name, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close", name, file.Close())
	}()

	if _, err := io.Copy(file, r); err != nil {
		return halyard.IOError("write", name, err)
	}
	return nil
}

// entryPath turns an archive member name into a path relative to the target.
// Archives written by older tooling prefix every name with a slash.
func entryPath(name string) (string, error) {
	clean := path.Clean(strings.TrimLeft(name, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errUnsafePath
	}
	return clean, nil
}
