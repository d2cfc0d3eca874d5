package archive

import (
	"archive/tar"
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	halyard "github.com/armory/halyard/pkg"
)

// Build writes every entry of fsys selected by opts to w as an uncompressed tar
// stream. The tar trailer is always written; a failure doing so is returned as a
// cleanup failure even when Build is already failing. Nothing is repaired on
// failure, w may hold a partial archive.
func Build(w io.Writer, fsys billy.Filesystem, opts Options) (err error) {
	tw := tar.NewWriter(w)
	defer func() {
		err = halyard.WithCleanup(err, "finalize archive", "", tw.Close())
	}()

	for entry, walkErr := range Walk(fsys, opts) {
		if walkErr != nil {
			return walkErr
		}
		if err := writeEntry(tw, fsys, entry); err != nil {
			return err
		}
	}
	return nil
}

// BuildFile creates dest and writes the archive of fsys into it.
func BuildFile(dest string, fsys billy.Filesystem, opts Options) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return halyard.IOError("create archive directory", filepath.Dir(dest), err)
	}
	file, err := os.Create(dest)
	if err != nil {
		return halyard.IOError("create archive", dest, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close archive", dest, file.Close())
	}()

	buffered := bufio.NewWriter(file)
	if err := Build(buffered, fsys, opts); err != nil {
		logrus.WithField("archive", dest).WithError(err).Info("error caught during tar operation")
		return err
	}
	if err := buffered.Flush(); err != nil {
		return halyard.IOError("flush archive", dest, err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, fsys billy.Filesystem, entry Entry) error {
	header, err := tar.FileInfoHeader(entry.Info, "")
	if err != nil {
		return halyard.IOError("build header for", entry.Path, err)
	}
	header.Name = entry.Path
	if entry.Dir {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return halyard.IOError("write archive header for", entry.Path, err)
	}
	if entry.Dir {
		return nil
	}
	return copyFileToTar(tw, fsys, entry.Path)
}

func copyFileToTar(tw *tar.Writer, fsys billy.Filesystem, name string) (err error) {
	file, err := fsys.Open(name)
	if err != nil {
		return halyard.IOError("open", name, err)
	}
	defer func() {
		err = halyard.WithCleanup(err, "close", name, file.Close())
	}()

	if _, err := io.Copy(tw, file); err != nil {
		return halyard.IOError("copy into archive", name, err)
	}
	return nil
}
