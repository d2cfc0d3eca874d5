package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/armory/halyard/pkg/archive"
)

// Rewrites a backup written by older tooling (absolute entry names) into one
// with root-relative names. Every entry is kept, including hidden top-level
// names and names that are normally excluded.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./scripts/normalize-backup.go /path/to/halbackup-<timestamp>.tar")
		os.Exit(1)
	}

	archivePath := os.Args[1]
	if err := normalizeArchive(archivePath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func normalizeArchive(archivePath string) error {
	tempDir, err := os.MkdirTemp("", "halbackup-normalize-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	fsys := osfs.New(tempDir)
	if err := archive.ExtractFile(archivePath, fsys); err != nil {
		return err
	}

	opts, err := keepEverything(tempDir)
	if err != nil {
		return err
	}

	entries := 0
	for _, err := range archive.Walk(fsys, opts) {
		if err != nil {
			return err
		}
		entries++
	}

	newArchive := archivePath + ".fixed"
	if err := archive.BuildFile(newArchive, fsys, opts); err != nil {
		os.Remove(newArchive)
		return err
	}

	backupPath := archivePath + ".bak"
	if err := os.Rename(archivePath, backupPath); err != nil {
		return err
	}
	if err := os.Rename(newArchive, archivePath); err != nil {
		_ = os.Rename(backupPath, archivePath)
		return err
	}

	fmt.Printf("Rewrote %d entries into %s (original at %s)\n", entries, archivePath, backupPath)
	return nil
}

func keepEverything(dir string) (archive.Options, error) {
	top, err := os.ReadDir(dir)
	if err != nil {
		return archive.Options{}, err
	}
	var hidden []string
	for _, entry := range top {
		if strings.HasPrefix(entry.Name(), ".") {
			hidden = append(hidden, entry.Name())
		}
	}
	return archive.Options{HiddenAllowlist: hidden}, nil
}
