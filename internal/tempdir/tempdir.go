package tempdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prefix is the name prefix of every session directory. Clean only ever
// touches directories carrying it.
const Prefix = "merge-rpd-"

// Dir is a private temporary directory holding the files of one driver
// invocation.
type Dir struct {
	Path string
}

// New creates a new session directory below root.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	path, err := os.MkdirTemp(root, Prefix)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	return &Dir{Path: path}, nil
}

// Join returns the path of name inside the directory.
func (d *Dir) Join(name string) string {
	return filepath.Join(d.Path, name)
}

// Remove deletes the directory and everything in it.
func (d *Dir) Remove() error {
	if !strings.HasPrefix(filepath.Base(d.Path), Prefix) {
		panic(invalidCleanRoot("refusing to remove " + d.Path))
	}
	return os.RemoveAll(d.Path)
}
