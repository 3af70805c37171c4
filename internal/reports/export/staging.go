package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staging collects output files written to temporary files next to their
// targets. Targets are only replaced by Commit, so a failed run leaves every
// previous output in place.
type Staging struct {
	files []stagedFile
}

type stagedFile struct {
	path string
	tmp  *os.File
}

// NewStaging creates an empty staging set
func NewStaging() *Staging {
	return &Staging{}
}

// Create opens a temporary file in the directory of path and returns it for
// writing. The file becomes path on Commit.
func (s *Staging) Create(path string) (io.Writer, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	s.files = append(s.files, stagedFile{path: path, tmp: tmp})
	return tmp, nil
}

// Paths returns the staged target paths in creation order
func (s *Staging) Paths() []string {
	paths := make([]string, len(s.files))
	for i, f := range s.files {
		paths[i] = f.path
	}
	return paths
}

// Commit flushes every staged file to disk and renames each over its
// target. Nothing is renamed unless all files were flushed.
func (s *Staging) Commit() error {
	defer s.Discard()

	for _, f := range s.files {
		if err := f.tmp.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %w", f.path, err)
		}
		if err := f.tmp.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", f.path, err)
		}
	}
	for _, f := range s.files {
		if err := os.Rename(f.tmp.Name(), f.path); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", f.path, err)
		}
	}
	return nil
}

// Discard removes every staged file that was not committed. It is safe to
// call after Commit.
func (s *Staging) Discard() {
	for _, f := range s.files {
		f.tmp.Close()
		os.Remove(f.tmp.Name())
	}
	s.files = nil
}

// WriteFileAtomic stages a single file, fills it with write and commits it.
// On failure path is left untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	stage := NewStaging()
	defer stage.Discard()

	w, err := stage.Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		return err
	}
	return stage.Commit()
}
