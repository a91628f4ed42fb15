// Package outfile names and writes the numbered output documents produced by
// compilation and search. Every write is atomic, so a reader never sees a
// half-written document and an existing file is never truncated in place.
package outfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/dd0wney/cluso-cag/pkg/faults"
)

// FileMode is the permission given to every output document.
const FileMode os.FileMode = 0o644

// Numbered inserts an ordinal before the file extension:
// Numbered("out/nspk.dot", 2) is "out/nspk2.dot".
func Numbered(path string, ordinal int) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + strconv.Itoa(ordinal) + ext
}

// WithExt replaces the extension of path.
func WithExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Base returns the file name of path without directory or extension.
func Base(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// WriteAtomic replaces path with data.
func WriteAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, FileMode); err != nil {
		return faults.InputAccess("write", path, err)
	}
	return nil
}

// Set tracks the files written by one operation so a failure can remove
// all of them.
type Set struct {
	paths []string
}

// Write writes data to path and records it.
func (s *Set) Write(path string, data []byte) error {
	if err := WriteAtomic(path, data); err != nil {
		return err
	}
	s.paths = append(s.paths, path)
	return nil
}

// Paths returns the files written so far, in write order.
func (s *Set) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of files written.
func (s *Set) Len() int { return len(s.paths) }

// Discard removes every recorded file. Files that are already gone are
// not an error.
func (s *Set) Discard() error {
	var errs []error
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, faults.InputAccess("remove", p, err))
		}
	}
	s.paths = nil
	return errors.Join(errs...)
}
