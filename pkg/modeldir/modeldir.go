// Package modeldir encapsulates the on-disk layout of a persisted policy
// directory. It provides a Dir value object with accessors for per-policy
// metadata files.
package modeldir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const metaSuffix = ".meta.yaml"

// Dir is a value object that resolves paths within a policy directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create it.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the directory.
func (d Dir) Root() string { return d.root }

// MetaPath returns the path to the metadata file of the named policy.
func (d Dir) MetaPath(policyName string) string {
	return filepath.Join(d.root, policyName+metaSuffix)
}

// Policies returns the sorted names of all policies with a metadata file in
// the directory. Returns nil if the directory does not exist.
func (d Dir) Policies() []string {
	matches, err := filepath.Glob(filepath.Join(d.root, "*"+metaSuffix))
	if err != nil || len(matches) == 0 {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), metaSuffix))
	}

	sort.Strings(names)

	return names
}

// Exists reports whether the root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}

// EnsureStructure creates the root directory if it is missing. It is safe to
// call multiple times.
func (d Dir) EnsureStructure() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("modeldir: create dir: %w", err)
	}

	return nil
}
