// Package manifest holds the list of files scheduled for
// relocation.
package manifest

import (
	"path/filepath"
	"slices"
)

// Manifest is an ordered, duplicate-free list of slash-separated
// paths relative to the staging directory.
//
// The zero value is an empty manifest ready to use.
type Manifest struct {
	paths []string
	seen  map[string]struct{}
}

// New returns a manifest containing paths in order.
func New(paths ...string) Manifest {
	var m Manifest
	m.Add(paths...)
	return m
}

// Add appends the paths that aren't in m yet.
func (m *Manifest) Add(paths ...string) {
	for _, p := range paths {
		p = filepath.ToSlash(filepath.Clean(p))
		if _, ok := m.seen[p]; ok {
			continue
		}
		if m.seen == nil {
			m.seen = map[string]struct{}{}
		}
		m.seen[p] = struct{}{}
		m.paths = append(m.paths, p)
	}
}

// Merge appends all paths of other.
func (m *Manifest) Merge(other Manifest) {
	m.Add(other.paths...)
}

func (m Manifest) Contains(path string) bool {
	_, ok := m.seen[filepath.ToSlash(filepath.Clean(path))]
	return ok
}

func (m Manifest) Len() int {
	return len(m.paths)
}

// Paths returns a copy of the paths in order.
func (m Manifest) Paths() []string {
	return slices.Clone(m.paths)
}
