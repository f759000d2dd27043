// Package emit writes the Python initializer files that
// re-export classified binding names.
package emit

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/gpstk/bindfinish/classify"
	"github.com/gpstk/bindfinish/manifest"
	"github.com/gpstk/bindfinish/textutils"
)

// InitFile is the name of a Python package initializer.
const InitFile = "__init__.py"

type Options struct {
	// Directory the initializers are written to. Groupings
	// get a sub-directory each.
	Root string
	// Module the names are imported from.
	ShimModule string
	// Docstring of the top-level initializer. May be empty.
	Docstring string
	// Named in the AUTO-GENERATED marker of the top-level initializer.
	Generator string
}

// Emitter appends re-export lines to initializer files. Each
// write opens and closes its file; grouping files are created
// on first use and only ever appended to.
type Emitter struct {
	opts Options

	topLevel string
	seen     map[classify.Grouping]bool
	counts   map[classify.Grouping]int
	manifest manifest.Manifest
	finished bool
}

// New creates the top-level initializer, replacing any
// existing one, and writes its header.
func New(opts Options) (*Emitter, error) {
	if opts.ShimModule == "" {
		return nil, errors.New("emit: no shim module")
	}
	e := &Emitter{
		opts:     opts,
		topLevel: filepath.Join(opts.Root, InitFile),
		seen:     map[classify.Grouping]bool{},
		counts:   map[classify.Grouping]int{},
	}
	if opts.Root != "" {
		if err := os.MkdirAll(opts.Root, os.ModePerm); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
	}

	header := textutils.PyDocstring(opts.Docstring)
	if opts.Generator != "" {
		header += "### This file is AUTO-GENERATED by " + opts.Generator + ". ###\n\n"
	}
	if err := os.WriteFile(e.topLevel, []byte(header), 0666); err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	e.manifest.Add(InitFile)
	return e, nil
}

// RelPath returns the path of the initializer of g, relative
// to the root.
func RelPath(g classify.Grouping) string {
	if g == classify.Global {
		return InitFile
	}
	return path.Join(string(g), InitFile)
}

func appendLine(filename, line string) error {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Emit appends a re-export of name to the initializer of g.
func (e *Emitter) Emit(name string, g classify.Grouping) error {
	if e.finished {
		return errors.New("emit: already finished")
	}
	var filename, line string
	if g == classify.Global {
		filename = e.topLevel
		line = "from " + e.opts.ShimModule + " import " + name
	} else {
		dir := filepath.Join(e.opts.Root, string(g))
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("emit %v: %w", name, err)
		}
		filename = filepath.Join(dir, InitFile)
		line = "from .." + e.opts.ShimModule + " import " + name
	}
	if err := appendLine(filename, line); err != nil {
		return fmt.Errorf("emit %v: %w", name, err)
	}
	if !e.seen[g] {
		e.seen[g] = true
		e.manifest.Add(RelPath(g))
	}
	e.counts[g]++
	return nil
}

// Finish imports the sub-packages from the top-level
// initializer: every group in groups that received a name, in
// the given order, followed by constants and exceptions, which
// are always imported. It returns the initializers written.
func (e *Emitter) Finish(groups []classify.Grouping) (manifest.Manifest, error) {
	if e.finished {
		return manifest.Manifest{}, errors.New("emit: already finished")
	}
	e.finished = true
	for _, g := range groups {
		if !g.IsNamed() || !e.seen[g] {
			continue
		}
		if err := appendLine(e.topLevel, "import "+string(g)); err != nil {
			return manifest.Manifest{}, fmt.Errorf("emit: %w", err)
		}
	}
	for _, g := range []classify.Grouping{classify.Constants, classify.Exceptions} {
		if err := appendLine(e.topLevel, "import "+string(g)); err != nil {
			return manifest.Manifest{}, fmt.Errorf("emit: %w", err)
		}
	}
	var m manifest.Manifest
	m.Merge(e.manifest)
	return m, nil
}

// Count returns the number of names written to g.
func (e *Emitter) Count(g classify.Grouping) int {
	return e.counts[g]
}
