// Package finish runs the whole post-build step: classify the
// binding namespace, write the initializers and move everything
// into the install location.
package finish

import (
	"context"
	"errors"
	"fmt"

	"github.com/gpstk/bindfinish/classify"
	"github.com/gpstk/bindfinish/config"
	"github.com/gpstk/bindfinish/emit"
	"github.com/gpstk/bindfinish/logger"
	"github.com/gpstk/bindfinish/manifest"
	"github.com/gpstk/bindfinish/namespace"
	"github.com/gpstk/bindfinish/relocate"
)

// Generator is the name written into the generated initializers.
const Generator = "bindfinish"

type Options struct {
	Config *config.Config
	// Source of the exported names. Defaults to importing
	// Config.ShimModule with Interpreter from WorkDir.
	Loader namespace.Loader
	// Build directory. Holds the shim module and compiled
	// artifacts, and is where initializers are staged.
	// Defaults to ".".
	WorkDir string
	// Install root. The package is placed in DestRoot/<package>.
	// If empty, the interpreter's library path is used as is.
	DestRoot string
	// Python interpreter. Defaults to "python".
	Interpreter string
	// Looks up the interpreter's library path. Defaults to
	// [relocate.InterpreterLibPath].
	LibPath func(ctx context.Context, interpreter string) (string, error)
	// Called with the destination before anything is written.
	OnDestination func(dest string)
	Logger        *logger.Logger
}

type Result struct {
	Destination string
	// Names in the namespace.
	Total int
	// Names left out by the exclusion rules.
	Excluded int
	// Names written per grouping. A name can count towards
	// several groupings.
	Counts map[classify.Grouping]int
	// Groupings in the order they appear in the package.
	Groupings []classify.Grouping
	Manifest  manifest.Manifest
	Relocated relocate.Report
	// Stale initializers removed before generating.
	CleanedUp []string
}

func Run(ctx context.Context, opts Options) (_ *Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("finish: %w", err)
		}
	}()

	c := opts.Config
	if c == nil {
		return nil, errors.New("no config")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	loader := opts.Loader
	if loader == nil {
		loader = namespace.Python{
			Interpreter:   opts.Interpreter,
			Dir:           workDir,
			Module:        c.ShimModule,
			BaseException: c.BaseException,
		}
	}

	var libPath string
	if opts.DestRoot == "" {
		lookup := opts.LibPath
		if lookup == nil {
			lookup = relocate.InterpreterLibPath
		}
		libPath, err = lookup(ctx, opts.Interpreter)
		if err != nil {
			return nil, err
		}
	}
	res := &Result{
		Destination: relocate.Destination(opts.DestRoot, c.Package, libPath),
		Counts:      map[classify.Grouping]int{},
	}

	res.CleanedUp = relocate.Cleanup([]string{res.Destination, workDir}, c.GroupNames())
	for _, p := range res.CleanedUp {
		log.Debugf("removed stale %v", p)
	}

	if opts.OnDestination != nil {
		opts.OnDestination(res.Destination)
	}

	names, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	res.Total = len(names)
	log.Infof("loaded %v names from %v", len(names), c.ShimModule)

	em, err := emit.New(emit.Options{
		Root:       workDir,
		ShimModule: c.ShimModule,
		Docstring:  c.Docstring,
		Generator:  Generator,
	})
	if err != nil {
		return nil, err
	}
	rules := classify.NewRules(c)
	for _, n := range names {
		groupings, err := rules.Classify(n)
		if err != nil {
			return nil, err
		}
		if len(groupings) == 0 {
			res.Excluded++
			log.Debugf("excluded %v", n.Name)
			continue
		}
		for _, g := range groupings {
			if err := em.Emit(n.Name, g); err != nil {
				return nil, err
			}
		}
	}
	emitted, err := em.Finish(rules.Groups())
	if err != nil {
		return nil, err
	}

	res.Groupings = append([]classify.Grouping{classify.Global}, rules.Groups()...)
	res.Groupings = append(res.Groupings, classify.Constants, classify.Exceptions)
	for _, g := range res.Groupings {
		res.Counts[g] = em.Count(g)
	}

	res.Manifest = manifest.New(c.ShimModule + ".py")
	res.Manifest.Merge(emitted)
	artifacts, err := relocate.Discover(workDir, c.ArtifactInfix)
	if err != nil {
		return nil, err
	}
	res.Manifest.Add(artifacts...)

	res.Relocated, err = relocate.Move(res.Manifest, workDir, res.Destination)
	if err != nil {
		return nil, err
	}
	log.Infof("moved %v files to %v", len(res.Relocated.Moved), res.Destination)
	for _, p := range res.Relocated.Skipped {
		log.Debugf("skipped missing %v", p)
	}
	return res, nil
}
