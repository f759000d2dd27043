package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"dario.cat/mergo"
	"github.com/iancoleman/strcase"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/module"
)

//go:embed default.toml
var defaultConfig []byte

// DefaultImport can be listed in imports to pull in the
// built-in GPSTk rules.
const DefaultImport = "@default"

// Names of the groupings that are always present. A [Group]
// can't use them.
const (
	GlobalName     = "global"
	ConstantsName  = "constants"
	ExceptionsName = "exceptions"
)

var ErrInvalidGroup = errors.New("invalid group")

// Exclude lists names that are never re-exported.
type Exclude struct {
	Exact    []string `toml:"exact"`
	Patterns []string `toml:"patterns"`
}

// Group is a named sub-package. A name belongs to it if it
// equals one of Exact or contains one of Patterns.
type Group struct {
	Name     string   `toml:"name"`
	Exact    []string `toml:"exact"`
	Patterns []string `toml:"patterns"`
}

type Config struct {
	Imports []string `toml:"imports"`

	// Python package the bindings are installed as.
	Package string `toml:"package"`
	// Module generated by SWIG that holds the flat namespace.
	ShimModule string `toml:"shim-module"`
	// Files in the working directory whose name contains this
	// are relocated alongside the initializers (e.g. the
	// compiled extension "_gpstk_pylib.so").
	ArtifactInfix string `toml:"artifact-infix"`
	// Name of the exception class all binding exceptions derive from.
	BaseException string `toml:"base-exception"`
	// Names starting with this are private. Empty disables the
	// check. A pointer, so that an explicit empty value survives
	// merging over an import that sets one.
	PrivatePrefix *string `toml:"private-prefix"`
	// Docstring of the top-level initializer.
	Docstring string `toml:"docstring"`

	Exclude Exclude `toml:"exclude"`
	Groups  []Group `toml:"group"`
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

func wrapError(path string, err error) error {
	if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
		return &Error{filePath: path, err: err, str: tErr.String()}
	} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
		return &Error{filePath: path, err: err, str: tErr.String()}
	}
	return &Error{filePath: path, err: err}
}

func decode(data []byte) (*Config, error) {
	c := &Config{}
	err := toml.NewDecoder(bytes.NewReader(data)).
		DisallowUnknownFields().
		Decode(c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in GPSTk rules.
func Default() *Config {
	c, err := decode(defaultConfig)
	if err != nil {
		panic("config: bad default.toml: " + err.Error())
	}
	if err := c.Normalize(); err != nil {
		panic("config: bad default.toml: " + err.Error())
	}
	return c
}

// Load reads a config file and merges its imports into it.
// Fields set in the file win over imported ones; exclusion
// lists are concatenated. A group replaces any imported group
// of the same (snake_case) name, others are appended after the
// file's own groups. Relative import paths are resolved against
// the directory of the importing file.
//
// The returned config is normalized.
func Load(path string) (*Config, error) {
	c, err := load(path, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if err := c.Normalize(); err != nil {
		return nil, &Error{filePath: path, err: err}
	}
	return c, nil
}

func load(path string, visiting map[string]bool) (_ *Config, err error) {
	defer func() {
		if err != nil {
			var cErr *Error
			if !errors.As(err, &cErr) {
				err = wrapError(path, err)
			}
		}
	}()

	if visiting[path] {
		return nil, errors.New("import cycle")
	}
	visiting[path] = true
	defer delete(visiting, path)

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := decode(file)
	if err != nil {
		return nil, err
	}

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		var newC *Config
		if imp == DefaultImport {
			newC, err = decode(defaultConfig)
		} else {
			if !filepath.IsAbs(imp) {
				imp = filepath.Join(filepath.Dir(path), imp)
			}
			newC, err = load(imp, visiting)
		}
		if err != nil {
			return nil, err
		}
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		groups := mergeGroups(c.Groups, newC.Groups)
		c.Groups, newC.Groups = nil, nil
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice, mergo.WithoutDereference); err != nil {
			return nil, err
		}
		c.Groups = groups
	}
	c.Imports = nil

	return c, nil
}

// mergeGroups appends the groups of src whose name isn't
// already taken in dst.
func mergeGroups(dst, src []Group) []Group {
	taken := map[string]bool{}
	for _, g := range dst {
		taken[strcase.ToSnake(g.Name)] = true
	}
	for _, g := range src {
		if name := strcase.ToSnake(g.Name); !taken[name] {
			dst = append(dst, g)
			taken[name] = true
		}
	}
	return dst
}

var pyIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pyKeywords = []string{
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"exec", "finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "print", "raise", "return",
	"try", "while", "with", "yield",
}

// checkPyPackageName reports whether name can be used as a
// Python (sub)package directory on every platform.
func checkPyPackageName(name string) error {
	if !pyIdentRe.MatchString(name) {
		return fmt.Errorf("%v is not a valid Python identifier", strconv.Quote(name))
	}
	if slices.Contains(pyKeywords, name) {
		return fmt.Errorf("%v is a Python keyword", strconv.Quote(name))
	}
	if err := module.CheckFilePath(name + "/__init__.py"); err != nil {
		return err
	}
	return nil
}

// Normalize converts group names to snake_case and checks
// the config for errors.
func (c *Config) Normalize() error {
	if c.Package == "" {
		return errors.New("package is not set")
	}
	if err := checkPyPackageName(c.Package); err != nil {
		return fmt.Errorf("package: %w", err)
	}
	if c.ShimModule == "" {
		return errors.New("shim-module is not set")
	}
	if !pyIdentRe.MatchString(c.ShimModule) {
		return fmt.Errorf("shim-module: %v is not a valid Python identifier", strconv.Quote(c.ShimModule))
	}
	if c.BaseException != "" && !pyIdentRe.MatchString(c.BaseException) {
		return fmt.Errorf("base-exception: %v is not a valid Python identifier", strconv.Quote(c.BaseException))
	}
	if slices.Contains(c.Exclude.Patterns, "") {
		return errors.New("exclude: empty pattern matches every name")
	}

	seen := map[string]bool{}
	for i := range c.Groups {
		g := &c.Groups[i]
		orig := g.Name
		g.Name = strcase.ToSnake(g.Name)
		if g.Name == "" {
			return fmt.Errorf("%w: group %v has no name", ErrInvalidGroup, i+1)
		}
		switch g.Name {
		case GlobalName, ConstantsName, ExceptionsName:
			return fmt.Errorf("%w: %v is reserved", ErrInvalidGroup, strconv.Quote(orig))
		}
		if err := checkPyPackageName(g.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGroup, err)
		}
		if seen[g.Name] {
			return fmt.Errorf("%w: duplicate group %v", ErrInvalidGroup, strconv.Quote(g.Name))
		}
		seen[g.Name] = true
		if slices.Contains(g.Patterns, "") {
			return fmt.Errorf("%w: %v: empty pattern matches every name", ErrInvalidGroup, strconv.Quote(g.Name))
		}
	}
	return nil
}

// Private returns the private prefix, or "" if none is set.
func (c *Config) Private() string {
	if c.PrivatePrefix == nil {
		return ""
	}
	return *c.PrivatePrefix
}

// GroupNames returns the names of all groupings that
// can receive an initializer: named groups in config
// order, then constants and exceptions.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.Groups)+2)
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	return append(names, ConstantsName, ExceptionsName)
}
