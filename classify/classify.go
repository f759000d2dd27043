// Package classify decides which sub-packages an exported
// binding name is re-exported from.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gpstk/bindfinish/config"
	"github.com/gpstk/bindfinish/namespace"
)

var ErrUnknownKind = errors.New("unknown entity kind")

// A Grouping is a destination of re-exported names: the
// top-level package, a named sub-package, or one of the
// constants and exceptions sub-packages.
type Grouping string

const (
	Global     Grouping = config.GlobalName
	Constants  Grouping = config.ConstantsName
	Exceptions Grouping = config.ExceptionsName
)

// IsNamed reports whether g is a configured group, as opposed
// to one of the built-in groupings.
func (g Grouping) IsNamed() bool {
	return g != Global && g != Constants && g != Exceptions
}

// Marks names whose class is an exception regardless of
// its base classes.
const exceptionInfix = "Exception"

// Rules is the compiled rule configuration. It holds no
// state between calls, so Classify is a pure function of its
// arguments.
type Rules struct {
	excludeExact    map[string]struct{}
	excludePatterns []string
	privatePrefix   string
	groups          []group
}

type group struct {
	name     Grouping
	exact    map[string]struct{}
	patterns []string
}

func NewRules(c *config.Config) *Rules {
	r := &Rules{
		excludeExact:    toSet(c.Exclude.Exact),
		excludePatterns: c.Exclude.Patterns,
		privatePrefix:   c.Private(),
	}
	for _, g := range c.Groups {
		r.groups = append(r.groups, group{
			name:     Grouping(g.Name),
			exact:    toSet(g.Exact),
			patterns: g.Patterns,
		})
	}
	return r
}

func toSet(ss []string) map[string]struct{} {
	res := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		res[s] = struct{}{}
	}
	return res
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Excluded reports whether name must never be re-exported.
func (r *Rules) Excluded(name string) bool {
	if containsAny(name, r.excludePatterns) {
		return true
	}
	if _, ok := r.excludeExact[name]; ok {
		return true
	}
	return r.privatePrefix != "" && strings.HasPrefix(name, r.privatePrefix)
}

// Groups returns the names of the configured groups in order.
func (r *Rules) Groups() []Grouping {
	res := make([]Grouping, len(r.groups))
	for i, g := range r.groups {
		res[i] = g.name
	}
	return res
}

// Classify returns the groupings n is re-exported from, in
// the order: named groups (config order), constants,
// exceptions, global. An empty result means n is excluded.
//
// Every matching rule applies. A name only lands in Global
// if no other grouping took it.
func (r *Rules) Classify(n namespace.Name) ([]Grouping, error) {
	switch n.Entity.Kind {
	case namespace.KindValue, namespace.KindType, namespace.KindCallable:
	default:
		return nil, fmt.Errorf("classify %v: %w: %v", n.Name, ErrUnknownKind, n.Entity.Kind)
	}

	if r.Excluded(n.Name) {
		return nil, nil
	}

	var res []Grouping
	useGlobal := true

	for _, g := range r.groups {
		_, exact := g.exact[n.Name]
		if exact || containsAny(n.Name, g.patterns) {
			res = append(res, g.name)
			useGlobal = false
		}
	}

	if n.Entity.Kind == namespace.KindValue {
		res = append(res, Constants)
		useGlobal = false
	}

	if (n.Entity.Kind == namespace.KindType && n.Entity.ExceptionSubtype) ||
		strings.Contains(n.Name, exceptionInfix) {
		res = append(res, Exceptions)
		useGlobal = false
	}

	if useGlobal {
		res = append(res, Global)
	}
	return res, nil
}
