// Package namespace loads the flat namespace exported by a
// binding module as a list of pre-tagged names.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var ErrDuplicateName = errors.New("duplicate name")

// Kind is what a name is bound to at runtime.
type Kind int

const (
	// Plain value (number, string, object instance etc.).
	KindValue Kind = iota
	// Class or type.
	KindType
	// Function or any other callable that isn't a class.
	KindCallable
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindType:
		return "type"
	case KindCallable:
		return "callable"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func KindFromString(s string) (Kind, bool) {
	switch {
	case strings.EqualFold(s, "value"):
		return KindValue, true
	case strings.EqualFold(s, "type"), strings.EqualFold(s, "class"):
		return KindType, true
	case strings.EqualFold(s, "callable"), strings.EqualFold(s, "function"):
		return KindCallable, true
	default:
		return -1, false
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := KindFromString(string(text))
	if !ok {
		return fmt.Errorf("unknown kind %v", strconv.Quote(string(text)))
	}
	*k = kind
	return nil
}

// Entity is the runtime object a name is bound to.
type Entity struct {
	Kind Kind
	// True if the entity is a class deriving (directly or
	// transitively) from the base exception type.
	ExceptionSubtype bool
}

// Name is a single exported name.
type Name struct {
	Name   string
	Entity Entity
}

// A Loader enumerates the names exported by a binding module.
// The order of the returned names is the order they are emitted in.
type Loader interface {
	Load(ctx context.Context) ([]Name, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context) ([]Name, error)

func (f LoaderFunc) Load(ctx context.Context) ([]Name, error) {
	return f(ctx)
}

// Sorted wraps l so that names are returned in lexical order.
func Sorted(l Loader) Loader {
	return LoaderFunc(func(ctx context.Context) ([]Name, error) {
		names, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(names, func(a, b Name) int {
			return strings.Compare(a.Name, b.Name)
		})
		return names, nil
	})
}

func checkNames(names []Name) error {
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if n.Name == "" {
			return fmt.Errorf("name %v is empty", i+1)
		}
		if _, ok := seen[n.Name]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateName, n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	return nil
}
