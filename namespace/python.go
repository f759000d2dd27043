package namespace

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Lists the namespace of the module given as first argument, one
// JSON object per line. The second argument names the base
// exception class, if any.
const listScript = `import importlib, inspect, json, sys
sys.path.insert(0, '.')
mod = importlib.import_module(sys.argv[1])
base = getattr(mod, sys.argv[2], None) if sys.argv[2] else None
if base is not None and not inspect.isclass(base):
    base = None
for name in dir(mod):
    obj = getattr(mod, name)
    if inspect.isclass(obj):
        kind = 'type'
    elif callable(obj):
        kind = 'callable'
    else:
        kind = 'value'
    exc = base is not None and inspect.isclass(obj) and issubclass(obj, base)
    sys.stdout.write(json.dumps({'name': name, 'kind': kind, 'exception': bool(exc)}) + '\n')
`

// Python loads the namespace by importing the binding module
// with a Python interpreter. Names are in dir() order, which
// is lexical.
type Python struct {
	// Interpreter executable. Defaults to "python".
	Interpreter string
	// Directory the module is imported from. Defaults to the
	// current working directory.
	Dir string
	// Module to import (e.g. "gpstk_pylib").
	Module string
	// Name of the base exception class inside Module. May be empty.
	BaseException string
	// Receives the interpreter's stderr. Discarded if nil,
	// but included in the returned error on failure.
	Stderr io.Writer
}

type pyRecord struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Exception bool   `json:"exception"`
}

func (p Python) Load(ctx context.Context) (_ []Name, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("load namespace of %v: %w", p.Module, err)
		}
	}()

	if p.Module == "" {
		return nil, errors.New("no module given")
	}
	interp := p.Interpreter
	if interp == "" {
		interp = "python"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interp, "-c", listScript, p.Module, p.BaseException)
	cmd.Dir = p.Dir
	cmd.Stdout = &stdout
	if p.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, p.Stderr)
	} else {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w:\n%v", err, msg)
		}
		return nil, err
	}

	return parseRecords(&stdout)
}

func parseRecords(r io.Reader) ([]Name, error) {
	var names []Name
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec pyRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %v: %w", lineNum, err)
		}
		kind, ok := KindFromString(rec.Kind)
		if !ok {
			return nil, fmt.Errorf("line %v: %v: unknown kind %q", lineNum, rec.Name, rec.Kind)
		}
		names = append(names, Name{
			Name: rec.Name,
			Entity: Entity{
				Kind:             kind,
				ExceptionSubtype: rec.Exception,
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	return names, nil
}
