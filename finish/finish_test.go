package finish_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpstk/bindfinish/classify"
	"github.com/gpstk/bindfinish/config"
	"github.com/gpstk/bindfinish/finish"
	"github.com/gpstk/bindfinish/logger"
	"github.com/gpstk/bindfinish/namespace"
)

const testNamespace = `names:
  - {name: CommonTime, kind: type}
  - {name: Exception, kind: type, exception: true}
  - {name: InvalidRequestException, kind: type, exception: true}
  - {name: PI, kind: value}
  - {name: Position, kind: type}
  - {name: RinexObsStream, kind: type}
  - {name: _gpstk_pylib, kind: value}
  - {name: cvar, kind: value}
  - {name: seqToVector, kind: callable}
  - {name: vector_double, kind: type}
  - {name: vector_double_swigregister, kind: callable}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gpstk_pylib.py"), "# shim\n")
	writeFile(t, filepath.Join(dir, "gpstk_pylib.pyc"), "bytecode")
	writeFile(t, filepath.Join(dir, "_gpstk_pylib.so"), "ELF")
	writeFile(t, filepath.Join(dir, "namespace.yaml"), testNamespace)
	return dir
}

func TestRun(t *testing.T) {
	require := require.New(t)
	workDir := setupWorkDir(t)
	root := t.TempDir()

	// Left over from an earlier install.
	writeFile(t, filepath.Join(root, "gpstk", "cpp", "__init__.py"), "from ..gpstk_pylib import stale\n")
	writeFile(t, filepath.Join(root, "gpstk", "constants", "__init__.py"), "from ..gpstk_pylib import stale\n")

	var progress string
	var logBuf bytes.Buffer
	res, err := finish.Run(context.Background(), finish.Options{
		Config:        config.Default(),
		Loader:        namespace.File{Path: filepath.Join(workDir, "namespace.yaml")},
		WorkDir:       workDir,
		DestRoot:      root,
		OnDestination: func(dest string) { progress = dest },
		LibPath: func(context.Context, string) (string, error) {
			return "", errors.New("must not be called")
		},
		Logger: &logger.Logger{Writer: &logBuf, MinLevel: logger.DEBUG},
	})
	require.NoError(err)

	dest := filepath.Join(root, "gpstk") + string(os.PathSeparator)
	require.Equal(dest, res.Destination)
	require.Equal(dest, progress)
	require.Equal(11, res.Total)
	require.Equal(4, res.Excluded)
	require.Equal([]classify.Grouping{classify.Global, "cpp", classify.Constants, classify.Exceptions}, res.Groupings)
	require.Equal(map[classify.Grouping]int{
		classify.Global:     2,
		"cpp":               2,
		classify.Constants:  1,
		classify.Exceptions: 2,
	}, res.Counts)
	require.Len(res.CleanedUp, 2)

	require.Equal([]string{
		"gpstk_pylib.py",
		"__init__.py",
		"exceptions/__init__.py",
		"constants/__init__.py",
		"cpp/__init__.py",
		"_gpstk_pylib.so",
	}, res.Manifest.Paths())
	require.Empty(res.Relocated.Skipped)
	require.Contains(res.Relocated.Moved, "gpstk_pylib.pyc")

	require.Equal(`"""The GPS Toolkit - an open source library to the satellite navigation community.
"""
### This file is AUTO-GENERATED by bindfinish. ###

from gpstk_pylib import CommonTime
from gpstk_pylib import Position
import cpp
import constants
import exceptions
`, readFile(t, filepath.Join(dest, "__init__.py")))
	require.Equal(`from ..gpstk_pylib import seqToVector
from ..gpstk_pylib import vector_double
`, readFile(t, filepath.Join(dest, "cpp", "__init__.py")))
	require.Equal("from ..gpstk_pylib import PI\n", readFile(t, filepath.Join(dest, "constants", "__init__.py")))
	require.Equal(`from ..gpstk_pylib import Exception
from ..gpstk_pylib import InvalidRequestException
`, readFile(t, filepath.Join(dest, "exceptions", "__init__.py")))
	require.Equal("ELF", readFile(t, filepath.Join(dest, "_gpstk_pylib.so")))
	require.Equal("# shim\n", readFile(t, filepath.Join(dest, "gpstk_pylib.py")))

	for _, f := range []string{"gpstk_pylib.py", "_gpstk_pylib.so", "__init__.py"} {
		require.NoFileExists(filepath.Join(workDir, f))
	}

	// Excluded names appear nowhere.
	err = filepath.WalkDir(dest, func(path string, d os.DirEntry, err error) error {
		require.NoError(err)
		if d.Name() != "__init__.py" {
			return nil
		}
		content := readFile(t, path)
		for _, excluded := range []string{"cvar", "RinexObsStream", "_gpstk_pylib", "swigregister"} {
			require.NotContains(content, " "+excluded+"\n", path)
			require.NotContains(content, "_swigregister", path)
		}
		return nil
	})
	require.NoError(err)

	require.Contains(logBuf.String(), "loaded 11 names from gpstk_pylib")
	require.Contains(logBuf.String(), "DEBUG: excluded cvar")
}

func TestRunDefaultLibPath(t *testing.T) {
	require := require.New(t)
	workDir := setupWorkDir(t)
	lib := filepath.Join(t.TempDir(), "dist-packages")

	var gotInterp string
	res, err := finish.Run(context.Background(), finish.Options{
		Config:      config.Default(),
		Loader:      namespace.File{Path: filepath.Join(workDir, "namespace.yaml")},
		WorkDir:     workDir,
		Interpreter: "python2.7",
		LibPath: func(_ context.Context, interp string) (string, error) {
			gotInterp = interp
			return lib, nil
		},
	})
	require.NoError(err)
	require.Equal("python2.7", gotInterp)
	require.Equal(lib+string(os.PathSeparator), res.Destination)
	require.FileExists(filepath.Join(lib, "__init__.py"))
	require.FileExists(filepath.Join(lib, "cpp", "__init__.py"))
}

func TestRunEmptyGroupsStillImported(t *testing.T) {
	require := require.New(t)
	workDir := t.TempDir()
	root := t.TempDir()

	c := config.Default()
	c.Groups = append(c.Groups, config.Group{Name: "time", Patterns: []string{"Time"}})

	res, err := finish.Run(context.Background(), finish.Options{
		Config: c,
		Loader: namespace.LoaderFunc(func(context.Context) ([]namespace.Name, error) {
			return []namespace.Name{
				{Name: "Position", Entity: namespace.Entity{Kind: namespace.KindType}},
			}, nil
		}),
		WorkDir:  workDir,
		DestRoot: root,
	})
	require.NoError(err)
	require.Equal([]string{"gpstk_pylib.py"}, res.Relocated.Skipped)

	top := readFile(t, filepath.Join(res.Destination, "__init__.py"))
	require.Equal(1, strings.Count(top, "import constants\n"))
	require.Equal(1, strings.Count(top, "import exceptions\n"))
	require.NotContains(top, "import cpp")
	require.NotContains(top, "import time")
}

func TestRunErrors(t *testing.T) {
	loadErr := errors.New("no module named gpstk_pylib")

	_, err := finish.Run(context.Background(), finish.Options{
		Config:   config.Default(),
		Loader:   namespace.LoaderFunc(func(context.Context) ([]namespace.Name, error) { return nil, loadErr }),
		WorkDir:  t.TempDir(),
		DestRoot: t.TempDir(),
	})
	require.ErrorIs(t, err, loadErr)

	_, err = finish.Run(context.Background(), finish.Options{
		Config: config.Default(),
		Loader: namespace.LoaderFunc(func(context.Context) ([]namespace.Name, error) {
			return []namespace.Name{{Name: "x", Entity: namespace.Entity{Kind: namespace.Kind(42)}}}, nil
		}),
		WorkDir:  t.TempDir(),
		DestRoot: t.TempDir(),
	})
	require.ErrorIs(t, err, classify.ErrUnknownKind)

	_, err = finish.Run(context.Background(), finish.Options{})
	require.Error(t, err)
}
