// Package relocate moves the generated package files into
// their install location.
package relocate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gpstk/bindfinish/emit"
	"github.com/gpstk/bindfinish/manifest"
)

// Prints the default library install path of the interpreter.
const libPathScript = `import sysconfig
print(sysconfig.get_paths()['purelib'])
`

// InterpreterLibPath asks the Python interpreter for its default
// library install path.
func InterpreterLibPath(ctx context.Context, interpreter string) (string, error) {
	if interpreter == "" {
		interpreter = "python"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interpreter, "-c", libPathScript)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w:\n%v", err, msg)
		}
		return "", fmt.Errorf("query library path: %w", err)
	}
	p := strings.TrimSpace(stdout.String())
	if p == "" {
		return "", errors.New("query library path: interpreter printed nothing")
	}
	return p, nil
}

// Destination returns the directory the package is installed
// to, always ending in a path separator. With an explicit root
// it is root/pkg. Otherwise it is libPath itself.
func Destination(root, pkg, libPath string) string {
	var dest string
	if root != "" {
		dest = filepath.Join(root, pkg)
	} else {
		dest = libPath
	}
	if !strings.HasSuffix(dest, "/") && !strings.HasSuffix(dest, `\`) {
		dest += string(os.PathSeparator)
	}
	return dest
}

// Cleanup removes initializers left by an earlier run from
// each of dirs: the top-level one and the one of each grouping.
// Files that can't be removed are ignored. It returns the
// files actually removed.
func Cleanup(dirs []string, groups []string) []string {
	rels := []string{emit.InitFile}
	for _, g := range groups {
		rels = append(rels, filepath.Join(g, emit.InitFile))
	}
	var removed []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, rel := range rels {
			p := filepath.Join(dir, rel)
			if err := os.Remove(p); err == nil {
				removed = append(removed, p)
			}
		}
	}
	return removed
}

// Discover lists the regular files directly inside dir whose
// name contains infix, in lexical order. Symlinks to regular
// files count as regular files.
func Discover(dir, infix string) ([]string, error) {
	if infix == "" {
		return nil, nil
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover artifacts: %w", err)
	}
	var res []string
	for _, ent := range entries {
		if !strings.Contains(ent.Name(), infix) {
			continue
		}
		if ent.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, ent.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		} else if !ent.Type().IsRegular() {
			continue
		}
		res = append(res, ent.Name())
	}
	return res, nil
}

// Report lists what [Move] did, as paths relative to the
// staging directory.
type Report struct {
	Moved   []string
	Skipped []string
}

// Move moves every file in m from staging to dest, keeping its
// relative path and replacing existing files. The compiled
// companion of each file (same name plus "c", e.g. "x.pyc") is
// moved too if present. Missing files are skipped.
//
// Move is not transactional: after an error, some files may
// already be at dest.
func Move(m manifest.Manifest, staging, dest string) (Report, error) {
	var rep Report
	if err := os.MkdirAll(dest, os.ModePerm); err != nil {
		return rep, fmt.Errorf("relocate: %w", err)
	}
	move := func(rel string) (bool, error) {
		src := filepath.Join(staging, filepath.FromSlash(rel))
		dst := filepath.Join(dest, filepath.FromSlash(rel))
		moved, err := moveFile(src, dst)
		if err != nil {
			return false, fmt.Errorf("relocate %v: %w", rel, err)
		}
		return moved, nil
	}
	for _, rel := range m.Paths() {
		moved, err := move(rel)
		if err != nil {
			return rep, err
		}
		if moved {
			rep.Moved = append(rep.Moved, rel)
		} else {
			rep.Skipped = append(rep.Skipped, rel)
		}
		if moved, err := move(rel + "c"); err != nil {
			return rep, err
		} else if moved {
			rep.Moved = append(rep.Moved, rel+"c")
		}
	}
	return rep, nil
}

func moveFile(src, dst string) (bool, error) {
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	if same, err := samePath(src, dst); err != nil {
		return false, err
	} else if same {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return false, err
	}
	if err := os.Rename(src, dst); err != nil {
		// Probably crossing file systems.
		if cErr := copyFile(src, dst, info.Mode().Perm()); cErr != nil {
			return false, errors.Join(err, cErr)
		}
		if err := os.Remove(src); err != nil {
			return false, err
		}
	}
	return true, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// copyFile copies src to dst. A partially written dst is removed.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
