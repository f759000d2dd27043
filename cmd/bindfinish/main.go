// Command bindfinish turns the flat namespace of the SWIG
// generated GPSTk bindings into a Python package and installs it.
//
// Run it from the build directory, next to gpstk_pylib.py and
// the compiled _gpstk_pylib library:
//
//	bindfinish
//		Installs to the default library path of the interpreter.
//	bindfinish ~/.local/lib/python2.7/site-packages
//		Installs to ~/.local/lib/python2.7/site-packages/gpstk/.
//	bindfinish --dump-namespace > namespace.yaml
//		Writes the kind-tagged listing of the namespace, which
//		can be passed back with --namespace. Nothing is installed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/gpstk/bindfinish/config"
	"github.com/gpstk/bindfinish/finish"
	"github.com/gpstk/bindfinish/logger"
	"github.com/gpstk/bindfinish/namespace"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			if cErr := (*config.Error)(nil); errors.As(err, &cErr) {
				return nil, cli.Exit(cErr.String(), 1)
			}
			return nil, err
		}
		return cfg, nil
	}
	return config.Default(), nil
}

func newLogger(c *cli.Context) *logger.Logger {
	l := &logger.Logger{
		Writer:   c.App.ErrWriter,
		Prefix:   c.App.Name,
		MinLevel: logger.WARN,
	}
	if c.Bool("verbose") {
		l.MinLevel = logger.DEBUG
	}
	return l
}

func newLoader(c *cli.Context, cfg *config.Config) namespace.Loader {
	var l namespace.Loader
	if path := c.String("namespace"); path != "" {
		l = namespace.File{Path: path}
	} else {
		l = namespace.Python{
			Interpreter:   c.String("python"),
			Dir:           c.String("workdir"),
			Module:        cfg.ShimModule,
			BaseException: cfg.BaseException,
			Stderr:        c.App.ErrWriter,
		}
	}
	if c.Bool("sort") {
		l = namespace.Sorted(l)
	}
	return l
}

func runFinish(c *cli.Context) error {
	if c.Bool("dump-namespace") {
		if c.NArg() > 0 {
			return cli.Exit("--dump-namespace takes no destination root", 1)
		}
		return dumpNamespace(c)
	}
	if c.NArg() > 1 {
		return cli.Exit("expected at most one destination root, got "+strconv.Itoa(c.NArg())+" arguments", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out := c.App.Writer
	res, err := finish.Run(c.Context, finish.Options{
		Config:      cfg,
		Loader:      newLoader(c, cfg),
		WorkDir:     c.String("workdir"),
		DestRoot:    c.Args().First(),
		Interpreter: c.String("python"),
		OnDestination: func(dest string) {
			fmt.Fprintln(out, "Placing", cfg.Package, "build files in", dest)
		},
		Logger: newLogger(c),
	})
	if err != nil {
		return err
	}
	if !c.Bool("quiet") {
		printSummary(out, res)
	}
	return nil
}

func printSummary(w io.Writer, res *finish.Result) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "==Package stats==\n")
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Grouping", "Names"})
	written := 0
	for _, g := range res.Groupings {
		tbl.Append([]string{string(g), strconv.Itoa(res.Counts[g])})
		written += res.Counts[g]
	}
	tbl.Append([]string{"(excluded)", strconv.Itoa(res.Excluded)})
	tbl.Append([]string{"==TOTAL==", fmt.Sprintf("%v/%v", res.Total-res.Excluded, res.Total)})
	tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tbl.SetCenterSeparator("|")
	tbl.Render()
	fmt.Fprintf(w, "Wrote %v re-exports, moved %v files, skipped %v missing files.\n",
		written, len(res.Relocated.Moved), len(res.Relocated.Skipped))
}

func dumpNamespace(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	names, err := newLoader(c, cfg).Load(c.Context)
	if err != nil {
		return err
	}
	b, err := namespace.WriteListing(names)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(b)
	return err
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bindfinish",
		Usage:     "generate the GPSTk Python package from the SWIG bindings and install it",
		ArgsUsage: "[destination root]",
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are printed by main.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "rule file (TOML); the built-in GPSTk rules are used if unset",
			},
			&cli.StringFlag{
				Name:  "python",
				Value: "python",
				Usage: "Python interpreter used to import the bindings",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "read the namespace from a YAML listing instead of importing the bindings",
			},
			&cli.BoolFlag{
				Name:  "dump-namespace",
				Usage: "print the namespace listing of the bindings as YAML and exit",
			},
			&cli.StringFlag{
				Name:  "workdir",
				Value: ".",
				Usage: "build directory containing the bindings",
			},
			&cli.BoolFlag{
				Name:  "sort",
				Usage: "emit names in lexical order",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "don't print the summary",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every excluded name and skipped file",
			},
		},
		Action: runFinish,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
