package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"linecheck/internal/config"
	"linecheck/internal/diag"
	"linecheck/internal/diagfmt"
	"linecheck/internal/source"
	"linecheck/internal/suite"
	"linecheck/internal/ui"
	"linecheck/internal/verify"
)

const noManifestMessage = "no linecheck.toml found\nrun \"linecheck init\" to create one"

type suiteFlags struct {
	jobs      int
	ui        string
	cache     bool
	filter    []string
	watch     bool
	format    string
	pathMode  string
	canonical bool
}

func newSuiteCmd() *cobra.Command {
	var f suiteFlags
	cmd := &cobra.Command{
		Use:   "suite [dir]",
		Short: "Run every fixture listed in the manifest",
		Long: `Load linecheck.toml (or linecheck.yaml) from dir or one of its parents and
verify every fixture it lists or discovers. Exits 1 when any fixture fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runSuite(cmd, dir, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "max parallel fixtures (0 = GOMAXPROCS)")
	fl.StringVar(&f.ui, "ui", "auto", "progress UI (auto|on|off)")
	fl.BoolVar(&f.cache, "cache", true, "reuse verdicts of unchanged fixtures")
	fl.StringSliceVar(&f.filter, "filter", nil, "comma-separated fixture names or globs")
	fl.BoolVar(&f.watch, "watch", false, "rerun when files under the manifest root change")
	fl.StringVar(&f.format, "format", "pretty", "output format (pretty|short|json|sarif)")
	fl.StringVar(&f.pathMode, "path-mode", "relative", "path display (auto|absolute|relative|basename)")
	fl.BoolVar(&f.canonical, "canonical", false, "emit RFC 8785 canonical JSON")
	return cmd
}

func runSuite(cmd *cobra.Command, dir string, f suiteFlags) error {
	format, err := readFormat(f.format)
	if err != nil {
		return err
	}
	mode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}
	pathMode, ok := diagfmt.ParsePathMode(f.pathMode)
	if !ok {
		return fmt.Errorf("invalid --path-mode value %q", f.pathMode)
	}

	m, found, err := config.LoadFrom(dir)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(noManifestMessage)
	}

	cfg := suite.RunnerConfig{Jobs: f.jobs, Filter: f.filter}
	if f.cache {
		cacheDir, err := suite.ProjectCacheDir(appName, m.Root)
		if err != nil {
			return fmt.Errorf("failed to locate cache: %w", err)
		}
		if cfg.Cache, err = suite.OpenCache(cacheDir); err != nil {
			return err
		}
	}

	ro := renderOpts{
		format:    format,
		pathMode:  pathMode,
		canonical: f.canonical,
		args:      append([]string{appName, cmd.Name()}, dir),
	}
	useTUI := format == formatPretty && !quiet(cmd) && shouldUseTUI(mode, cmd.OutOrStdout())

	runOnce := func(ctx context.Context) (suite.Summary, error) {
		// манифест перечитываем: при --watch он мог измениться
		cur, err := config.Load(m.Path)
		if err != nil {
			return suite.Summary{}, err
		}
		reg, err := suite.FromManifest(cur)
		if err != nil {
			return suite.Summary{}, err
		}
		var sum suite.Summary
		if useTUI {
			sum, err = ui.RunSuite(ctx, cmd.OutOrStdout(), "linecheck suite", reg, cfg)
		} else {
			runCfg := cfg
			if format == formatPretty && !quiet(cmd) {
				runCfg.Sink = textSink(cmd.OutOrStdout())
			}
			sum, err = suite.NewRunner(reg, runCfg).Run(ctx)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return sum, err
		}
		if rerr := reportSuite(cmd, cur, sum, ro); rerr != nil {
			return sum, rerr
		}
		return sum, err
	}

	sum, err := runOnce(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if !f.watch {
		if errors.Is(err, context.Canceled) {
			return exitWith(verify.ExitInternal)
		}
		if !sum.OK() {
			return exitWith(1)
		}
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", m.Root)
	w := suite.NewWatcher([]string{m.Root}, 0)
	w.OnError = func(err error) { fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err) }
	return w.Run(cmd.Context(), func(ctx context.Context, changed []string) error {
		if !quiet(cmd) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%d file(s) changed, rerunning\n", len(changed))
		}
		if _, err := runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", appName, err)
		}
		return nil
	})
}

// textSink prints one line per finished fixture.
func textSink(out io.Writer) suite.ProgressSink {
	var mu sync.Mutex
	return suite.SinkFunc(func(e suite.Event) {
		if !e.Status.Done() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		label := "PASS"
		switch e.Status {
		case suite.StatusFailed:
			label = "FAIL"
		case suite.StatusError:
			label = "ERROR"
		}
		suffix := ""
		if e.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(out, "%-5s %s%s\n", label, e.Fixture, suffix)
	})
}

type suiteFixtureJSON struct {
	Name        string                   `json:"name"`
	Kind        string                   `json:"kind"`
	Passed      bool                     `json:"passed"`
	Cached      bool                     `json:"cached,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics,omitempty"`
}

type suiteJSON struct {
	Manifest string             `json:"manifest"`
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Cached   int                `json:"cached"`
	Fixtures []suiteFixtureJSON `json:"fixtures"`
}

func reportSuite(cmd *cobra.Command, m *config.Manifest, sum suite.Summary, ro renderOpts) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	switch ro.format {
	case formatJSON:
		doc := suiteJSON{
			Manifest: filepath.ToSlash(m.Path),
			Total:    sum.Total,
			Passed:   sum.Passed,
			Failed:   sum.Failed,
			Cached:   sum.Cached,
			Fixtures: make([]suiteFixtureJSON, 0, len(sum.Results)),
		}
		for _, r := range sum.Results {
			fj := suiteFixtureJSON{
				Name:   r.Entry.Fixture.Name,
				Kind:   r.Result.Kind.String(),
				Passed: r.Passed(),
				Cached: r.Cached,
			}
			if r.Err != nil {
				fj.Error = r.Err.Error()
			} else if fs, d := fixtureDiagnostic(r); d != nil {
				bag := diag.NewBag(1)
				bag.Add(d)
				fj.Diagnostics = diagfmt.BuildDiagnosticsOutput(bag, fs, jsonOpts(ro)).Diagnostics
			}
			doc.Fixtures = append(doc.Fixtures, fj)
		}
		return diagfmt.EncodeJSON(out, doc, ro.canonical)

	case formatSarif:
		// все фикстуры в одном наборе файлов, чтобы получить один run
		fs := source.NewFileSetWithBase(m.Root)
		bag := diag.NewBag(len(sum.Results))
		for _, r := range sum.Results {
			if d := relocate(fs, r); d != nil {
				bag.Add(d)
			}
		}
		return diagfmt.Sarif(out, bag, fs, sarifMeta(ro))
	}

	for _, r := range sum.Results {
		if r.Passed() {
			continue
		}
		fs, d := fixtureDiagnostic(r)
		if d == nil {
			continue
		}
		bag := diag.NewBag(1)
		bag.Add(d)
		fs.SetBaseDir(m.Root)
		fmt.Fprintf(errOut, "\n--- %s\n", r.Entry.Fixture.Name)
		if err := renderBag(out, errOut, bag, fs, ro); err != nil {
			return err
		}
	}
	if !quiet(cmd) || !sum.OK() {
		fmt.Fprintf(out, "\n%s (%.1f ms)\n", sum.String(), toMillis(sum.Elapsed))
	}
	return nil
}

// fixtureDiagnostic returns the failure of r with the file set its spans
// refer to. A fixture whose files could not be loaded gets a placeholder
// entry for its annotation path.
func fixtureDiagnostic(r suite.FixtureResult) (*source.FileSet, *diag.Diagnostic) {
	d := r.Diagnostic()
	if d == nil || r.FileSet != nil {
		return r.FileSet, d
	}
	fs := source.NewFileSet()
	d.Primary = source.Span{File: fs.AddVirtual(r.Entry.Fixture.Annotation, nil)}
	return fs, d
}

// relocate copies the files a fixture diagnostic refers to into fs and
// rewrites its spans accordingly.
func relocate(fs *source.FileSet, r suite.FixtureResult) *diag.Diagnostic {
	from, d := fixtureDiagnostic(r)
	if d == nil {
		return nil
	}
	ids := map[source.FileID]source.FileID{}
	move := func(sp source.Span) source.Span {
		if nid, ok := ids[sp.File]; ok {
			sp.File = nid
			return sp
		}
		f := from.Get(sp.File)
		if f == nil {
			return sp
		}
		nid := fs.Add(f.Path, f.Content, f.Flags)
		ids[sp.File] = nid
		sp.File = nid
		return sp
	}
	out := *d
	out.Primary = move(d.Primary)
	out.Notes = make([]diag.Note, len(d.Notes))
	for i, n := range d.Notes {
		out.Notes[i] = diag.Note{Span: move(n.Span), Msg: n.Msg}
	}
	return &out
}
