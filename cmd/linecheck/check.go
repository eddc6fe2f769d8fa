package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"linecheck/internal/config"
	"linecheck/internal/diag"
	"linecheck/internal/diagfmt"
	"linecheck/internal/pattern"
	"linecheck/internal/source"
	"linecheck/internal/verify"
)

type checkFlags struct {
	prefixes        []string
	prefixList      []string
	commentPrefixes []string
	strictWS        bool
	ignoreCase      bool
	fullOutput      bool
	dagWindow       int
	regex           bool
	nfc             bool
	implicitNot     []string
	noManifest      bool
	format          string
	pathMode        string
	contextLines    int8
	canonical       bool
}

func newCheckCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check <annotation> [output|-]",
		Short: "Verify an output against the directives of an annotation file",
		Long: `Verify the captured output of a tool against the CHECK directives found in
an annotation file. The output is read from stdin when omitted or "-".
The exit status tells what went wrong: 1 pattern not found, 2 forbidden pattern
found, 3 trailing output, 4 no directives, 5 parse error, 6 compile error,
7 undefined variable.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, f)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.prefixes, "check-prefix", nil, "directive prefix (repeatable)")
	fl.StringSliceVar(&f.prefixList, "check-prefixes", nil, "comma-separated directive prefixes")
	fl.StringSliceVar(&f.commentPrefixes, "comment-prefixes", nil, "comma-separated prefixes that disable a directive line")
	fl.BoolVar(&f.strictWS, "strict-whitespace", false, "compare whitespace exactly")
	fl.BoolVar(&f.ignoreCase, "ignore-case", false, "match case-insensitively")
	fl.BoolVar(&f.fullOutput, "match-full-output", false, "fail on non-blank output after the last match")
	fl.IntVar(&f.dagWindow, "dag-window", 0, "max lines a DAG group may span (0 = up to the next label)")
	fl.BoolVar(&f.regex, "regex", false, "treat literal pattern text as regular expressions")
	fl.BoolVar(&f.nfc, "nfc", false, "compare Unicode NFC forms")
	fl.StringArrayVar(&f.implicitNot, "implicit-check-not", nil, "pattern forbidden everywhere (repeatable)")
	fl.BoolVar(&f.noManifest, "no-manifest", false, "ignore the [check] table of linecheck.toml")
	fl.StringVar(&f.format, "format", "pretty", "output format (pretty|short|json|sarif)")
	fl.StringVar(&f.pathMode, "path-mode", "auto", "path display (auto|absolute|relative|basename)")
	fl.Int8Var(&f.contextLines, "context", 0, "annotation lines shown around a failure")
	fl.BoolVar(&f.canonical, "canonical", false, "emit RFC 8785 canonical JSON")
	return cmd
}

// checkOptions layers explicitly set flags over the manifest found next to
// the annotation, over the defaults.
func checkOptions(cmd *cobra.Command, annotation string, f checkFlags) (verify.Options, error) {
	opts := verify.DefaultOptions()
	if !f.noManifest {
		m, ok, err := config.LoadFrom(filepath.Dir(annotation))
		if err != nil {
			return opts, err
		}
		if ok {
			if opts, err = m.Check.Apply(opts); err != nil {
				return opts, fmt.Errorf("%s: [check]: %w", m.Path, err)
			}
		}
	}

	fl := cmd.Flags()
	if prefixes := append(append([]string(nil), f.prefixes...), f.prefixList...); len(prefixes) > 0 {
		opts.Prefixes = prefixes
	}
	if fl.Changed("comment-prefixes") {
		opts.CommentPrefixes = f.commentPrefixes
	}
	if fl.Changed("strict-whitespace") {
		opts.Whitespace = pattern.WhitespaceCollapse
		if f.strictWS {
			opts.Whitespace = pattern.WhitespaceExact
		}
	}
	if fl.Changed("ignore-case") {
		opts.IgnoreCase = f.ignoreCase
	}
	if fl.Changed("match-full-output") {
		opts.RequireFullConsumption = f.fullOutput
	}
	if fl.Changed("dag-window") {
		opts.DAGWindow = f.dagWindow
	}
	if fl.Changed("regex") {
		opts.RegexMode = f.regex
	}
	if fl.Changed("nfc") {
		opts.NormalizeUnicode = f.nfc
	}
	if len(f.implicitNot) > 0 {
		opts.ImplicitNot = append(opts.ImplicitNot, f.implicitNot...)
	}
	return opts, opts.Validate()
}

func runCheck(cmd *cobra.Command, args []string, f checkFlags) error {
	format, err := readFormat(f.format)
	if err != nil {
		return err
	}
	pathMode, ok := diagfmt.ParsePathMode(f.pathMode)
	if !ok {
		return fmt.Errorf("invalid --path-mode value %q", f.pathMode)
	}

	opts, err := checkOptions(cmd, args[0], f)
	if err != nil {
		return err
	}

	fs := source.NewFileSetWithBase(".")
	annID, err := fs.Load(args[0], 0)
	if err != nil {
		return fmt.Errorf("failed to read annotation: %w", err)
	}
	var outID source.FileID
	if len(args) < 2 || args[1] == "-" {
		outID, err = fs.LoadReader("<stdin>", cmd.InOrStdin(), source.FileOutput)
	} else {
		outID, err = fs.Load(args[1], source.FileOutput)
	}
	if err != nil {
		return fmt.Errorf("failed to read output: %w", err)
	}

	res := verify.VerifyFiles(cmd.Context(), fs, annID, outID, opts)

	bag := diag.NewBag(4)
	if d := res.Diagnostic(fs, annID, outID); d != nil {
		bag.Add(d)
	}
	if showTimings(cmd) {
		if format == formatPretty || format == formatShort {
			fmt.Fprint(cmd.ErrOrStderr(), res.Timings.Summary())
		} else {
			bag.Add(res.TimingDiagnostic(fs, annID))
		}
	}

	ro := renderOpts{
		format:    format,
		pathMode:  pathMode,
		context:   f.contextLines,
		canonical: f.canonical,
		args:      append([]string{appName, cmd.Name()}, args...),
	}
	if err := renderVerdict(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, bag, fs, ro); err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}
	if res.OK() && !quiet(cmd) && format == formatPretty {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d directives satisfied\n", fs.Get(annID).Path, res.Satisfied)
	}
	return exitWith(res.ExitCode())
}
