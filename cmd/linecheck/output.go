package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"linecheck/internal/diag"
	"linecheck/internal/diagfmt"
	"linecheck/internal/source"
	"linecheck/internal/verify"
)

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatShort  outputFormat = "short"
	formatJSON   outputFormat = "json"
	formatSarif  outputFormat = "sarif"
)

func readFormat(value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatPretty, formatShort, formatJSON, formatSarif:
		return f, nil
	case "":
		return formatPretty, nil
	default:
		return "", fmt.Errorf("unknown format: %s (expected pretty|short|json|sarif)", value)
	}
}

// verdictJSON is the machine-readable form of a check run.
type verdictJSON struct {
	Kind        string                   `json:"kind"`
	ExitCode    int                      `json:"exit_code"`
	Satisfied   int                      `json:"satisfied"`
	Bindings    map[string]string        `json:"bindings,omitempty"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics"`
}

type renderOpts struct {
	format    outputFormat
	pathMode  diagfmt.PathMode
	context   int8
	canonical bool
	args      []string
}

// renderBag writes bag in the chosen format. Pretty and short go to errOut,
// the machine formats to out.
func renderBag(out, errOut io.Writer, bag *diag.Bag, fs *source.FileSet, opts renderOpts) error {
	switch opts.format {
	case formatShort:
		diagfmt.Short(errOut, bag, fs, true)
	case formatJSON:
		return diagfmt.JSON(out, bag, fs, jsonOpts(opts))
	case formatSarif:
		return diagfmt.Sarif(out, bag, fs, sarifMeta(opts))
	default:
		diagfmt.Pretty(errOut, bag, fs, diagfmt.PrettyOpts{
			Color:       !color.NoColor,
			Context:     opts.context,
			PathMode:    opts.pathMode,
			ShowNotes:   true,
			ShowContext: true,
		})
	}
	return nil
}

func jsonOpts(opts renderOpts) diagfmt.JSONOpts {
	return diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         opts.pathMode,
		IncludeNotes:     true,
		IncludeContext:   true,
		Canonical:        opts.canonical,
	}
}

func sarifMeta(opts renderOpts) diagfmt.SarifRunMeta {
	return diagfmt.SarifRunMeta{
		ToolName:       appName,
		ToolVersion:    toolVersion(),
		InvocationArgs: opts.args,
	}
}

func renderVerdict(out, errOut io.Writer, res verify.Result, bag *diag.Bag, fs *source.FileSet, opts renderOpts) error {
	if opts.format != formatJSON {
		if bag.Len() == 0 && opts.format != formatSarif {
			return nil
		}
		return renderBag(out, errOut, bag, fs, opts)
	}
	v := verdictJSON{
		Kind:        res.Kind.String(),
		ExitCode:    res.ExitCode(),
		Satisfied:   res.Satisfied,
		Bindings:    res.Bindings,
		Diagnostics: diagfmt.BuildDiagnosticsOutput(bag, fs, jsonOpts(opts)).Diagnostics,
	}
	return diagfmt.EncodeJSON(out, v, opts.canonical)
}
