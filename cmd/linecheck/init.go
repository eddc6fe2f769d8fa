package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linecheck/internal/config"
)

const (
	exampleAnnotation = `; The directives below are checked against example.chk.out.
; CHECK: hello
; CHECK-NEXT: [[WHO:[a-z]+]]
; CHECK-NOT: error
; CHECK: bye, [[WHO]]
`
	exampleOutput = `hello
world
bye, world
`
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a linecheck.toml manifest with an example fixture",
		Long: `Write linecheck.toml and testdata/example.chk (with its captured output) into
dir. The directory is created when missing. Existing manifests are never
overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	for _, name := range []string{config.TOMLName, config.YAMLName} {
		if _, err := os.Stat(filepath.Join(target, name)); err == nil {
			return fmt.Errorf("already initialized: %s exists", filepath.Join(target, name))
		}
	}

	if err := os.WriteFile(filepath.Join(target, config.TOMLName), []byte(config.Starter), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	created := []string{config.TOMLName}

	testdata := filepath.Join(target, "testdata")
	if err := os.MkdirAll(testdata, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", testdata, err)
	}
	files := []struct {
		name    string
		content string
	}{
		{"example.chk", exampleAnnotation},
		{"example.chk.out", exampleOutput},
	}
	for _, f := range files {
		p := filepath.Join(testdata, f.name)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := os.WriteFile(p, []byte(f.content), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		created = append(created, filepath.ToSlash(filepath.Join("testdata", f.name)))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized linecheck in %s\n", displayPath(target))
	for _, c := range created {
		fmt.Fprintf(out, "  - %s\n", c)
	}
	return nil
}

// displayPath returns p relative to the working directory when possible.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	if r, err := filepath.Rel(wd, p); err == nil {
		return r
	}
	return p
}
