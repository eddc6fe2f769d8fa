package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linecheck/internal/config"
	"linecheck/internal/suite"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove cached suite verdicts",
		Long:  "Remove the verdict cache of the project whose manifest is found from dir.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClean,
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	root, err := resolveCleanBase(base)
	if err != nil {
		return err
	}
	dir, err := suite.ProjectCacheDir(appName, root)
	if err != nil {
		return fmt.Errorf("failed to locate cache: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "cache not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	cache, err := suite.OpenCache(dir)
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	fmt.Fprintf(out, "removed %s\n", cache.Dir())
	return nil
}

// resolveCleanBase returns the manifest root above base, or base itself
// made absolute when no manifest exists.
func resolveCleanBase(base string) (string, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", fmt.Errorf("failed to stat %q: %w", base, err)
	}
	if !info.IsDir() {
		base = filepath.Dir(base)
	}
	m, ok, err := config.LoadFrom(base)
	if err != nil {
		return "", err
	}
	if ok {
		return m.Root, nil
	}
	return filepath.Abs(base)
}
