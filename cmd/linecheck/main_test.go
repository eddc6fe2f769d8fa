package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecheck/internal/config"
	"linecheck/internal/suite"
	"linecheck/internal/verify"
)

type runResult struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheckPasses(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: hello\nCHECK-NEXT: world\n")
	out := writeFile(t, filepath.Join(dir, "a.out"), "hello\nworld\n")

	r := run(t, "", "check", "--no-manifest", ann, out)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stderr, "2 directives satisfied")
}

func TestCheckQuietSuppressesSuccessLine(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: hello\n")

	r := run(t, "hello\n", "--quiet", "check", "--no-manifest", ann)
	assert.Equal(t, 0, r.code)
	assert.Empty(t, r.stderr)
}

func TestCheckExitCodes(t *testing.T) {
	cases := []struct {
		name   string
		ann    string
		output string
		args   []string
		code   int
	}{
		{"not found", "CHECK: missing\n", "hello\n", nil, 1},
		{"forbidden", "CHECK: a\nCHECK-NOT: bad\nCHECK: c\n", "a\nbad\nc\n", nil, 2},
		{"trailing", "CHECK: a\n", "a\nmore\n", []string{"--match-full-output"}, 3},
		{"no directives", "just text\n", "a\n", nil, 4},
		{"parse error", "CHECK-NEXT: a\n", "a\n", nil, 5},
		{"reference before definition", "CHECK: [[NOPE]]\n", "a\n", nil, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			ann := writeFile(t, filepath.Join(dir, "a.chk"), tc.ann)
			out := writeFile(t, filepath.Join(dir, "a.out"), tc.output)
			args := append([]string{"check", "--no-manifest"}, tc.args...)
			args = append(args, ann, out)

			r := run(t, "", args...)
			assert.Equal(t, tc.code, r.code, r.stderr)
			assert.NotEmpty(t, r.stderr)
		})
	}
}

func TestCheckReadsStdin(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: from stdin\n")

	r := run(t, "text from stdin\n", "check", "--no-manifest", ann, "-")
	assert.Equal(t, 0, r.code, r.stderr)

	r = run(t, "nothing here\n", "check", "--no-manifest", "--format", "short", ann)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "<stdin>")
}

func TestCheckJSONVerdict(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: id=[[ID:[0-9]+]]\nCHECK: missing\n")

	r := run(t, "id=42\n", "check", "--no-manifest", "--format", "json", ann)
	require.Equal(t, 1, r.code)

	var v verdictJSON
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v))
	assert.Equal(t, "PatternNotFound", v.Kind)
	assert.Equal(t, 1, v.ExitCode)
	require.Len(t, v.Diagnostics, 1)
	assert.Equal(t, "error", strings.ToLower(v.Diagnostics[0].Severity))
}

func TestCheckJSONSuccessHasBindings(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: id=[[ID:[0-9]+]]\n")

	r := run(t, "id=42\n", "check", "--no-manifest", "--format", "json", ann)
	require.Equal(t, 0, r.code, r.stderr)

	var v verdictJSON
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v))
	assert.Equal(t, "Success", v.Kind)
	assert.Equal(t, "42", v.Bindings["ID"])
	assert.Empty(t, v.Diagnostics)
}

func TestCheckFlagsOverrideManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.TOMLName), "[check]\nprefixes = [\"EXPECT\"]\n")
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "EXPECT: foo\nCHECK: bar\n")

	// manifest prefix: only EXPECT is a directive
	r := run(t, "foo\n", "check", ann)
	assert.Equal(t, 0, r.code, r.stderr)

	r = run(t, "foo\n", "check", "--check-prefix", "CHECK", ann)
	assert.Equal(t, 1, r.code, r.stderr)

	r = run(t, "foo\n", "check", "--no-manifest", ann)
	assert.Equal(t, 1, r.code, r.stderr)
}

func TestCheckMissingAnnotationIsInternalError(t *testing.T) {
	r := run(t, "", "check", "--no-manifest", filepath.Join(t.TempDir(), "nope.chk"), "-")
	assert.Equal(t, verify.ExitInternal, r.code)
	assert.Contains(t, r.stderr, "failed to read annotation")
}

func TestCheckSarif(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, filepath.Join(dir, "a.chk"), "CHECK: missing\n")

	r := run(t, "hello\n", "check", "--no-manifest", "--format", "sarif", ann)
	require.Equal(t, 1, r.code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
}

func TestReadFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{
		"":       formatPretty,
		"pretty": formatPretty,
		"SHORT":  formatShort,
		" json ": formatJSON,
		"sarif":  formatSarif,
	} {
		got, err := readFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := readFormat("xml")
	assert.Error(t, err)
}

func TestReadUIMode(t *testing.T) {
	m, err := readUIMode("ON")
	require.NoError(t, err)
	assert.Equal(t, uiModeOn, m)
	_, err = readUIMode("sometimes")
	assert.Error(t, err)
	assert.False(t, shouldUseTUI(uiModeAuto, &bytes.Buffer{}))
	assert.True(t, shouldUseTUI(uiModeOn, &bytes.Buffer{}))
}

func TestInitWritesStarter(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := filepath.Join(t.TempDir(), "proj")

	r := run(t, "", "init", dir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, config.TOMLName)
	assert.FileExists(t, filepath.Join(dir, config.TOMLName))
	assert.FileExists(t, filepath.Join(dir, "testdata", "example.chk"))
	assert.FileExists(t, filepath.Join(dir, "testdata", "example.chk.out"))

	// the generated project passes out of the box
	r = run(t, "", "suite", "--ui", "off", dir)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "1 total, 1 passed, 0 failed")

	r = run(t, "", "init", dir)
	assert.Equal(t, verify.ExitInternal, r.code)
	assert.Contains(t, r.stderr, "already initialized")
}

func writeSuite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.TOMLName), `[check]
prefixes = ["CHECK"]

[discover]
annotations = "cases/*.chk"
`)
	writeFile(t, filepath.Join(dir, "cases", "ok.chk"), "CHECK: alpha\n")
	writeFile(t, filepath.Join(dir, "cases", "ok.chk.out"), "alpha\n")
	writeFile(t, filepath.Join(dir, "cases", "bad.chk"), "CHECK: gamma\n")
	writeFile(t, filepath.Join(dir, "cases", "bad.chk.out"), "beta\n")
	return dir
}

func TestSuiteReportsFailures(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := writeSuite(t)

	r := run(t, "", "suite", "--ui", "off", dir)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "PASS  cases/ok.chk")
	assert.Contains(t, r.stdout, "FAIL  cases/bad.chk")
	assert.Contains(t, r.stdout, "2 total, 1 passed, 1 failed, 0 cached")
	assert.Contains(t, r.stderr, "--- cases/bad.chk")

	r = run(t, "", "suite", "--ui", "off", dir)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "2 cached")
	assert.Contains(t, r.stdout, "PASS  cases/ok.chk (cached)")
}

func TestSuiteFilterAndJSON(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := writeSuite(t)

	r := run(t, "", "suite", "--cache=false", "--filter", "cases/ok*", "--format", "json", dir)
	require.Equal(t, 0, r.code, r.stderr)

	var doc suiteJSON
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	assert.Equal(t, 1, doc.Total)
	require.Len(t, doc.Fixtures, 1)
	assert.Equal(t, "cases/ok.chk", doc.Fixtures[0].Name)
	assert.True(t, doc.Fixtures[0].Passed)

	r = run(t, "", "suite", "--cache=false", "--format", "json", dir)
	require.Equal(t, 1, r.code)
	doc = suiteJSON{}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	assert.Equal(t, 1, doc.Failed)
	for _, fx := range doc.Fixtures {
		if fx.Name == "cases/bad.chk" {
			assert.Equal(t, "PatternNotFound", fx.Kind)
			assert.Len(t, fx.Diagnostics, 1)
		}
	}
}

func TestSuiteSarifSingleRun(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := writeSuite(t)

	r := run(t, "", "suite", "--cache=false", "--format", "sarif", dir)
	require.Equal(t, 1, r.code)

	var doc struct {
		Runs []struct {
			Results []any `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	require.Len(t, doc.Runs, 1)
	assert.Len(t, doc.Runs[0].Results, 1)
}

func TestSuiteWithoutManifest(t *testing.T) {
	r := run(t, "", "suite", "--ui", "off", t.TempDir())
	assert.Equal(t, verify.ExitInternal, r.code)
	assert.Contains(t, r.stderr, "no linecheck.toml found")
}

func TestCleanRemovesVerdicts(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := writeSuite(t)

	r := run(t, "", "clean", dir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "cache not found")

	run(t, "", "suite", "--ui", "off", dir)
	r = run(t, "", "clean", dir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "removed ")

	cacheDir, err := suite.ProjectCacheDir(appName, dir)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(cacheDir, "verdicts"))

	r = run(t, "", "suite", "--ui", "off", dir)
	assert.Contains(t, r.stdout, "0 cached")
}

func TestVersionJSON(t *testing.T) {
	r := run(t, "", "version", "--format", "json", "--full")
	require.Equal(t, 0, r.code, r.stderr)

	var p versionPayload
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &p))
	assert.Equal(t, appName, p.Tool)
	assert.NotEmpty(t, p.Version)
	assert.NotEmpty(t, p.GitCommit)

	r = run(t, "", "version", "--format", "xml")
	assert.Equal(t, verify.ExitInternal, r.code)
}

func TestRepositoryFixturesPass(t *testing.T) {
	r := run(t, "", "suite", "--ui", "off", "--cache=false", filepath.Join("..", ".."))
	assert.Equal(t, 0, r.code, r.stdout+r.stderr)
	assert.Contains(t, r.stdout, "4 total, 4 passed, 0 failed")
}
