package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecheck/internal/pattern"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, TOMLName), path)
}

func TestFindPrefersTOML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, YAMLName), "")
	writeFile(t, filepath.Join(root, TOMLName), "")

	path, ok, err := Find(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TOMLName, filepath.Base(path))
}

func TestLoadFromMissing(t *testing.T) {
	m, ok, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestLoadTOML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), `
[check]
prefixes = ["CHECK", "ALT"]
whitespace = "exact"
case_sensitive = false
full_output = true
dag_window = 4
implicit_not = ["warning"]

[[fixture]]
name = "basic"
annotation = "tests/basic.chk"
output = "out/basic.txt"
prefixes = ["ALT"]
`)

	m, err := Load(filepath.Join(root, TOMLName))
	require.NoError(t, err)
	assert.Equal(t, root, m.Root)
	require.Len(t, m.Fixtures, 1)

	opts, err := m.Options(Fixture{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CHECK", "ALT"}, opts.Prefixes)
	assert.Equal(t, pattern.WhitespaceExact, opts.Whitespace)
	assert.True(t, opts.IgnoreCase)
	assert.True(t, opts.RequireFullConsumption)
	assert.Equal(t, 4, opts.DAGWindow)
	assert.Equal(t, []string{"warning"}, opts.ImplicitNot)
	assert.Equal(t, []string{"COM", "RUN"}, opts.CommentPrefixes)

	fixtureOpts, err := m.Options(m.Fixtures[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"ALT"}, fixtureOpts.Prefixes)
}

func TestLoadTOMLWithoutCheckKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), `
[[fixture]]
annotation = "a.chk"
output = "a.out"
`)

	m, err := Load(filepath.Join(root, TOMLName))
	require.NoError(t, err)
	opts, err := m.Options(m.Fixtures[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"CHECK"}, opts.Prefixes)
	assert.False(t, opts.IgnoreCase)
	assert.Equal(t, pattern.WhitespaceCollapse, opts.Whitespace)
}

func TestLoadYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, YAMLName), `
check:
  prefixes: [FOO]
  nfc: true
fixture:
  - name: one
    annotation: one.chk
    output: one.out
`)

	m, err := Load(filepath.Join(root, YAMLName))
	require.NoError(t, err)
	require.Len(t, m.Fixtures, 1)
	assert.Equal(t, "one", m.Fixtures[0].Name)

	opts, err := m.Options(m.Fixtures[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"FOO"}, opts.Prefixes)
	assert.True(t, opts.NormalizeUnicode)
}

func TestLoadEmptyYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, YAMLName), "")

	m, err := Load(filepath.Join(root, YAMLName))
	require.NoError(t, err)
	assert.Empty(t, m.Fixtures)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "missing output",
			file:    TOMLName,
			content: "[[fixture]]\nannotation = \"a.chk\"\n",
			want:    "fixture 0: missing output",
		},
		{
			name:    "missing annotation in second fixture",
			file:    TOMLName,
			content: "[[fixture]]\nannotation = \"a\"\noutput = \"b\"\n[[fixture]]\noutput = \"c\"\n",
			want:    "fixture 1: missing annotation",
		},
		{
			name:    "duplicate names",
			file:    TOMLName,
			content: "[[fixture]]\nname = \"x\"\nannotation = \"a\"\noutput = \"b\"\n[[fixture]]\nname = \"x\"\nannotation = \"c\"\noutput = \"d\"\n",
			want:    `fixture 1: name "x" already used by fixture 0`,
		},
		{
			name:    "bad whitespace",
			file:    TOMLName,
			content: "[check]\nwhitespace = \"loose\"\n",
			want:    "unknown whitespace policy",
		},
		{
			name:    "bad prefix",
			file:    TOMLName,
			content: "[check]\nprefixes = [\"9X\"]\n",
			want:    "[check]",
		},
		{
			name:    "unknown key",
			file:    TOMLName,
			content: "[check]\nprefix = [\"A\"]\n",
			want:    "unknown keys: check.prefix",
		},
		{
			name:    "discover without pattern",
			file:    TOMLName,
			content: "[discover]\noutput_suffix = \".txt\"\n",
			want:    "missing [discover].annotations",
		},
		{
			name:    "syntax",
			file:    TOMLName,
			content: "[check\n",
			want:    "failed to parse TOML",
		},
		{
			name:    "yaml unknown field",
			file:    YAMLName,
			content: "checks:\n  prefixes: [A]\n",
			want:    "failed to parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, tt.file)
			writeFile(t, path, tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), path)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveFixtures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), `
[[fixture]]
name = "explicit"
annotation = "testdata/a.chk"
output = "captured/a.txt"

[discover]
annotations = "testdata/*.chk"
`)
	writeFile(t, filepath.Join(root, "testdata", "a.chk"), "CHECK: a\n")
	writeFile(t, filepath.Join(root, "testdata", "b.chk"), "CHECK: b\n")
	writeFile(t, filepath.Join(root, "testdata", "b.chk.out"), "b\n")

	m, err := Load(filepath.Join(root, TOMLName))
	require.NoError(t, err)
	fixtures, err := m.ResolveFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	assert.Equal(t, "explicit", fixtures[0].Name)
	assert.Equal(t, filepath.Join(root, "captured", "a.txt"), fixtures[0].Output)

	assert.Equal(t, "testdata/b.chk", fixtures[1].Name)
	assert.Equal(t, filepath.Join(root, "testdata", "b.chk"), fixtures[1].Annotation)
	assert.Equal(t, filepath.Join(root, "testdata", "b.chk.out"), fixtures[1].Output)
}

func TestResolveFixturesDefaultName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), "[[fixture]]\nannotation = \"x/y.chk\"\noutput = \"y.out\"\n")

	m, err := Load(filepath.Join(root, TOMLName))
	require.NoError(t, err)
	fixtures, err := m.ResolveFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, "x/y.chk", fixtures[0].Name)
}

func TestStarterParses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TOMLName), Starter)

	m, err := Load(filepath.Join(root, TOMLName))
	require.NoError(t, err)
	require.NotNil(t, m.Discover)
	assert.Equal(t, "testdata/*.chk", m.Discover.Annotations)

	fixtures, err := m.ResolveFixtures()
	require.NoError(t, err)
	assert.Empty(t, fixtures)
}
