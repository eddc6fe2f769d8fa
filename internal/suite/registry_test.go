package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecheck/internal/config"
	"linecheck/internal/verify"
)

func entry(name string) Entry {
	return Entry{Fixture: config.Fixture{Name: name}, Options: verify.DefaultOptions()}
}

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(entry("a")))
	require.NoError(t, r.Add(entry("b")))
	assert.Equal(t, 2, r.Len())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Fixture.Name)
	assert.Equal(t, "b", all[1].Fixture.Name)

	e, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "b", e.Fixture.Name)
	_, ok = r.Lookup("c")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(entry("a")))
	err := r.Add(entry("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestRegistryFilter(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"lex/basic", "lex/strings", "parse/basic", "[odd]"} {
		require.NoError(t, r.Add(entry(n)))
	}

	all, err := r.Filter(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := r.Filter([]string{"lex/*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lex/basic", "lex/strings"}, names(got))

	got, err = r.Filter([]string{"parse/basic", "lex/strings"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lex/strings", "parse/basic"}, names(got))

	_, err = r.Filter([]string{"["})
	assert.Error(t, err)
}

func TestFromManifest(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, config.TOMLName)
	require.NoError(t, os.WriteFile(manifest, []byte(`
[check]
prefixes = ["CHECK"]

[[fixture]]
name = "alt"
annotation = "a.chk"
output = "a.out"
prefixes = ["ALT"]
`), 0o600))

	m, err := config.Load(manifest)
	require.NoError(t, err)
	r, err := FromManifest(m)
	require.NoError(t, err)

	e, ok := r.Lookup("alt")
	require.True(t, ok)
	assert.Equal(t, []string{"ALT"}, e.Options.Prefixes)
	assert.Equal(t, filepath.Join(root, "a.chk"), e.Fixture.Annotation)
}

func names(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Fixture.Name
	}
	return out
}
