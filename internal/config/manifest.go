package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// TOMLName is the preferred manifest file name.
	TOMLName = "linecheck.toml"
	// YAMLName is looked up when no TOML manifest is present.
	YAMLName = "linecheck.yaml"
)

// Check mirrors the [check] table. Pointer fields distinguish "absent" from
// the zero value so that absent keys keep the built-in defaults.
type Check struct {
	Prefixes        []string `toml:"prefixes" yaml:"prefixes"`
	CommentPrefixes []string `toml:"comment_prefixes" yaml:"comment_prefixes"`
	Whitespace      string   `toml:"whitespace" yaml:"whitespace"`
	CaseSensitive   *bool    `toml:"case_sensitive" yaml:"case_sensitive"`
	FullOutput      *bool    `toml:"full_output" yaml:"full_output"`
	DAGWindow       *int     `toml:"dag_window" yaml:"dag_window"`
	Regex           *bool    `toml:"regex" yaml:"regex"`
	NFC             *bool    `toml:"nfc" yaml:"nfc"`
	ImplicitNot     []string `toml:"implicit_not" yaml:"implicit_not"`
}

// Fixture is one [[fixture]] entry: an annotation source checked against a
// captured output.
type Fixture struct {
	Name       string   `toml:"name" yaml:"name"`
	Annotation string   `toml:"annotation" yaml:"annotation"`
	Output     string   `toml:"output" yaml:"output"`
	Prefixes   []string `toml:"prefixes" yaml:"prefixes"`
}

// Discover mirrors the [discover] table: every file matching Annotations
// becomes a fixture whose output is the same path plus OutputSuffix.
type Discover struct {
	Annotations  string `toml:"annotations" yaml:"annotations"`
	OutputSuffix string `toml:"output_suffix" yaml:"output_suffix"`
}

type manifestFile struct {
	Check    Check     `toml:"check" yaml:"check"`
	Fixtures []Fixture `toml:"fixture" yaml:"fixture"`
	Discover *Discover `toml:"discover" yaml:"discover"`
}

// Manifest is a loaded, validated manifest.
type Manifest struct {
	Path     string // absolute path of the manifest file
	Root     string // directory holding the manifest
	Check    Check
	Fixtures []Fixture
	Discover *Discover
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Path + ": invalid manifest"
	}
	var b strings.Builder
	b.WriteString(e.Path)
	b.WriteString(": invalid manifest:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Find walks up from startDir to locate a manifest. In one directory the
// TOML file wins over the YAML one.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range []string{TOMLName, YAMLName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadFrom finds and loads the manifest governing startDir. The boolean is
// false when no manifest exists.
func LoadFrom(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Load parses the manifest at path. The format follows the extension:
// .yaml and .yml are YAML, everything else is TOML.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}

	var raw manifestFile
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		err = decodeYAML(absPath, &raw)
	default:
		err = decodeTOML(absPath, &raw)
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Path:     absPath,
		Root:     filepath.Dir(absPath),
		Check:    raw.Check,
		Fixtures: raw.Fixtures,
		Discover: raw.Discover,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeTOML(path string, raw *manifestFile) error {
	meta, err := toml.DecodeFile(path, raw)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &ValidationError{Path: path, Issues: []string{"unknown keys: " + strings.Join(keys, ", ")}}
	}
	if meta.IsDefined("discover") && !meta.IsDefined("discover", "annotations") {
		return &ValidationError{Path: path, Issues: []string{"missing [discover].annotations"}}
	}
	return nil
}

func decodeYAML(path string, raw *manifestFile) error {
	// #nosec G304 -- path comes from Find or the command line
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(raw); err != nil {
		if errors.Is(err, io.EOF) {
			// пустой манифест допустим: всё по умолчанию
			return nil
		}
		return fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}
	return nil
}

func (m *Manifest) validate() error {
	errs := ValidationError{Path: m.Path}
	if _, err := m.Check.Apply(defaultOptions()); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("[check]: %v", err))
	}
	seen := make(map[string]int, len(m.Fixtures))
	for i, f := range m.Fixtures {
		if strings.TrimSpace(f.Annotation) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixture %d: missing annotation", i))
		}
		if strings.TrimSpace(f.Output) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixture %d: missing output", i))
		}
		if f.Name == "" {
			continue
		}
		if j, dup := seen[f.Name]; dup {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixture %d: name %q already used by fixture %d", i, f.Name, j))
			continue
		}
		seen[f.Name] = i
	}
	if m.Discover != nil {
		if strings.TrimSpace(m.Discover.Annotations) == "" {
			errs.Issues = append(errs.Issues, "missing [discover].annotations")
		} else if _, err := filepath.Match(m.Discover.Annotations, ""); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("[discover].annotations: %v", err))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}
