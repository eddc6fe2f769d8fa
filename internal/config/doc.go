// Package config loads the linecheck manifest (linecheck.toml, or
// linecheck.yaml as an alternative) and turns it into verification options
// and a resolved list of fixtures.
//
// The manifest is located by walking up from a start directory. Relative
// paths inside it are resolved against the directory holding the manifest.
package config
