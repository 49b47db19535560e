// Package config loads the optional .chipdesc.yaml defaults file,
// consulted after flag parsing to fill in flags the user did not pass,
// grounded on the teacher corpus's
// yaml.v3-based config loading (mirendev-runtime's schemagen reads its
// schema file the same way: open, yaml.NewDecoder(f).Decode(&v)).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the shape of .chipdesc.yaml. Every field is a default; any
// flag the user passes on the command line overrides it.
type File struct {
	Schema     string `yaml:"schema"`
	OutputPath string `yaml:"output_path"`
	Target     string `yaml:"target"`
	SplitDir   string `yaml:"split_dir"`
}

// Load reads and parses path. A missing file is not an error: it
// returns a zero File, since .chipdesc.yaml is entirely optional.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var cfg File
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
