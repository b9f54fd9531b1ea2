// Package config loads the optional benchmark configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level configuration. All fields are optional; flags
// still win over file values.
//
// Example YAML:
//
//	baseUrl: https://localhost:8443
//	auth: admin:admin
//	insecure: true
//	tests:
//	  rest-read:
//	    duration: 60
//	    vus: 100
type File struct {
	// BaseURL is the default target base address.
	BaseURL string `yaml:"baseUrl"`

	// Auth is an optional user:pass pair.
	Auth string `yaml:"auth"`

	// Insecure skips TLS certificate verification for the whole file's
	// targets.
	Insecure bool `yaml:"insecure"`

	// Tests holds per-test load profile overrides keyed by test
	// identifier.
	Tests map[string]Override `yaml:"tests"`
}

// Override adjusts one scenario's default load profile.
type Override struct {
	// Duration in seconds. Zero means "use the default".
	Duration int `yaml:"duration"`

	// VUs count. Zero means "use the default".
	VUs int `yaml:"vus"`
}

// Load reads and parses a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	for id, o := range f.Tests {
		if o.Duration < 0 {
			return nil, fmt.Errorf("config file %s: test %s: duration must be >= 0", path, id)
		}
		if o.VUs < 0 {
			return nil, fmt.Errorf("config file %s: test %s: vus must be >= 0", path, id)
		}
	}

	return &f, nil
}
