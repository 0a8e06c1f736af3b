// Package config loads configuration for the leaptmpl CLI.
//
// Project settings shared with the preview server live in
// internal/config; this package layers CLI-only settings on top and
// resolves the final values from defaults, the config file, the
// environment and command-line flags.
package config

import (
	sharedcfg "github.com/leapstack-labs/leaptmpl/internal/config"
)

// ProjectConfig is an alias for the shared project configuration.
type ProjectConfig = sharedcfg.ProjectConfig

// PreviewConfig is an alias for the shared preview server configuration.
type PreviewConfig = sharedcfg.PreviewConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectConfig `koanf:",squash"`

	Jobs    int    `koanf:"jobs"`
	Color   string `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"`

	// ProjectRoot is the directory holding the config file, or the
	// working directory when there is none.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultJobs   = sharedcfg.DefaultJobs
	DefaultColor  = sharedcfg.DefaultColor
	DefaultOutput = sharedcfg.DefaultOutput
)

// Output formats.
const (
	OutputText = sharedcfg.OutputText
	OutputJSON = sharedcfg.OutputJSON
)

// Default returns the configuration used when nothing has been loaded.
func Default() *Config {
	cfg := &Config{
		Jobs:   DefaultJobs,
		Color:  DefaultColor,
		Output: DefaultOutput,
	}
	cfg.Preview.Watch = sharedcfg.DefaultPreviewWatch
	sharedcfg.ApplyDefaults(&cfg.ProjectConfig)
	return cfg
}
