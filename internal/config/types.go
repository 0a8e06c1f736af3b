// Package config holds the project settings shared by the CLI and the
// preview server: defaults, validation and project root discovery.
package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// PreviewConfig holds configuration for the preview server.
type PreviewConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// ProjectConfig holds the settings that change what templates compile to
// and how they render.
type ProjectConfig struct {
	Escape         string        `koanf:"escape"`
	ItemType       string        `koanf:"item_type"`
	Bridge         string        `koanf:"bridge"`
	LineDirectives bool          `koanf:"line_directives"`
	ChunkSize      int           `koanf:"chunk_size"`
	MaxSteps       uint64        `koanf:"max_steps"`
	Preview        PreviewConfig `koanf:"preview"`
}

// Codegen returns the code generator options c selects.
func (c *ProjectConfig) Codegen() codegen.Options {
	opts := codegen.DefaultOptions()
	opts.Escape = codegen.Escape(c.Escape)
	opts.ItemType = codegen.ItemType(c.ItemType)
	opts.Bridge = stream.Bridge(c.Bridge)
	opts.LineDirectives = c.LineDirectives
	return opts
}

// Starlark returns the renderer options c selects.
func (c *ProjectConfig) Starlark(threads int) starlark.Options {
	return starlark.Options{
		Escape:   codegen.Escape(c.Escape),
		Bridge:   stream.Bridge(c.Bridge),
		MaxSteps: c.MaxSteps,
		Threads:  threads,
	}
}

// Validate checks that every value is known.
func (c *ProjectConfig) Validate() error {
	if err := c.Codegen().Validate(); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("invalid chunk_size %d: must not be negative", c.ChunkSize)
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return fmt.Errorf("invalid preview.port %d", c.Preview.Port)
	}
	return nil
}

// ValidateColor checks a color mode.
func ValidateColor(mode string) error {
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, mode) {
		return fmt.Errorf("invalid color %q: must be %q, %q or %q", mode, ColorAuto, ColorAlways, ColorNever)
	}
	return nil
}

// ValidateOutput checks an output format.
func ValidateOutput(format string) error {
	if format != OutputText && format != OutputJSON {
		return fmt.Errorf("invalid output %q: must be %q or %q", format, OutputText, OutputJSON)
	}
	return nil
}
