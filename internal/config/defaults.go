package config

import (
	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

// Default configuration values.
const (
	DefaultEscape       = codegen.EscapeHTML
	DefaultItemType     = codegen.ItemString
	DefaultBridge       = stream.Cooperative
	DefaultJobs         = 4
	DefaultChunkSize    = 0
	DefaultMaxSteps     = 0
	DefaultColor        = ColorAuto
	DefaultOutput       = OutputText
	DefaultPreviewPort  = 8765
	DefaultPreviewWatch = true
)

// Defaults returns the default values keyed by configuration key, for use
// as the lowest configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"escape":          string(DefaultEscape),
		"item_type":       string(DefaultItemType),
		"bridge":          string(DefaultBridge),
		"line_directives": false,
		"jobs":            DefaultJobs,
		"chunk_size":      DefaultChunkSize,
		"max_steps":       DefaultMaxSteps,
		"color":           DefaultColor,
		"verbose":         false,
		"output":          DefaultOutput,
		"preview.port":    DefaultPreviewPort,
		"preview.watch":   DefaultPreviewWatch,
	}
}

// ApplyDefaults fills unset values of c.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.Escape == "" {
		c.Escape = string(DefaultEscape)
	}
	if c.ItemType == "" {
		c.ItemType = string(DefaultItemType)
	}
	if c.Bridge == "" {
		c.Bridge = string(DefaultBridge)
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPreviewPort
	}
}
