package config

import (
	"fmt"
	"os"

	"golang.org/x/term"

	sharedcfg "github.com/leapstack-labs/leaptmpl/internal/config"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.ProjectConfig.Validate(); err != nil {
		return err
	}
	if c.Jobs < 0 {
		return fmt.Errorf("invalid jobs %d: must not be negative", c.Jobs)
	}
	if err := sharedcfg.ValidateColor(c.Color); err != nil {
		return err
	}
	return sharedcfg.ValidateOutput(c.Output)
}

// UseColor reports whether output written to f should be colored. In auto
// mode color is used for terminals unless NO_COLOR is set.
func (c *Config) UseColor(f *os.File) bool {
	switch c.Color {
	case sharedcfg.ColorAlways:
		return true
	case sharedcfg.ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
