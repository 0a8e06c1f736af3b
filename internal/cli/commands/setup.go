package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/cli/config"
	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Compiler *compile.Compiler
	Out      io.Writer
	Err      io.Writer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the logger stored on the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Compiler: compile.New(compile.Options{
			Codegen: cfg.Codegen(),
			Jobs:    cfg.Jobs,
		}, logger),
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
	}
}

// JSON reports whether machine-readable output was requested.
func (c *CommandContext) JSON() bool {
	return c.Cfg.Output == config.OutputJSON
}

// Collect expands path patterns into template files with one of exts.
// No patterns means every template below the working directory. Paths
// under the working directory are returned relative to it.
func (c *CommandContext) Collect(patterns []string, exts ...string) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	paths, err := compile.Collect(cwd, patterns, exts...)
	if err != nil {
		return nil, err
	}
	for i, p := range paths {
		if rel, err := filepath.Rel(cwd, p); err == nil && filepath.IsLocal(rel) {
			paths[i] = rel
		}
	}
	return paths, nil
}

// Printer returns a diagnostic printer on the error stream, colored when
// the configuration and the terminal allow it.
func (c *CommandContext) Printer() *diag.Printer {
	f, _ := c.Err.(*os.File)
	return diag.NewPrinter(c.Err, c.Cfg.UseColor(f))
}

// ReportFailures prints the errors of failed results and returns how many
// failed. Diagnostics are printed with source excerpts.
func (c *CommandContext) ReportFailures(results []*compile.Result) int {
	printer := c.Printer()
	failed := 0
	for _, r := range results {
		if r == nil || r.Err == nil {
			continue
		}
		failed++
		var derr *diag.Error
		if errors.As(r.Err, &derr) {
			printer.PrintAll(r.Source, derr.Diagnostics)
			continue
		}
		_, _ = fmt.Fprintf(c.Err, "error: %v\n", r.Err)
	}
	return failed
}

// WriteJSON encodes v as indented JSON on the output stream.
func (c *CommandContext) WriteJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failedError is returned when some files did not compile. The failures
// themselves have already been printed.
func failedError(failed, total int) error {
	return fmt.Errorf("%d of %d files failed to compile", failed, total)
}
