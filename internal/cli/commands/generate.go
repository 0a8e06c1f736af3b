package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
)

// GenerateOutput is the JSON form of a generate run.
type GenerateOutput struct {
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
	Failed    []string `json:"failed"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Generate Go code from .gtpl templates",
		Long: `Compile Go-hosted templates and write <file>.gtpl.go next to each one.

Paths may be files, directories, or recursive patterns ending in /...
With no paths, every .gtpl file below the current directory is compiled.
A file with diagnostics is never written; every diagnostic is reported.`,
		Example: `  # Generate everything below the current directory
  leaptmpl generate

  # Generate one directory tree with byte-slice output
  leaptmpl generate views/... --item-type bytes

  # Generate a single file
  leaptmpl generate views/page.gtpl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args)
		},
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	paths, err := cmdCtx.Collect(args, compile.ExtGo)
	if err != nil {
		return err
	}
	out, err := generateFiles(cmd.Context(), cmdCtx, paths)
	if err != nil {
		return err
	}

	if cmdCtx.JSON() {
		if err := cmdCtx.WriteJSON(out); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(cmdCtx.Out, "generated %d files (%d unchanged)\n", len(out.Written), len(out.Unchanged))
	}

	if len(out.Failed) > 0 {
		return failedError(len(out.Failed), len(paths))
	}
	return nil
}

// generateFiles compiles paths and writes the output of every file that
// compiled. Failures are reported on the error stream and listed in the
// result; the returned error is for failures to write or cancellation.
func generateFiles(ctx context.Context, cmdCtx *CommandContext, paths []string) (*GenerateOutput, error) {
	out := &GenerateOutput{
		Written:   []string{},
		Unchanged: []string{},
		Failed:    []string{},
	}

	results, _ := cmdCtx.Compiler.Batch(ctx, paths)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmdCtx.ReportFailures(results)

	for _, r := range results {
		if r.Err != nil {
			out.Failed = append(out.Failed, r.Path)
			continue
		}
		if r.OutputPath() == "" {
			continue
		}
		changed, err := compile.Write(r)
		if err != nil {
			return nil, err
		}
		if changed {
			cmdCtx.Logger.Debug("wrote", "file", r.OutputPath())
			out.Written = append(out.Written, r.OutputPath())
		} else {
			out.Unchanged = append(out.Unchanged, r.OutputPath())
		}
	}
	return out, nil
}
