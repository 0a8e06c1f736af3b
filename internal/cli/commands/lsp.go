package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the template language server",
		Long: `Start a Language Server Protocol server on stdin/stdout.

The server compiles open .gtpl and .stpl documents as they change and
publishes their diagnostics. It also offers keyword and template name
completion, hover, go to definition and a document outline.
Logs are written to stderr.`,
		Example: `  # Configure your editor to run:
  leaptmpl lsp

  # With debug logging
  leaptmpl lsp -v 2> lsp.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			server := lsp.NewServer(cmd.InOrStdin(), cmdCtx.Out, cmdCtx.Compiler, cmdCtx.Logger)
			server.SetVersion(version)
			return server.Run(cmd.Context())
		},
	}
}
