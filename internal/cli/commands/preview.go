package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/config"
	"github.com/leapstack-labs/leaptmpl/internal/preview"
	"github.com/leapstack-labs/leaptmpl/internal/starlark"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [dir]",
		Short: "Serve rendered Starlark templates over HTTP",
		Long: `Start a local server that renders .stpl templates on request.

Every template is served at /<file>/<template>. Arguments come from a
sibling YAML file (page.stpl reads page.yaml) and from query parameters,
which take precedence. Output is streamed and flushed chunk by chunk.

With --watch, open pages reload when a template or data file changes.`,
		Example: `  # Serve templates below the current directory
  leaptmpl preview

  # Serve another directory on a fixed port without reloading
  leaptmpl preview views --port 9000 --watch=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runPreview(cmd, dir)
		},
	}

	cmd.Flags().Int("port", config.DefaultPreviewPort, "Port to listen on (0 picks a free port)")
	cmd.Flags().Bool("watch", config.DefaultPreviewWatch, "Reload open pages when templates change")

	return cmd
}

func runPreview(cmd *cobra.Command, dir string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	srv, err := preview.NewServer(preview.Config{
		Dir:       dir,
		Port:      cfg.Preview.Port,
		Watch:     cfg.Preview.Watch,
		ChunkSize: cfg.ChunkSize,
		Compiler:  cmdCtx.Compiler,
		Renderer:  starlark.NewRenderer(cfg.Starlark(cfg.Jobs), cmdCtx.Logger),
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return srv.Serve(cmd.Context())
}
