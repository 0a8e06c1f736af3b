package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var (
		template string
		dataFile string
		sets     []string
	)

	cmd := &cobra.Command{
		Use:   "render <file.stpl>",
		Short: "Render a Starlark-hosted template to stdout",
		Long: `Render a template from a .stpl file and stream the output to stdout.

Arguments come from a YAML data file and --set assignments, which take
precedence. Output is written chunk by chunk as the template produces it,
through the configured bridge.`,
		Example: `  # Render the only template in a file
  leaptmpl render card.stpl --set title=Hello

  # Pick a template and read arguments from a file
  leaptmpl render pages.stpl -t Index -d pages.yaml

  # Typed values: numbers and booleans are parsed as YAML scalars
  leaptmpl render list.stpl --set count=3 --set show=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], template, dataFile, sets)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Template to render (default: the file's only template)")
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "YAML file holding template arguments")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set an argument (key=value, repeatable)")

	return cmd
}

func runRender(cmd *cobra.Command, path, template, dataFile string, sets []string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	if filepath.Ext(path) != compile.ExtStarlark {
		return fmt.Errorf("%s: only %s templates can be rendered; run generate for %s files", path, compile.ExtStarlark, compile.ExtGo)
	}

	res, err := cmdCtx.Compiler.Path(path)
	if err != nil {
		var derr *diag.Error
		if errors.As(err, &derr) {
			cmdCtx.ReportFailures([]*compile.Result{res})
			return fmt.Errorf("%s: compilation failed with %d diagnostics", path, len(derr.Diagnostics))
		}
		return err
	}

	name, err := pickTemplate(res.Program, template)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	data := map[string]any{}
	if dataFile != "" {
		if data, err = starlark.LoadData(dataFile); err != nil {
			return err
		}
	}
	for _, s := range sets {
		if err := starlark.SetValue(data, s); err != nil {
			return err
		}
	}

	params, _ := res.Program.Params(name)
	if missing := starlark.Missing(params, data); len(missing) > 0 {
		return fmt.Errorf("template %s: missing arguments: %s", name, strings.Join(missing, ", "))
	}

	renderer := starlark.NewRenderer(cfg.Starlark(cfg.Jobs), cmdCtx.Logger)
	st, err := renderer.Render(cmd.Context(), res.Program, name, data)
	if err != nil {
		return err
	}
	n, err := stream.WriteTo(cmdCtx.Out, stream.Coalesce(st, cfg.ChunkSize))
	cmdCtx.Logger.Debug("rendered", "file", path, "template", name, "bytes", n)
	return err
}

// pickTemplate returns name when the program defines it, or the program's
// only template when name is empty.
func pickTemplate(prog *starlark.Program, name string) (string, error) {
	templates := prog.Templates()
	if name != "" {
		if _, ok := prog.Params(name); !ok {
			return "", fmt.Errorf("template %q not found (have %s)", name, strings.Join(templates, ", "))
		}
		return name, nil
	}
	switch len(templates) {
	case 0:
		return "", errors.New("no templates defined")
	case 1:
		return templates[0], nil
	}
	return "", fmt.Errorf("%d templates defined, pick one with --template: %s", len(templates), strings.Join(templates, ", "))
}
