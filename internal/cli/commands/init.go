package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/config"
)

//go:embed all:scaffold
var scaffoldFS embed.FS

const scaffoldRoot = "scaffold"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leaptmpl project",
		Long: `Initialize a new leaptmpl project with a configuration file and
example templates.

This creates:
  - leaptmpl.yaml configuration file
  - views/page.gtpl, a Go-hosted template
  - views/card.stpl and views/card.yaml, a Starlark-hosted template
    with preview data`,
		Example: `  # Initialize in current directory
  leaptmpl init

  # Initialize in a new directory
  leaptmpl init my-site

  # Force overwrite existing files
  leaptmpl init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := cmd.OutOrStdout()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	created, err := copyScaffold(dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	for _, f := range created {
		_, _ = fmt.Fprintf(out, "  created %s\n", f)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "leaptmpl project initialized!")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Next steps:")
	_, _ = fmt.Fprintln(out, "  leaptmpl generate   Write views/page.gtpl.go")
	_, _ = fmt.Fprintln(out, "  leaptmpl check      Report diagnostics for every template")
	_, _ = fmt.Fprintln(out, "  leaptmpl preview    Browse the Starlark templates")

	return nil
}

// copyScaffold copies the embedded project files into dir and returns the
// files written, relative to dir. Existing files are kept unless force.
func copyScaffold(dir string, force bool) ([]string, error) {
	var created []string
	err := fs.WalkDir(scaffoldFS, scaffoldRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := p[len(scaffoldRoot):]
		if rel == "" {
			return nil
		}
		rel = path.Clean(rel[1:])
		target := filepath.Join(dir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := scaffoldFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return err
		}
		created = append(created, rel)
		return nil
	})
	return created, err
}
