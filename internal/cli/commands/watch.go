package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Regenerate templates when they change",
		Long: `Generate all templates once, then watch for changes and regenerate
the files that changed.

The directories holding the given paths are watched recursively. Changed
.gtpl files are regenerated and changed .stpl files are checked; every
diagnostic is reported. Stop with Ctrl-C.`,
		Example: `  # Watch everything below the current directory
  leaptmpl watch

  # Watch one directory tree
  leaptmpl watch views/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	paths, err := cmdCtx.Collect(args, compile.ExtGo, compile.ExtStarlark)
	if err != nil {
		return err
	}
	out, err := generateFiles(ctx, cmdCtx, paths)
	if err != nil {
		return err
	}
	printWatchSummary(cmdCtx, out)

	w := &compile.Watcher{
		Roots:  watchRoots(args),
		Logger: cmdCtx.Logger,
	}
	cmdCtx.Logger.Info("watching for changes", "roots", w.Roots)

	return w.Watch(ctx, func(changed []string) {
		cwd, _ := os.Getwd()
		for i, p := range changed {
			if rel, err := filepath.Rel(cwd, p); err == nil && filepath.IsLocal(rel) {
				changed[i] = rel
			}
		}
		cmdCtx.Logger.Debug("templates changed", "files", changed)

		out, err := generateFiles(ctx, cmdCtx, changed)
		if err != nil {
			if ctx.Err() == nil {
				_, _ = fmt.Fprintf(cmdCtx.Err, "error: %v\n", err)
			}
			return
		}
		printWatchSummary(cmdCtx, out)
	})
}

func printWatchSummary(cmdCtx *CommandContext, out *GenerateOutput) {
	_, _ = fmt.Fprintf(cmdCtx.Out, "generated %d files (%d unchanged, %d failed)\n",
		len(out.Written), len(out.Unchanged), len(out.Failed))
}

// watchRoots returns the directories to watch for path patterns: the
// pattern's directory for recursive patterns and directories, and the
// parent for files.
func watchRoots(patterns []string) []string {
	if len(patterns) == 0 {
		return []string{"."}
	}
	seen := map[string]bool{}
	var roots []string
	for _, p := range patterns {
		dir := strings.TrimSuffix(strings.TrimSuffix(p, "..."), "/")
		if dir == "" {
			dir = "."
		}
		if st, err := os.Stat(dir); err == nil && !st.IsDir() {
			dir = filepath.Dir(dir)
		}
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}
	return roots
}
