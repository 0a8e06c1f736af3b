// Package cli provides the command-line interface for leaptmpl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptmpl/internal/cli/commands"
	"github.com/leapstack-labs/leaptmpl/internal/cli/config"
	sharedcfg "github.com/leapstack-labs/leaptmpl/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leaptmpl",
		Short: "leaptmpl - streaming HTML template compiler",
		Long: `leaptmpl compiles templates that mix HTML markup with host-language code.

Templates in .gtpl files are compiled into Go functions returning a stream
of output chunks. Templates in .stpl files are hosted by Starlark and can
be rendered directly or previewed in a browser.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: leaptmpl.yaml in the project root)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (text|json)")
	flags.String("color", "", "Colorize diagnostics (auto|always|never)")
	flags.String("escape", "", "Escaping of computed values (html|none)")
	flags.String("item-type", "", "Chunk type of generated streams (string|bytes)")
	flags.String("bridge", "", "Producer/consumer bridge (cooperative|channel)")
	flags.Bool("line-directives", false, "Emit line directives mapping generated Go back to templates")
	flags.IntP("jobs", "j", 0, "Files compiled concurrently")
	flags.Int("chunk-size", 0, "Coalesce rendered output into chunks of at least this many bytes")
	flags.Uint64("max-steps", 0, "Starlark execution step limit per render (0 for none)")

	completions := map[string][]string{
		"output":    {sharedcfg.OutputText, sharedcfg.OutputJSON},
		"color":     {sharedcfg.ColorAuto, sharedcfg.ColorAlways, sharedcfg.ColorNever},
		"escape":    {"html", "none"},
		"item-type": {"string", "bytes"},
		"bridge":    {"cooperative", "channel"},
	}
	for flag, values := range completions {
		_ = rootCmd.RegisterFlagCompletionFunc(flag, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewLSPCommand(Version))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leaptmpl.

To load completions:

Bash:
  $ source <(leaptmpl completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leaptmpl completion bash > /etc/bash_completion.d/leaptmpl
  # macOS:
  $ leaptmpl completion bash > $(brew --prefix)/etc/bash_completion.d/leaptmpl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leaptmpl completion zsh > "${fpath[1]}/_leaptmpl"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leaptmpl completion fish | source

  # To load completions for each session, execute once:
  $ leaptmpl completion fish > ~/.config/fish/completions/leaptmpl.fish

PowerShell:
  PS> leaptmpl completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> leaptmpl completion powershell > leaptmpl.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
