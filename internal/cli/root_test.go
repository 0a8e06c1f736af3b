package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/internal/cli/commands"
	"github.com/leapstack-labs/leaptmpl/internal/cli/config"
	"github.com/leapstack-labs/leaptmpl/internal/cli/testutil"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	return dir
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "--help")
	require.NoError(t, err)
	for _, want := range []string{"generate", "check", "render", "watch", "preview", "lsp", "init", "version", "completion"} {
		assert.Contains(t, stdout, want)
	}
}

func TestRootCommand_Version(t *testing.T) {
	setup(t)
	stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leaptmpl v"+Version)

	stdout, _, err = testutil.ExecuteCommand(t, NewRootCmd(), "--version")
	require.NoError(t, err)
	assert.Equal(t, "leaptmpl "+Version+"\n", stdout)
}

func TestRootCommand_Generate(t *testing.T) {
	dir := setup(t)

	stdout, stderr, err := testutil.ExecuteCommand(t, NewRootCmd(), "generate", "--item-type", "bytes", "--line-directives")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "generated 1 files")

	out, err := os.ReadFile(filepath.Join(dir, "views", "page.gtpl.go"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "stream.Stream[[]byte]")
	assert.Contains(t, string(out), "/*line ")
}

func TestRootCommand_VerboseLogs(t *testing.T) {
	setup(t)

	_, stderr, err := testutil.ExecuteCommand(t, NewRootCmd(), "check", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, `msg="using config file"`)
	assert.Contains(t, stderr, `msg="compiled templates" files=2 failed=0`)

	config.ResetConfig()
	_, stderr, err = testutil.ExecuteCommand(t, NewRootCmd(), "check")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "level=DEBUG")
}

func TestRootCommand_CheckJSONFromEnv(t *testing.T) {
	setup(t)
	t.Setenv("LEAPTMPL_OUTPUT", "json")

	stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "check", "views/...")
	require.NoError(t, err)

	var out commands.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Len(t, out.Files, 2)
	assert.Zero(t, out.Failed)
}

func TestRootCommand_Render(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "escaped by default",
			args: []string{"render", "views/card.stpl", "-t", "Card", "--set", "name=<x>"},
			want: "&lt;x&gt;",
		},
		{
			name: "escape flag",
			args: []string{"render", "views/card.stpl", "-t", "Card", "--set", "name=<x>", "--escape", "none"},
			want: "<x>, member",
		},
		{
			name: "channel bridge with coalescing",
			args: []string{"render", "views/card.stpl", "-t", "Card", "-d", "views/card.yaml", "--bridge", "channel", "--chunk-size", "64"},
			want: "Ada Lovelace",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			stdout, stderr, err := testutil.ExecuteCommand(t, NewRootCmd(), tt.args...)
			require.NoError(t, err, stderr)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestRootCommand_MaxSteps(t *testing.T) {
	dir := setup(t)
	testutil.WriteFile(t, dir, "loop.stpl", "template Spin() {\n\twhile True {\n\t\t\"x\"\n\t}\n}\n")

	_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "render", "loop.stpl", "--max-steps", "1000")
	assert.ErrorContains(t, err, "too many steps")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"flag", []string{"check", "--bridge", "pigeon"}, "invalid configuration"},
		{"color", []string{"check", "--color", "rainbow"}, "invalid color"},
		{"explicit file", []string{"check", "--config", "missing.yaml"}, "missing.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, stdout, "leaptmpl")
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"unknown-command"})
	assert.Error(t, cmd.Execute())
}
