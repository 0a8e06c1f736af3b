package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/internal/cli"
	"github.com/leapstack-labs/leaptmpl/internal/cli/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leaptmpl")
}

// TestInitGenerateRender walks a new project through the main workflow.
func TestInitGenerateRender(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(config.ResetConfig)

	_, err := run(t, "init")
	require.NoError(t, err)

	out, err := run(t, "generate")
	require.NoError(t, err, out)
	generated, err := os.ReadFile(filepath.Join(dir, "views", "page.gtpl.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(generated), "// Code generated by leaptmpl. DO NOT EDIT."), string(generated[:min(80, len(generated))]))

	out, err = run(t, "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "card.stpl")

	out, err = run(t, "render", "views/card.stpl", "-d", "views/card.yaml", "--set", "role=<lead>")
	require.NoError(t, err, out)
	assert.Contains(t, out, "<p>&lt;lead&gt;</p>")
}
