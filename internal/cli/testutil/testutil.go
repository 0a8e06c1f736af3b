// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// PageTemplate is the Go-hosted template of a test project.
const PageTemplate = `package views

template Page(title string, items []string) {
	<h1>(title)</h1>
	<ul>
		for item in items {
			<li>(item)</li>
		}
	</ul>
}
`

// CardTemplate is the Starlark-hosted template of a test project.
const CardTemplate = `# Cards.

def initials(name):
    return "".join([w[0].upper() for w in name.split(" ") if w])

template Card(name, role="member") {
	<div class="card"><b>(initials(name))</b> (name) ", " (role)</div>
}

template Boom() {
	"before"
	(str(1 // 0))
}
`

// CardData is the data file of CardTemplate.
const CardData = "name: Ada Lovelace\nrole: engineer\n"

// SetupTestProject creates a temporary project with a config file, a
// Go-hosted template and a Starlark-hosted template with its data file.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	WriteFile(t, dir, "leaptmpl.yaml", "escape: html\njobs: 2\n")
	WriteFile(t, dir, "views/page.gtpl", PageTemplate)
	WriteFile(t, dir, "views/card.stpl", CardTemplate)
	WriteFile(t, dir, "views/card.yaml", CardData)
	return dir
}

// WriteFile writes content to name below dir, creating directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ExecuteCommand runs cmd with args and returns what it wrote to its
// output and error streams. Usage and error printing are silenced the
// same way the root command silences them.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from s.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
