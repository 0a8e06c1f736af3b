package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
)

// CheckOutput is the JSON form of a check run.
type CheckOutput struct {
	Files  []CheckFile `json:"files"`
	Failed int         `json:"failed"`
}

// CheckFile is the check result of one template file.
type CheckFile struct {
	Path        string            `json:"path"`
	Host        string            `json:"host"`
	Templates   []string          `json:"templates"`
	Diagnostics []CheckDiagnostic `json:"diagnostics,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// CheckDiagnostic is one diagnostic in JSON form.
type CheckDiagnostic struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report every diagnostic without writing output",
		Long: `Parse and compile templates of both hosts and report every diagnostic.

Nothing is written. Each file is listed in a summary table with its
templates and the number of diagnostics of each kind.`,
		Example: `  # Check every template below the current directory
  leaptmpl check

  # Check one directory, machine readable
  leaptmpl check views/... --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	paths, err := cmdCtx.Collect(args, compile.ExtGo, compile.ExtStarlark)
	if err != nil {
		return err
	}
	results, err := cmdCtx.Compiler.Batch(cmd.Context(), paths)
	if ctxErr := cmd.Context().Err(); ctxErr != nil {
		return ctxErr
	}

	failed := 0
	if cmdCtx.JSON() {
		out := CheckOutput{Files: make([]CheckFile, 0, len(results))}
		for _, r := range results {
			f := checkFile(r)
			if r.Err != nil {
				failed++
			}
			out.Files = append(out.Files, f)
		}
		out.Failed = failed
		if err := cmdCtx.WriteJSON(out); err != nil {
			return err
		}
	} else {
		failed = cmdCtx.ReportFailures(results)
		renderCheckTable(cmdCtx, results)
	}

	if err != nil {
		return failedError(failed, len(paths))
	}
	return nil
}

func renderCheckTable(cmdCtx *CommandContext, results []*compile.Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(cmdCtx.Out, "no template files found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmdCtx.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Host", "Templates", "Status"})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		t.AppendRow(table.Row{r.Path, string(r.Host), strings.Join(r.Templates, ", "), checkStatus(r)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(results)), "", "", fmt.Sprintf("%d failed", failed)})
	t.Render()
}

// checkStatus summarizes a result for the table: "ok", the diagnostic
// counts per kind, or "error" for failures without diagnostics.
func checkStatus(r *compile.Result) string {
	if r.Err == nil {
		return "ok"
	}
	if len(r.Diagnostics) == 0 {
		return "error"
	}

	titleCaser := cases.Title(language.English)
	var parts []string
	for _, kind := range []diag.Kind{diag.Syntax, diag.MismatchedTag, diag.MissingBlock, diag.Lexical} {
		n := 0
		for _, d := range r.Diagnostics {
			if d.Kind == kind {
				n++
			}
		}
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, titleCaser.String(kind.String())))
		}
	}
	return strings.Join(parts, ", ")
}

func checkFile(r *compile.Result) CheckFile {
	f := CheckFile{
		Path:      r.Path,
		Host:      string(r.Host),
		Templates: r.Templates,
	}
	if f.Templates == nil {
		f.Templates = []string{}
	}
	for _, d := range r.Diagnostics {
		f.Diagnostics = append(f.Diagnostics, CheckDiagnostic{
			Kind:    d.Kind.String(),
			Line:    d.Span.Start.Line,
			Column:  d.Span.Start.Column,
			Message: d.Message,
		})
	}
	var derr *diag.Error
	if r.Err != nil && !errors.As(r.Err, &derr) {
		f.Error = r.Err.Error()
	}
	return f
}
