package lsp

import (
	"errors"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

const diagnosticSource = "leaptmpl"

// publishDiagnostics compiles the document and publishes every problem
// found. Documents that are not template files are ignored.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	path := URIToPath(uri)
	if _, ok := compile.HostFor(path); !ok {
		return
	}

	res, _ := s.compiler.File(path, []byte(doc.Content))
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: resultDiagnostics(uri, res),
	})
}

// resultDiagnostics converts the outcome of a compilation. Structural
// diagnostics map one to one; any other failure becomes a single entry.
func resultDiagnostics(uri string, res *compile.Result) []Diagnostic {
	out := make([]Diagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, convertDiagnostic(uri, d))
	}

	var structural *diag.Error
	if res.Err == nil || errors.As(res.Err, &structural) {
		return out
	}

	var renderErr *starlark.RenderError
	if errors.As(res.Err, &renderErr) {
		return append(out, Diagnostic{
			Range:    toRange(token.Span{Start: renderErr.Pos}),
			Severity: DiagnosticSeverityError,
			Code:     "starlark",
			Source:   diagnosticSource,
			Message:  renderErr.Msg,
		})
	}
	return append(out, Diagnostic{
		Range:    toRange(token.Span{}),
		Severity: DiagnosticSeverityError,
		Code:     "codegen",
		Source:   diagnosticSource,
		Message:  res.Err.Error(),
	})
}

// convertDiagnostic converts d, found in the document at uri. Notes that
// point into another file are located by that file's URI.
func convertDiagnostic(uri string, d *diag.Diagnostic) Diagnostic {
	msg := d.Message
	if d.Help != "" {
		msg += "\nhelp: " + d.Help
	}
	out := Diagnostic{
		Range:    toRange(d.Span),
		Severity: DiagnosticSeverityError,
		Code:     d.Kind.String(),
		Source:   diagnosticSource,
		Message:  msg,
	}
	path := URIToPath(uri)
	for _, n := range d.Notes {
		noteURI := uri
		if file := n.Span.Start.File; file != "" && file != path {
			noteURI = PathToURI(file)
		}
		out.RelatedInformation = append(out.RelatedInformation, DiagnosticRelatedInformation{
			Location: Location{URI: noteURI, Range: toRange(n.Span)},
			Message:  n.Message,
		})
	}
	return out
}
