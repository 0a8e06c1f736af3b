package lsp

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/parser"
)

// parseDocument parses doc with the comment syntax of its host. Parsing
// recovers from errors, so a partial file is returned for broken input.
func parseDocument(doc *Document) *ast.File {
	path := URIToPath(doc.URI)
	var mode parser.Mode
	if host, _ := compile.HostFor(path); host == compile.HostStarlark {
		mode |= parser.HashComments
	}
	file, _ := parser.ParseFile(path, []byte(doc.Content), mode)
	return file
}

func signature(t *ast.Template) string {
	return fmt.Sprintf("template %s(%s)", t.Name, strings.TrimSpace(t.Params.Text))
}

// templateAt returns the template whose name is under pos.
func (s *Server) templateAt(uri string, pos Position) (*ast.Template, Range, bool) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return nil, Range{}, false
	}
	word, wordRange := doc.GetWordAtPosition(pos)
	if word == "" {
		return nil, Range{}, false
	}
	t, ok := parseDocument(doc).Lookup(word)
	return t, wordRange, ok
}

// getHover shows the signature of the template named under the cursor.
func (s *Server) getHover(params HoverParams) *Hover {
	t, r, ok := s.templateAt(params.TextDocument.URI, params.Position)
	if !ok {
		return nil
	}
	host, _ := compile.HostFor(URIToPath(params.TextDocument.URI))
	lang := "go"
	if host == compile.HostStarlark {
		lang = "python"
	}
	return &Hover{
		Contents: MarkupContent{
			Kind:  MarkupKindMarkdown,
			Value: fmt.Sprintf("```%s\n%s\n```", lang, signature(t)),
		},
		Range: &r,
	}
}

// getDefinition resolves a template name to its declaration in the same
// document.
func (s *Server) getDefinition(params DefinitionParams) *Location {
	t, _, ok := s.templateAt(params.TextDocument.URI, params.Position)
	if !ok {
		return nil
	}
	return &Location{URI: params.TextDocument.URI, Range: toRange(t.NameSpan)}
}

// getDocumentSymbols lists the templates declared in a document.
func (s *Server) getDocumentSymbols(params DocumentSymbolParams) []DocumentSymbol {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []DocumentSymbol{}
	}
	symbols := []DocumentSymbol{}
	for _, t := range parseDocument(doc).Templates() {
		symbols = append(symbols, DocumentSymbol{
			Name:           t.Name,
			Detail:         signature(t),
			Kind:           SymbolKindFunction,
			Range:          toRange(t.Span()),
			SelectionRange: toRange(t.NameSpan),
		})
	}
	return symbols
}
