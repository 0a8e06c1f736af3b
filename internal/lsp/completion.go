package lsp

import (
	"slices"
	"strings"
)

// keywordItems are the control-flow and declaration keywords of the
// template language, expanded as snippets.
var keywordItems = []CompletionItem{
	{
		Label:      "template",
		Kind:       CompletionItemKindSnippet,
		Detail:     "template declaration",
		InsertText: "template ${1:Name}(${2}) {\n\t$0\n}",
	},
	{
		Label:      "if",
		Kind:       CompletionItemKindKeyword,
		Detail:     "conditional block",
		InsertText: "if ${1:condition} {\n\t$0\n}",
	},
	{
		Label:      "else",
		Kind:       CompletionItemKindKeyword,
		Detail:     "alternative block",
		InsertText: "else {\n\t$0\n}",
	},
	{
		Label:      "for",
		Kind:       CompletionItemKindKeyword,
		Detail:     "loop over a sequence",
		InsertText: "for ${1:item} in ${2:items} {\n\t$0\n}",
	},
	{
		Label:      "while",
		Kind:       CompletionItemKindKeyword,
		Detail:     "conditional loop",
		InsertText: "while ${1:condition} {\n\t$0\n}",
	},
}

// getCompletions offers keywords and the templates declared in the
// document, filtered by the word being typed.
func (s *Server) getCompletions(params CompletionParams) []CompletionItem {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []CompletionItem{}
	}
	prefix := wordBefore(doc.GetTextBefore(params.Position))

	items := []CompletionItem{}
	for _, item := range keywordItems {
		if strings.HasPrefix(item.Label, prefix) {
			item.InsertTextFormat = InsertTextFormatSnippet
			item.SortText = "1" + item.Label
			items = append(items, item)
		}
	}

	file := parseDocument(doc)
	for _, t := range file.Templates() {
		if strings.HasPrefix(t.Name, prefix) {
			items = append(items, CompletionItem{
				Label:            t.Name,
				Kind:             CompletionItemKindFunction,
				Detail:           signature(t),
				SortText:         "0" + t.Name,
				InsertText:       t.Name,
				InsertTextFormat: InsertTextFormatPlainText,
			})
		}
	}

	slices.SortFunc(items, func(a, b CompletionItem) int {
		return strings.Compare(a.SortText, b.SortText)
	})
	return items
}

// wordBefore returns the identifier characters immediately preceding the
// end of text.
func wordBefore(text string) string {
	i := len(text)
	for i > 0 && isWordChar(text[i-1]) {
		i--
	}
	return text[i:]
}
