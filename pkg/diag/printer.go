package diag

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Styles holds the lipgloss styles used to render diagnostics.
type Styles struct {
	Error    lipgloss.Style
	Location lipgloss.Style
	Gutter   lipgloss.Style
	Caret    lipgloss.Style
	Note     lipgloss.Style
	Help     lipgloss.Style
}

// Printer renders diagnostics with a source excerpt, rustc style:
//
//	error[mismatched-tag]: mismatched closing tag: expected `</div>`, found `</span>`
//	  --> page.gtpl:3:3
//	   |
//	 3 | </span>
//	   |   ^^^^
//	   = note: `<div>` opened here (page.gtpl:1:2)
//	   = help: if `<div>` has no closing tag, it may need to be a void element
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter creates a printer writing to w. When color is false every
// style renders as plain text.
func NewPrinter(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w: w,
		styles: Styles{
			Error:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Location: r.NewStyle().Foreground(lipgloss.Color("12")),
			Gutter:   r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
			Caret:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Note:     r.NewStyle().Foreground(lipgloss.Color("14")),
			Help:     r.NewStyle().Foreground(lipgloss.Color("10")),
		},
	}
}

// PrintAll renders every diagnostic in order, followed by a summary line.
func (p *Printer) PrintAll(src []byte, diags []*Diagnostic) {
	for _, d := range diags {
		p.Print(src, d)
	}
	if n := len(diags); n > 0 {
		word := "errors"
		if n == 1 {
			word = "error"
		}
		_, _ = fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf("%d %s", n, word)))
	}
}

// Print renders one diagnostic. src may be nil, in which case the excerpt
// is omitted.
func (p *Printer) Print(src []byte, d *Diagnostic) {
	s := p.styles
	_, _ = fmt.Fprintf(p.w, "%s: %s\n", s.Error.Render("error["+d.Kind.String()+"]"), d.Message)

	line := d.Span.Start.Line
	width := len(strconv.Itoa(line))
	pad := strings.Repeat(" ", width)

	_, _ = fmt.Fprintf(p.w, "%s%s %s\n", pad, s.Gutter.Render("-->"), s.Location.Render(d.Span.Start.String()))

	if text, ok := sourceLine(src, d.Span.Start); ok {
		bar := s.Gutter.Render("|")
		_, _ = fmt.Fprintf(p.w, "%s %s\n", pad, bar)
		_, _ = fmt.Fprintf(p.w, "%s %s %s\n", s.Gutter.Render(strconv.Itoa(line)), bar, text)
		_, _ = fmt.Fprintf(p.w, "%s %s %s%s\n", pad, bar,
			strings.Repeat(" ", d.Span.Start.Column-1),
			s.Caret.Render(strings.Repeat("^", caretWidth(src, d.Span, text))))
	}

	for _, n := range d.Notes {
		_, _ = fmt.Fprintf(p.w, "%s %s %s %s\n", pad, s.Gutter.Render("="),
			s.Note.Render("note:"), noteText(n))
	}
	if d.Help != "" {
		_, _ = fmt.Fprintf(p.w, "%s %s %s %s\n", pad, s.Gutter.Render("="), s.Help.Render("help:"), d.Help)
	}
}

func noteText(n Note) string {
	if !n.Span.IsValid() {
		return n.Message
	}
	return fmt.Sprintf("%s (%s)", n.Message, n.Span.Start)
}

// sourceLine returns the text of the line containing pos, without the
// trailing newline.
func sourceLine(src []byte, pos token.Position) (string, bool) {
	if src == nil || !pos.IsValid() || pos.Offset > len(src) {
		return "", false
	}
	start := pos.Offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := pos.Offset
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return strings.TrimRight(string(src[start:end]), "\r"), true
}

// caretWidth is the number of runes of span that fall on its first line,
// at least one.
func caretWidth(src []byte, span token.Span, line string) int {
	if span.Len() <= 0 || span.End.Line != span.Start.Line {
		rest := utf8.RuneCountInString(line) - (span.Start.Column - 1)
		if span.Len() > 0 && rest > 0 {
			return rest
		}
		return 1
	}
	return max(1, utf8.RuneCount(src[span.Start.Offset:span.End.Offset]))
}
