package diag

import (
	"fmt"
	"strings"
)

// List is an ordered accumulator of diagnostics. The zero value is ready to
// use. A List is not safe for concurrent use; each compilation owns one.
type List struct {
	items []*Diagnostic
}

// Add appends d. Nil diagnostics are ignored.
func (l *List) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	l.items = append(l.items, d)
}

// Len returns the number of diagnostics recorded.
func (l *List) Len() int {
	return len(l.items)
}

// All returns the diagnostics in the order they were recorded.
func (l *List) All() []*Diagnostic {
	return l.items
}

// Count returns the number of diagnostics of kind k.
func (l *List) Count(k Kind) int {
	n := 0
	for _, d := range l.items {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Err returns an *Error holding every diagnostic, or nil if there are none.
func (l *List) Err() error {
	if len(l.items) == 0 {
		return nil
	}
	out := make([]*Diagnostic, len(l.items))
	copy(out, l.items)
	return &Error{Diagnostics: out}
}

// Error reports all diagnostics of one compilation.
type Error struct {
	Diagnostics []*Diagnostic
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		sb.WriteString("\n\t")
		sb.WriteString(d.Error())
	}
	return sb.String()
}

// Unwrap exposes each diagnostic to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}
