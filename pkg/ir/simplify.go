package ir

import "strings"

// Simplify merges adjacent literals at every nesting level. Branch and
// body lists are rewritten in place; the returned list replaces instrs.
//
// Afterwards no two Literal instructions are adjacent, and LiteralText of
// the result equals LiteralText of the input.
func Simplify(instrs []Instr) []Instr {
	out := make([]Instr, 0, len(instrs))

	var (
		pending *Literal
		text    strings.Builder
	)
	flush := func() {
		if pending == nil {
			return
		}
		pending.Text = text.String()
		if pending.Text != "" {
			out = append(out, pending)
		}
		pending = nil
		text.Reset()
	}

	for _, in := range instrs {
		switch in := in.(type) {
		case *Literal:
			if pending == nil {
				pending = &Literal{Span: in.Span}
			} else {
				pending.Span = pending.Span.Join(in.Span)
			}
			text.WriteString(in.Text)
			continue
		case *If:
			in.Then = Simplify(in.Then)
			in.Else = Simplify(in.Else)
		case *For:
			in.Body = Simplify(in.Body)
		case *While:
			in.Body = Simplify(in.Body)
		}
		flush()
		out = append(out, in)
	}
	flush()

	return out
}

// SimplifyProgram simplifies every template body of p.
func SimplifyProgram(p *Program) {
	for _, t := range p.Templates() {
		t.Body = Simplify(t.Body)
	}
}

// Adjacent reports the index of the first pair of adjacent literals in
// instrs or any nested list, or -1 if there is none.
func Adjacent(instrs []Instr) int {
	for i, in := range instrs {
		if i > 0 {
			_, a := instrs[i-1].(*Literal)
			_, b := in.(*Literal)
			if a && b {
				return i
			}
		}
		var nested [][]Instr
		switch in := in.(type) {
		case *If:
			nested = [][]Instr{in.Then, in.Else}
		case *For:
			nested = [][]Instr{in.Body}
		case *While:
			nested = [][]Instr{in.Body}
		}
		for _, list := range nested {
			if j := Adjacent(list); j >= 0 {
				return i
			}
		}
	}
	return -1
}
