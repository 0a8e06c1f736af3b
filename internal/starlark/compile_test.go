package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/pkg/ir"
	"github.com/leapstack-labs/leaptmpl/pkg/parser"
)

func compile(t *testing.T, src string) *Program {
	t.Helper()
	f, diags := parser.ParseFile("page.stpl", []byte(src), parser.HashComments)
	require.Zero(t, diags.Len(), "unexpected diagnostics: %v", diags.All())
	prog := ir.LowerFile(f)
	ir.SimplifyProgram(prog)
	p, err := Compile(prog)
	require.NoError(t, err)
	return p
}

func TestCompile_Source(t *testing.T) {
	src := `# helpers
def shout(s):
    return s.upper()

template Page(title, items=[]) {
	<h1>(shout(title))</h1>
	if items {
		for i, it in enumerate(items) { <li>(it)</li> }
	} else if title {
		{ n = len(title) }
	} else {}
	while False {}
}
`
	want := `# helpers
def shout(s):
    return s.upper()

def __template_Page(title, items=[]):
    __emit("<h1>")
    __value((shout(title)))
    __emit("</h1>")
    if (items):
        for i, it in (enumerate(items)):
            __emit("<li>")
            __value((it))
            __emit("</li>")
    elif (title):
        n = len(title)
    else:
        pass
    while (False):
        pass
`
	p := compile(t, src)
	assert.Equal(t, want, p.Source)
	assert.Equal(t, []string{"Page"}, p.Templates())

	params, ok := p.Params("Page")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "items"}, params.Names)
	assert.Equal(t, []string{"title"}, params.Required)
	assert.False(t, params.Kwargs)

	require.NoError(t, p.Check())
}

func TestCompile_EmptyTemplate(t *testing.T) {
	p := compile(t, "template Empty() {}\n")
	assert.Equal(t, "def __template_Empty():\n    pass\n", p.Source)
}

func TestCompile_CodeBlockKeepsNesting(t *testing.T) {
	src := "template T(xs) {\n\t{\n\t\ttotal = 0\n\t\tfor x in xs:\n\t\t    total += x\n\t}\n\t(str(total))\n}\n"
	p := compile(t, src)
	assert.Contains(t, p.Source, "    total = 0\n    for x in xs:\n        total += x\n")
	require.NoError(t, p.Check())
}

func TestCompile_Params(t *testing.T) {
	tests := []struct {
		params   string
		names    []string
		required []string
		kwargs   bool
	}{
		{"", nil, nil, false},
		{"a, b", []string{"a", "b"}, []string{"a", "b"}, false},
		{"a, b=1", []string{"a", "b"}, []string{"a"}, false},
		{"a, **rest", []string{"a"}, []string{"a"}, true},
		{"*args", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.params, func(t *testing.T) {
			p := compile(t, "template T("+tt.params+") {}\n")
			params, ok := p.Params("T")
			require.True(t, ok)
			assert.Equal(t, tt.names, params.Names)
			assert.Equal(t, tt.required, params.Required)
			assert.Equal(t, tt.kwargs, params.Kwargs)
		})
	}
}

func TestCompile_InvalidParams(t *testing.T) {
	f, diags := parser.ParseFile("page.stpl", []byte("\ntemplate T(a b) {}\n"), parser.HashComments)
	require.Zero(t, diags.Len())

	_, err := Compile(ir.LowerFile(f))
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Pos.Line)
	assert.Equal(t, "T", renderErr.Template)
	assert.Contains(t, renderErr.Msg, "invalid parameters")
}

func TestProgram_Position(t *testing.T) {
	src := "template T(name) {\n\t\"hi\"\n\t(name.nope)\n}\n"
	p := compile(t, src)

	// Generated line 3 is `    __value((name.nope))`; column 14 is `n`.
	pos := p.Position(3, 14)
	assert.Equal(t, "page.stpl", pos.File)
	assert.Equal(t, 3, pos.Line)
	assert.Equal(t, 3, pos.Column)

	pos = p.Position(3, 18)
	assert.Equal(t, 7, pos.Column, "offset within the expression carries over")

	assert.Equal(t, 0, p.Position(99, 1).Line)
}

func TestCompile_SyntaxErrorPosition(t *testing.T) {
	p := compile(t, "template T() {\n\t\"a\"\n\t{ x = = 1 }\n}\n")

	err := p.Check()
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "page.stpl", renderErr.Pos.File)
	assert.Equal(t, 3, renderErr.Pos.Line)
}

func TestCompile_UndefinedNamePosition(t *testing.T) {
	p := compile(t, "template T() {\n\t\"a\"\n\n\t(undefined_name)\n}\n")

	err := p.Check()
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 4, renderErr.Pos.Line)
	assert.Contains(t, renderErr.Msg, "undefined_name")
}

func TestDedent(t *testing.T) {
	assert.Equal(t, []string{"a = 1", "b = 2"}, dedent("a = 1\n    b = 2", 5))
	assert.Equal(t, []string{"if x:", "    y = 1"}, dedent("if x:\n        y = 1", 5))
	assert.Equal(t, []string{"a", "b"}, dedent("a\nb", 9), "lines with less indentation are kept")
}
