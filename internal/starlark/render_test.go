package starlark

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/leaptmpl/internal/testutil"
	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

func renderString(t *testing.T, opts Options, src, name string, data map[string]any) (string, error) {
	t.Helper()
	r := NewRenderer(opts, testutil.NewTestLogger(t))
	s, err := r.Render(context.Background(), compile(t, src), name, data)
	require.NoError(t, err)
	return stream.String(s)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{
			name: "text and value",
			src:  `template T(variable) { "hello world" (variable) }`,
			data: map[string]any{"variable": "hi"},
			want: "hello worldhi",
		},
		{
			name: "label round trip",
			src:  `template T() { <label for="test"></label> }`,
			want: `<label for="test"></label>`,
		},
		{
			name: "if true",
			src:  `template T(condition, variable) { if condition { "true" (variable) } }`,
			data: map[string]any{"condition": true, "variable": "hi"},
			want: "truehi",
		},
		{
			name: "if false",
			src:  `template T(condition, variable) { if condition { "true" (variable) } }`,
			data: map[string]any{"condition": false, "variable": "hi"},
			want: "",
		},
		{
			name: "else if",
			src:  `template T(n) { if n == 1 { "one" } else if n == 2 { "two" } else { "many" } }`,
			data: map[string]any{"n": 2},
			want: "two",
		},
		{
			name: "for",
			src:  `template T() { for row in ["abc","def","ghi"] { "true" (row) } }`,
			want: "trueabctruedeftrueghi",
		},
		{
			name: "for with two names",
			src:  `template T(items) { for i, it in enumerate(items) { (str(i)) ":" (it) " " } }`,
			data: map[string]any{"items": []any{"a", "b"}},
			want: "0:a 1:b ",
		},
		{
			name: "while",
			src:  `template T() { {i = 0} while i < 3 { {i += 1} (str(i)) } }`,
			want: "123",
		},
		{
			name: "doctype",
			src:  `template T() { <!doctype html><html></html> }`,
			want: "<!doctype html><html></html>",
		},
		{
			name: "aria attribute",
			src:  `template T() { <a aria-current="page">"x"</a> }`,
			want: `<a aria-current="page">x</a>`,
		},
		{
			name: "attribute if true",
			src:  `template T(checked) { <input if checked { checked } type="checkbox"> }`,
			data: map[string]any{"checked": true},
			want: `<input checked type="checkbox">`,
		},
		{
			name: "attribute if false",
			src:  `template T(checked) { <input if checked { checked } type="checkbox"> }`,
			data: map[string]any{"checked": false},
			want: `<input type="checkbox">`,
		},
		{
			name: "computed attribute",
			src:  `template T(id) { <p class=["item-" (id)]></p> }`,
			data: map[string]any{"id": "7"},
			want: `<p class="item-7"></p>`,
		},
		{
			name: "escaped value",
			src:  `template T(v) { "<b>" (v) "</b>" }`,
			data: map[string]any{"v": `<i>&"`},
			want: "<b>&lt;i&gt;&amp;&#34;</b>",
		},
		{
			name: "bytes value",
			src:  `template T() { (b"raw") }`,
			want: "raw",
		},
		{
			name: "passthrough helper",
			src:  "def shout(s):\n    return s.upper()\n\ntemplate T(name) {\n\t(shout(name))\n}\n",
			data: map[string]any{"name": "bob"},
			want: "BOB",
		},
		{
			name: "struct builtin",
			src:  `template T() { {u = struct(name = "ann")} (u.name) }`,
			want: "ann",
		},
		{
			name: "undeclared data ignored",
			src:  `template T(a) { (a) }`,
			data: map[string]any{"a": "x", "b": "y"},
			want: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, bridge := range stream.Bridges {
				got, err := renderString(t, Options{Bridge: bridge}, tt.src, "T", tt.data)
				require.NoError(t, err, "bridge %s", bridge)
				assert.Equal(t, tt.want, got, "bridge %s", bridge)
			}
		})
	}
}

func TestRender_NoEscape(t *testing.T) {
	got, err := renderString(t, Options{Escape: codegen.EscapeNone}, `template T(v) { (v) }`, "T", map[string]any{"v": "<i>"})
	require.NoError(t, err)
	assert.Equal(t, "<i>", got)
}

func TestRender_WellFormedHTML(t *testing.T) {
	src := `template List(title, items) {
	<html><body>
		<h1>(title)</h1>
		<ul>
			for it in items { <li class="item">(it)</li> }
		</ul>
		<br>
	</body></html>
}
`
	got, err := renderString(t, Options{}, src, "List", map[string]any{
		"title": "Fruit & <Veg>",
		"items": []string{"apple", "<pear>", "plum"},
	})
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(got))
	require.NoError(t, err)

	var items []string
	var h1 string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.FirstChild != nil {
			switch n.Data {
			case "li":
				items = append(items, n.FirstChild.Data)
			case "h1":
				h1 = n.FirstChild.Data
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, "Fruit & <Veg>", h1, "escaped text decodes back to the value")
	assert.Equal(t, []string{"apple", "<pear>", "plum"}, items)
}

func TestRender_ValueTypeError(t *testing.T) {
	_, err := renderString(t, Options{}, "template T() {\n\t\"a\"\n\t(1)\n}\n", "T", nil)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 3, renderErr.Pos.Line)
	assert.Equal(t, "T", renderErr.Template)
	assert.Contains(t, renderErr.Msg, "must be str or bytes, got int")
}

func TestRender_RuntimeErrorMapsToTemplate(t *testing.T) {
	src := "template T(user) {\n\t\"<p>\"\n\t(user.missing)\n\t\"</p>\"\n}\n"
	r := NewRenderer(Options{}, testutil.NewTestLogger(t))
	s, err := r.Render(context.Background(), compile(t, src), "T", map[string]any{"user": map[string]any{"name": "x"}})
	require.NoError(t, err)

	got, err := stream.Collect(s)
	assert.Equal(t, []string{"<p>"}, got, "output before the error is delivered")

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "page.stpl", renderErr.Pos.File)
	assert.Equal(t, 3, renderErr.Pos.Line)
	assert.Contains(t, renderErr.Error(), "page.stpl:3:")
	assert.Contains(t, renderErr.Error(), "in template T")
	assert.Contains(t, renderErr.Backtrace(), "__template_T")
}

func TestRender_ErrorInHelperMapsToCallSite(t *testing.T) {
	src := "def boom():\n    return 1 // 0\n\ntemplate T() {\n\t(boom())\n}\n"
	_, err := renderString(t, Options{}, src, "T", nil)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Pos.Line, "innermost generated frame is the helper")
	assert.Contains(t, renderErr.Msg, "division by zero")
}

func TestRender_ResolveErrorBeforeStreaming(t *testing.T) {
	r := NewRenderer(Options{}, testutil.NewTestLogger(t))
	_, err := r.Render(context.Background(), compile(t, "template T() {\n\t(nope)\n}\n"), "T", nil)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Pos.Line)
}

func TestRender_UnknownTemplate(t *testing.T) {
	r := NewRenderer(Options{}, nil)
	_, err := r.Render(context.Background(), compile(t, `template T() {}`), "Missing", nil)
	assert.ErrorContains(t, err, `template "Missing" not found`)
}

func TestRender_MissingArgument(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"one", `template T(a) { (a) }`, nil, "in template T: missing arguments: a"},
		{"several", `template T(a, b, c="") { (a) (b) }`, map[string]any{"c": "x"}, "missing arguments: a, b"},
		{"default not required", `template T(a, b="y") { (a) (b) }`, map[string]any{"a": "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(Options{}, testutil.NewTestLogger(t))
			s, err := r.Render(context.Background(), compile(t, tt.src), "T", tt.data)
			if tt.want == "" {
				require.NoError(t, err)
				out, err := stream.String(s)
				require.NoError(t, err)
				assert.Equal(t, "xy", out)
				return
			}

			var renderErr *RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Nil(t, s)
			assert.Equal(t, "T", renderErr.Template)
			assert.Contains(t, renderErr.Error(), tt.want)
		})
	}
}

func TestRender_MaxSteps(t *testing.T) {
	for _, bridge := range stream.Bridges {
		t.Run(string(bridge), func(t *testing.T) {
			_, err := renderString(t, Options{Bridge: bridge, MaxSteps: 500}, `template T() { while True { "x" } }`, "T", nil)
			assert.ErrorContains(t, err, "too many steps")
		})
	}
}

func TestRender_CloseStopsInfiniteTemplate(t *testing.T) {
	for _, bridge := range stream.Bridges {
		t.Run(string(bridge), func(t *testing.T) {
			r := NewRenderer(Options{Bridge: bridge}, testutil.NewTestLogger(t))
			s, err := r.Render(context.Background(), compile(t, `template T() { while True { "x" } }`), "T", nil)
			require.NoError(t, err)

			for range 3 {
				v, ok := s.Next()
				require.True(t, ok)
				assert.Equal(t, "x", v)
			}
			assert.NoError(t, s.Close())
		})
	}
}

func TestRender_ContextCancel(t *testing.T) {
	for _, bridge := range stream.Bridges {
		t.Run(string(bridge), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			r := NewRenderer(Options{Bridge: bridge}, testutil.NewTestLogger(t))
			s, err := r.Render(ctx, compile(t, `template T() { while True { "x" } }`), "T", nil)
			require.NoError(t, err)

			_, ok := s.Next()
			require.True(t, ok)
			cancel()

			for {
				if _, ok := s.Next(); !ok {
					break
				}
			}
			assert.ErrorIs(t, s.Err(), context.Canceled)
		})
	}
}

func TestRender_Concurrent(t *testing.T) {
	prog := compile(t, `template T(n) { for i in range(n) { (str(i)) } }`)
	r := NewRenderer(Options{Threads: 4}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	outs := make([]string, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Render(context.Background(), prog, "T", map[string]any{"n": 5})
			if err != nil {
				errs[i] = err
				return
			}
			outs[i], errs[i] = stream.String(s)
		}()
	}
	wg.Wait()

	for i := range 20 {
		require.NoError(t, errs[i])
		assert.Equal(t, "01234", outs[i])
	}
	assert.LessOrEqual(t, r.pool.Size(), 4)
}
