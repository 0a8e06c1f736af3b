package compile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/internal/testutil"
	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

const goTemplate = `package views

template Hello(name string) {
	<p>"hello " (name)</p>
}
`

const starlarkTemplate = `template Hello(name) {
	<p>"hello " (name)</p>
}
`

func newCompiler(t *testing.T, jobs int) *Compiler {
	t.Helper()
	return New(Options{Codegen: codegen.DefaultOptions(), Jobs: jobs}, testutil.NewTestLogger(t))
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHostFor(t *testing.T) {
	tests := []struct {
		path string
		host Host
		ok   bool
	}{
		{"views/page.gtpl", HostGo, true},
		{"page.stpl", HostStarlark, true},
		{"page.gtpl.go", "", false},
		{"page.html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			host, ok := HostFor(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.host, host)
		})
	}
}

func TestCompiler_File(t *testing.T) {
	c := newCompiler(t, 1)

	t.Run("go", func(t *testing.T) {
		res, err := c.File("views/hello.gtpl", []byte(goTemplate))
		require.NoError(t, err)
		assert.Equal(t, HostGo, res.Host)
		assert.Equal(t, []string{"Hello"}, res.Templates)
		assert.Contains(t, string(res.Output), "func Hello(ctx context.Context, name string) stream.Stream[string] {")
		assert.Equal(t, "views/hello.gtpl.go", res.OutputPath())
		assert.Nil(t, res.Program)
	})

	t.Run("starlark", func(t *testing.T) {
		res, err := c.File("hello.stpl", []byte(starlarkTemplate))
		require.NoError(t, err)
		assert.Equal(t, HostStarlark, res.Host)
		assert.Equal(t, []string{"Hello"}, res.Templates)
		require.NotNil(t, res.Program)
		assert.Empty(t, res.OutputPath())

		s, err := starlark.NewRenderer(starlark.Options{}, nil).Render(context.Background(), res.Program, "Hello", map[string]any{"name": "<you>"})
		require.NoError(t, err)
		out, err := stream.String(s)
		require.NoError(t, err)
		assert.Equal(t, "<p>hello &lt;you&gt;</p>", out)
	})

	t.Run("starlark hash comments", func(t *testing.T) {
		src := "# helpers\ndef shout(s):\n    return s.upper()\n\ntemplate T(s) {\n\t(shout(s))\n}\n"
		res, err := c.File("t.stpl", []byte(src))
		require.NoError(t, err)
		assert.Equal(t, []string{"T"}, res.Templates)
	})
}

func TestNew_CodegenDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    codegen.Options
		want    []string
		notWant []string
	}{
		{
			name: "zero value",
			want: []string{"stream.NewCooperative(ctx,", "string(stream.Escape(name))", `"github.com/leapstack-labs/leaptmpl/pkg/stream"`},
		},
		{
			name:    "partial",
			opts:    codegen.Options{Bridge: stream.Channel, Escape: codegen.EscapeNone},
			want:    []string{"stream.NewChannel(ctx,", "_out.Emit(name)"},
			notWant: []string{"stream.Escape"},
		},
		{
			name: "line directives only",
			opts: codegen.Options{LineDirectives: true},
			want: []string{"/*line hello.gtpl:", "stream.Stream[string]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{Codegen: tt.opts}, testutil.NewTestLogger(t))
			res, err := c.File("views/hello.gtpl", []byte(goTemplate))
			require.NoError(t, err)
			assert.Empty(t, res.Diagnostics)
			for _, w := range tt.want {
				assert.Contains(t, string(res.Output), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, string(res.Output), w)
			}
		})
	}
}

func TestCompiler_FileDiagnostics(t *testing.T) {
	c := newCompiler(t, 1)
	src := "package views\n\ntemplate A() {\n\t<div></span>\n}\n\ntemplate B() {\n\tif x {\n}\n"

	res, err := c.File("bad.gtpl", []byte(src))
	require.Error(t, err)

	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.GreaterOrEqual(t, len(res.Diagnostics), 2, "every independent error is reported")
	assert.Equal(t, res.Diagnostics, derr.Diagnostics)
	assert.Nil(t, res.Output)
}

func TestCompiler_FileStarlarkResolveError(t *testing.T) {
	c := newCompiler(t, 1)
	res, err := c.File("t.stpl", []byte("template T() {\n\t(missing)\n}\n"))

	var rerr *starlark.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Pos.Line)
	assert.Nil(t, res.Program)
}

func TestCompiler_FileUnknownExtension(t *testing.T) {
	_, err := newCompiler(t, 1).File("page.html", []byte("x"))
	assert.ErrorContains(t, err, "unknown template extension")
}

func TestCompiler_Batch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, filepath.Join(dir, "a.gtpl"), goTemplate),
		writeFile(t, filepath.Join(dir, "b.stpl"), starlarkTemplate),
		writeFile(t, filepath.Join(dir, "c.gtpl"), "package views\n\ntemplate C() {\n\t<div>\n}\n"),
		filepath.Join(dir, "missing.gtpl"),
	}

	results, err := newCompiler(t, 2).Batch(context.Background(), paths)
	require.Error(t, err)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path, "results keep input order")
	}
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, os.ErrNotExist)

	assert.ErrorContains(t, err, "c.gtpl")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompiler_Logs(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, filepath.Join(dir, "a.gtpl"), goTemplate),
		writeFile(t, filepath.Join(dir, "b.gtpl"), "package views\n\ntemplate B() {\n\t<div>\n}\n"),
	}

	logger, logs := testutil.NewCaptureLogger()
	_, err := New(Options{Codegen: codegen.DefaultOptions()}, logger).Batch(context.Background(), paths)
	require.Error(t, err)

	out := logs.String()
	assert.Contains(t, out, `msg=compiled file=`+paths[0])
	assert.Contains(t, out, `msg="compile failed" file=`+paths[1])
	assert.Contains(t, out, "msg=\"compiled templates\" files=2 failed=1")
}

func TestCompiler_BatchCanceled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "a.gtpl"), goTemplate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCompiler(t, 1).Batch(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "hello.gtpl"), goTemplate)

	c := newCompiler(t, 1)
	res, err := c.Path(path)
	require.NoError(t, err)

	changed, err := Write(res)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := os.ReadFile(path + ".go")
	require.NoError(t, err)
	assert.Equal(t, res.Output, got)

	changed, err = Write(res)
	require.NoError(t, err)
	assert.False(t, changed, "identical output is not rewritten")

	sres, err := c.File(filepath.Join(dir, "x.stpl"), []byte(starlarkTemplate))
	require.NoError(t, err)
	changed, err = Write(sres)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.gtpl"), goTemplate)
	writeFile(t, filepath.Join(dir, "views", "page.gtpl"), goTemplate)
	writeFile(t, filepath.Join(dir, "views", "page.gtpl.go"), "package views\n")
	writeFile(t, filepath.Join(dir, "views", "deep", "card.stpl"), starlarkTemplate)
	writeFile(t, filepath.Join(dir, "vendor", "x.gtpl"), goTemplate)
	writeFile(t, filepath.Join(dir, "node_modules", "y.gtpl"), goTemplate)
	writeFile(t, filepath.Join(dir, ".git", "z.gtpl"), goTemplate)
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")

	rel := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			r, err := filepath.Rel(dir, p)
			require.NoError(t, err)
			out[i] = filepath.ToSlash(r)
		}
		return out
	}

	tests := []struct {
		name     string
		patterns []string
		exts     []string
		want     []string
	}{
		{"recursive", []string{"./..."}, nil, []string{"root.gtpl", "views/deep/card.stpl", "views/page.gtpl"}},
		{"recursive subdir", []string{"views/..."}, nil, []string{"views/deep/card.stpl", "views/page.gtpl"}},
		{"directory", []string{"views"}, nil, []string{"views/page.gtpl"}},
		{"file", []string{"views/deep/card.stpl"}, nil, []string{"views/deep/card.stpl"}},
		{"deduplicated", []string{"root.gtpl", ".", "./..."}, nil, []string{"root.gtpl", "views/deep/card.stpl", "views/page.gtpl"}},
		{"go only", []string{"./..."}, []string{ExtGo}, []string{"root.gtpl", "views/page.gtpl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(dir, tt.patterns, tt.exts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel(got))
		})
	}
}

func TestCollect_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")

	_, err := Collect(dir, []string{"notes.txt"})
	assert.ErrorContains(t, err, "not a template file")

	_, err = Collect(dir, []string{"nope.gtpl"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSkipDir(t *testing.T) {
	for _, name := range []string{"vendor", "node_modules", ".git", ".cache"} {
		assert.True(t, SkipDir(name), name)
	}
	for _, name := range []string{"views", ".", "src"} {
		assert.False(t, SkipDir(name), name)
	}
}
