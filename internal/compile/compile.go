// Package compile drives template files through the pipeline: parse,
// lower, simplify, then generate Go or translate to Starlark depending on
// the file's host language.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/ir"
	"github.com/leapstack-labs/leaptmpl/pkg/parser"
)

// Options configures a Compiler.
type Options struct {
	Codegen codegen.Options // Unset fields take codegen.DefaultOptions
	Jobs    int             // Files compiled concurrently by Batch; zero means one
}

// Result is the outcome of compiling one file.
type Result struct {
	Path        string
	Host        Host
	Source      []byte
	Templates   []string
	Diagnostics []*diag.Diagnostic

	// Output is the generated Go file. Go host only.
	Output []byte
	// Program is the translated program. Starlark host only.
	Program *starlark.Program

	Duration time.Duration
	Err      error
}

// OutputPath returns where generated output for r is written, or "" when
// the host produces no file.
func (r *Result) OutputPath() string {
	if r.Host != HostGo {
		return ""
	}
	return codegen.OutputPath(r.Path)
}

// Compiler compiles template files. It is safe for concurrent use.
type Compiler struct {
	opts   Options
	logger *slog.Logger
}

// New creates a compiler. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	opts.Codegen = opts.Codegen.WithDefaults()
	return &Compiler{opts: opts, logger: logger}
}

// File compiles src, read from path. Structural errors are returned as a
// *diag.Error and also recorded in the result's Diagnostics; the result is
// never nil.
func (c *Compiler) File(path string, src []byte) (*Result, error) {
	start := time.Now()
	res := &Result{Path: path, Source: src}
	res.Err = c.compile(res)
	res.Duration = time.Since(start)

	logger := c.logger.With("file", path, "duration", res.Duration)
	if res.Err != nil {
		logger.Debug("compile failed", "diagnostics", len(res.Diagnostics), "error", res.Err)
	} else {
		logger.Debug("compiled", "templates", len(res.Templates))
	}
	return res, res.Err
}

func (c *Compiler) compile(res *Result) error {
	host, ok := HostFor(res.Path)
	if !ok {
		return fmt.Errorf("%s: unknown template extension (want %s or %s)", res.Path, ExtGo, ExtStarlark)
	}
	res.Host = host

	var mode parser.Mode
	if host == HostStarlark {
		mode |= parser.HashComments
	}
	file, diags := parser.ParseFile(res.Path, res.Source, mode)
	res.Diagnostics = diags.All()
	if err := diags.Err(); err != nil {
		return err
	}

	prog := ir.LowerFile(file)
	ir.SimplifyProgram(prog)
	for _, t := range prog.Templates() {
		res.Templates = append(res.Templates, t.Name)
	}

	switch host {
	case HostGo:
		out, err := codegen.Generate(prog, c.opts.Codegen)
		if err != nil {
			return err
		}
		res.Output = out
	case HostStarlark:
		sp, err := starlark.Compile(prog)
		if err != nil {
			return err
		}
		if err := sp.Check(); err != nil {
			return err
		}
		res.Program = sp
	}
	return nil
}

// Path reads and compiles the file at path.
func (c *Compiler) Path(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		res := &Result{Path: path, Err: err}
		return res, err
	}
	return c.File(path, src)
}

// Batch compiles paths concurrently, at most Jobs at a time. Every file is
// compiled even when others fail; results keep the order of paths and the
// returned error joins every per-file error.
func (c *Compiler) Batch(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], _ = c.Path(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			failed++
		}
	}
	c.logger.Info("compiled templates", "files", len(paths), "failed", failed)
	return results, errors.Join(errs...)
}

// Write stores the generated output of r next to its template. It skips
// the write when the file already holds the same bytes and reports whether
// anything changed.
func Write(r *Result) (bool, error) {
	path := r.OutputPath()
	if path == "" || r.Err != nil {
		return false, nil
	}
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, r.Output) {
		return false, nil
	}
	if err := os.WriteFile(path, r.Output, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
