package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

var predeclaredNames = Predeclared(codegen.EscapeNone)

func isPredeclared(name string) bool {
	_, ok := predeclaredNames[name]
	return ok
}

// Options configures a Renderer.
type Options struct {
	Escape   codegen.Escape
	Bridge   stream.Bridge
	MaxSteps uint64 // Per-render computation budget; zero means unbounded
	Threads  int    // Thread pool size
}

// Renderer runs compiled Starlark templates as streams. It is safe for
// concurrent use.
type Renderer struct {
	opts        Options
	pool        *ThreadPool
	predeclared starlark.StringDict
	logger      *slog.Logger
}

// NewRenderer creates a renderer. A nil logger discards output.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Escape == "" {
		opts.Escape = codegen.EscapeHTML
	}
	if opts.Bridge == "" {
		opts.Bridge = stream.Cooperative
	}
	return &Renderer{
		opts:        opts,
		pool:        NewThreadPool(opts.Threads),
		predeclared: Predeclared(opts.Escape),
		logger:      logger,
	}
}

// Render starts rendering one template of prog. Data keys become keyword
// arguments; keys the template does not declare are ignored. Missing
// required arguments fail before streaming starts. Errors raised while
// rendering are reported by the stream's Err as *RenderError.
func (r *Renderer) Render(ctx context.Context, prog *Program, name string, data map[string]any) (stream.Stream[string], error) {
	params, ok := prog.Params(name)
	if !ok {
		return nil, fmt.Errorf("template %q not found in %s", name, prog.Name)
	}
	if missing := Missing(params, data); len(missing) > 0 {
		return nil, &RenderError{
			Pos:      token.Position{File: prog.Name},
			Template: name,
			Msg:      "missing arguments: " + strings.Join(missing, ", "),
		}
	}
	kwargs, err := Args(params, data)
	if err != nil {
		return nil, &RenderError{Template: name, Msg: err.Error(), Cause: err}
	}
	if _, err := prog.load(); err != nil {
		return nil, err
	}

	logger := r.logger.With("file", prog.Name, "template", name)
	return stream.New(ctx, r.opts.Bridge, func(ctx context.Context, out stream.Emitter[string]) error {
		start := time.Now()
		err := r.run(ctx, prog, name, kwargs, out, logger)
		if err != nil && !errors.Is(err, stream.ErrStopped) {
			logger.Debug("render failed", "duration", time.Since(start), "error", err)
			return err
		}
		logger.Debug("rendered", "duration", time.Since(start))
		return err
	})
}

func (r *Renderer) run(ctx context.Context, prog *Program, name string, kwargs []starlark.Tuple, out stream.Emitter[string], logger *slog.Logger) error {
	compiled, err := prog.load()
	if err != nil {
		return err
	}

	thread := r.pool.Get(prog.Name, r.opts.MaxSteps)
	thread.SetLocal(emitterKey, out)
	thread.Print = func(_ *starlark.Thread, msg string) {
		logger.Info(msg)
	}

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer func() {
		// A thread whose cancellation already fired is not reused.
		if stop() {
			r.pool.Put(thread)
		}
	}()

	globals, err := compiled.Init(thread, r.predeclared)
	if err == nil {
		fn, ok := globals[FuncName(name)]
		if !ok {
			return fmt.Errorf("template %q not defined by %s", name, prog.Name)
		}
		_, err = starlark.Call(thread, fn, nil, kwargs)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, stream.ErrStopped):
		return stream.ErrStopped
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return prog.wrap(err, name)
	}
}
