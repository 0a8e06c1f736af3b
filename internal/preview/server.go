// Package preview serves rendered Starlark templates over HTTP for local
// development. Output is streamed to the browser chunk by chunk, and open
// pages reload when a template changes.
package preview

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaptmpl/internal/compile"
	"github.com/leapstack-labs/leaptmpl/internal/preview/notifier"
	"github.com/leapstack-labs/leaptmpl/internal/starlark"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

//go:embed index.stpl
var indexSource []byte

// ReloadScript is appended to rendered pages when watching is enabled.
const ReloadScript = "<script>new EventSource('/_events').onmessage = () => location.reload();</script>\n"

// DataExt is the extension of the file holding a template's default
// arguments: page.stpl reads page.yaml.
const DataExt = ".yaml"

// Config holds configuration for the preview server.
type Config struct {
	Dir       string
	Port      int
	Watch     bool
	ChunkSize int
	Compiler  *compile.Compiler
	Renderer  *starlark.Renderer
	Logger    *slog.Logger
}

// Server is the preview server.
type Server struct {
	dir       string
	port      int
	watch     bool
	chunkSize int
	compiler  *compile.Compiler
	renderer  *starlark.Renderer
	logger    *slog.Logger
	notifier  *notifier.Notifier

	index         *starlark.Program
	indexRenderer *starlark.Renderer

	mu    sync.Mutex
	cache map[string]*entry
}

// entry is a compiled template file and the file state it came from.
type entry struct {
	modTime time.Time
	size    int64
	result  *compile.Result
}

// NewServer creates a preview server for the templates under cfg.Dir.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(dir); err != nil {
		return nil, err
	} else if !st.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	compiler := cfg.Compiler
	if compiler == nil {
		compiler = compile.New(compile.Options{}, logger)
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = starlark.NewRenderer(starlark.Options{}, logger)
	}

	res, err := compiler.File("index.stpl", indexSource)
	if err != nil {
		return nil, fmt.Errorf("compiling index page: %w", err)
	}

	return &Server{
		dir:           dir,
		port:          cfg.Port,
		watch:         cfg.Watch,
		chunkSize:     cfg.ChunkSize,
		compiler:      compiler,
		renderer:      renderer,
		logger:        logger,
		notifier:      notifier.New(),
		index:         res.Program,
		indexRenderer: starlark.NewRenderer(starlark.Options{}, logger),
		cache:         make(map[string]*entry),
	}, nil
}

// Notifier returns the server's notifier for reload events.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler serving the preview routes:
//
//	GET /                  index of templates
//	GET /_events           server-sent reload events
//	GET /{file}/{template} streamed render; query parameters are arguments
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		}),
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handleIndex)
	r.Get("/_events", s.handleEvents)
	r.Get("/*", s.handleRender)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	s.logger.Info("starting preview server", "addr", fmt.Sprintf("http://localhost:%d", port), "dir", s.dir)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchFiles broadcasts template and data file changes to open pages.
func (s *Server) watchFiles(ctx context.Context) error {
	w := &compile.Watcher{
		Roots:  []string{s.dir},
		Exts:   []string{compile.ExtStarlark, DataExt},
		Logger: s.logger,
	}
	return w.Watch(ctx, func(paths []string) {
		files := make([]string, 0, len(paths))
		for _, p := range paths {
			files = append(files, s.rel(p))
		}
		s.logger.Info("templates changed", "files", files)
		s.notifier.Broadcast(notifier.Event{Files: files})
	})
}

// load returns the compiled file at abs, recompiling when it changed on
// disk since the last load.
func (s *Server) load(abs string) (*compile.Result, error) {
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	e, ok := s.cache[abs]
	s.mu.Unlock()
	if ok && e.modTime.Equal(st.ModTime()) && e.size == st.Size() {
		return e.result, e.result.Err
	}

	res, err := s.compiler.Path(abs)
	s.mu.Lock()
	s.cache[abs] = &entry{modTime: st.ModTime(), size: st.Size(), result: res}
	s.mu.Unlock()
	return res, err
}

func (s *Server) rel(abs string) string {
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	paths, err := compile.Collect(s.dir, []string{"./..."}, compile.ExtStarlark)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	files := make([]any, 0, len(paths))
	for _, p := range paths {
		rel := s.rel(p)
		f := map[string]any{
			"path":      rel,
			"href":      "/" + rel,
			"templates": []string{},
			"error":     "",
		}
		res, err := s.load(p)
		if err != nil {
			f["error"] = compileErrorText(res, err)
		} else {
			f["templates"] = res.Templates
		}
		files = append(files, f)
	}

	st, err := s.indexRenderer.Render(r.Context(), s.index, "Index", map[string]any{
		"files":  files,
		"reload": s.watch,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := stream.WriteTo(w, st); err != nil {
		s.logger.Error("index render failed", "error", err)
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	file, name := path.Split(chi.URLParam(r, "*"))
	file = strings.TrimSuffix(file, "/")
	if file == "" || name == "" || !filepath.IsLocal(file) {
		http.NotFound(w, r)
		return
	}
	if filepath.Ext(file) != compile.ExtStarlark {
		http.Error(w, fmt.Sprintf("only %s templates can be previewed; %s templates are compiled into Go programs", compile.ExtStarlark, compile.ExtGo), http.StatusBadRequest)
		return
	}
	abs := filepath.Join(s.dir, filepath.FromSlash(file))
	logger := s.logger.With("file", file, "template", name)

	res, err := s.load(abs)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Debug("compile failed", "error", err)
		http.Error(w, compileErrorText(res, err), http.StatusInternalServerError)
		return
	}

	data, err := s.data(abs, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, ok := res.Program.Params(name)
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found in %s", name, file), http.StatusNotFound)
		return
	}
	if missing := starlark.Missing(params, data); len(missing) > 0 {
		http.Error(w, fmt.Sprintf("template %s: missing arguments: %s", name, strings.Join(missing, ", ")), http.StatusBadRequest)
		return
	}
	st, err := s.renderer.Render(r.Context(), res.Program, name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	n, err := stream.WriteTo(w, stream.Coalesce(st, s.chunkSize))
	if err != nil {
		if r.Context().Err() != nil {
			logger.Debug("client went away", "bytes", n)
			return
		}
		logger.Error("render failed", "error", err)
		_, _ = fmt.Fprintf(w, "\n<pre class=\"leaptmpl-error\">%s</pre>\n", html.EscapeString(err.Error()))
	}
	logger.Debug("served", "bytes", n, "duration", time.Since(start))
	if s.watch {
		_, _ = io.WriteString(w, ReloadScript)
	}
}

// data collects the arguments of a render: the template's data file, if
// any, overridden by query parameters.
func (s *Server) data(abs string, r *http.Request) (map[string]any, error) {
	data := map[string]any{}
	dataPath := strings.TrimSuffix(abs, compile.ExtStarlark) + DataExt
	if _, err := os.Stat(dataPath); err == nil {
		loaded, err := starlark.LoadData(dataPath)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	for key, values := range r.URL.Query() {
		if err := starlark.SetValue(data, key+"="+values[len(values)-1]); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", strings.Join(ev.Files, ",")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// compileErrorText renders a compile error for display, with source
// excerpts for diagnostics.
func compileErrorText(res *compile.Result, err error) string {
	if res == nil || len(res.Diagnostics) == 0 {
		return err.Error()
	}
	var buf bytes.Buffer
	diag.NewPrinter(&buf, false).PrintAll(res.Source, res.Diagnostics)
	return buf.String()
}
