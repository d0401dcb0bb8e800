// Package devserver serves the forum client during development: the host
// page, the WebAssembly binary and the static assets, a reverse proxy to the
// API server, and a reload stream fed by a file watcher.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"

	"github.com/atdiar/rtforum/config"
)

// ReloadPath is the path of the reload event stream.
const ReloadPath = "/_reload"

type Server struct {
	Config *config.DevServer
	Logger *slog.Logger
	Broker *Broker

	upstream *url.URL
	handler  http.Handler
}

func New(cfg *config.DevServer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	upstream, err := url.Parse(cfg.API)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid API upstream %q", cfg.API)
	}
	s := &Server{
		Config:   cfg,
		Logger:   logger,
		Broker:   NewBroker(logger),
		upstream: upstream,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	proxy := httputil.NewSingleHostReverseProxy(s.upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		s.Logger.Error("API upstream unreachable", "path", req.URL.Path, "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintln(w, `{"error":"API server unreachable"}`)
	}
	r.PathPrefix("/api/").Handler(proxy)
	r.Handle("/ws", proxy)
	r.PathPrefix("/images/").Handler(proxy)

	r.Handle(ReloadPath, s.Broker).Methods(http.MethodGet)
	r.HandleFunc("/_info", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "API upstream: %s\nwatching: %t\nbrowsers connected: %d\n", s.upstream, s.Config.Watch, s.Broker.Clients())
	}).Methods(http.MethodGet)

	r.HandleFunc("/app.wasm", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, req, s.Config.Wasm)
	}).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(s.serveStatic).Methods(http.MethodGet, http.MethodHead)
	return r
}

// serveStatic serves the files of the static directory. Paths without an
// extension are client routes and get the host page.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	cleaned := filepath.Clean("/" + r.URL.Path)
	if filepath.Ext(cleaned) == "" {
		http.ServeFile(w, r, s.Config.Index)
		return
	}
	path := filepath.Join(s.Config.StaticDir, filepath.FromSlash(cleaned))
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// ListenAndServe runs the server until ctx is cancelled. With watching on,
// every change in the static directory sends a reload event.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Config.Watch {
		watcher, err := WatchDir(s.Config.StaticDir, DefaultDebounce, s.Logger, func(evt fsnotify.Event) {
			s.Logger.Info("reloading browsers", "file", evt.Name, "op", evt.Op.String())
			s.Broker.SendEvent("reload", evt.String())
		})
		if err != nil {
			return fmt.Errorf("watching %s: %w", s.Config.StaticDir, err)
		}
		defer watcher.Close()
	}

	// request contexts end with ctx so that reload streams do not hold the
	// shutdown
	srv := &http.Server{
		Addr:        s.Config.Addr,
		Handler:     s.handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.Logger.Info("dev server listening", "addr", s.Config.Addr, "api", s.upstream.String(), "static", s.Config.StaticDir)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
