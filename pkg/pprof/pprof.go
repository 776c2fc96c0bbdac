// Package pprof exposes Go runtime profiles over HTTP for long-running
// services.
//
// Mount the handler on an existing mux, or run a dedicated listener:
//
//	srv := pprof.NewServer(cfg.Pprof, logger)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop(ctx)
//
//	// Profiles are served at http://localhost:6060/debug/pprof/
package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"
	"sync"

	"github.com/heapwalker/pkg/utils"
)

// Config holds profiling endpoint configuration.
type Config struct {
	// Enabled starts the profiling listener with the server.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the listen address of the profiling listener.
	Addr string `mapstructure:"addr"`

	// Path is the URL path prefix for the endpoints.
	Path string `mapstructure:"path"`

	// Token, when set, must be sent as a bearer token or ?token= query.
	Token string `mapstructure:"token"`

	// BlockAndMutex turns on block and mutex profiling while the listener runs.
	BlockAndMutex bool `mapstructure:"block_and_mutex"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr: "localhost:6060",
		Path: "/debug/pprof",
	}
}

// Validate checks the configuration of an enabled listener.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof addr is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("pprof path must start with '/': %q", c.Path)
	}
	return nil
}

// Server serves runtime profiles.
type Server struct {
	config Config
	logger utils.Logger
	mux    *http.ServeMux

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a profiling server. Handlers are registered immediately,
// so Handler can be mounted without calling Start.
func NewServer(cfg Config, logger utils.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	s := &Server{
		config: cfg,
		logger: utils.OrNull(logger),
		mux:    http.NewServeMux(),
	}
	s.registerHandlers()
	return s
}

// Handler returns the HTTP handler for integration with existing servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("pprof server already started")
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	if s.config.BlockAndMutex {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(1)
	}

	s.listener = ln
	s.server = &http.Server{Handler: s.mux}
	s.done = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("pprof server error: %v", err)
		}
	}(s.server, s.done)

	s.logger.Info("Serving profiles at http://%s%s/", ln.Addr(), s.config.Path)
	return nil
}

// Stop shuts the listener down. It is a no-op if the server is not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	if s.config.BlockAndMutex {
		runtime.SetBlockProfileRate(0)
		runtime.SetMutexProfileFraction(0)
	}
	if err != nil {
		return fmt.Errorf("failed to shutdown pprof server: %w", err)
	}
	return nil
}

func (s *Server) registerHandlers() {
	path := strings.TrimSuffix(s.config.Path, "/")
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		if s.config.Token != "" {
			return s.authMiddleware(h)
		}
		return h
	}

	// Index also serves the named profiles (heap, goroutine, allocs, ...).
	s.mux.HandleFunc(path+"/", wrap(pprof.Index))
	s.mux.HandleFunc(path+"/cmdline", wrap(pprof.Cmdline))
	s.mux.HandleFunc(path+"/profile", wrap(pprof.Profile))
	s.mux.HandleFunc(path+"/symbol", wrap(pprof.Symbol))
	s.mux.HandleFunc(path+"/trace", wrap(pprof.Trace))
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "Bearer "+s.config.Token || token == s.config.Token {
			next(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="pprof"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
}
