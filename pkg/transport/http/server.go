package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/transport"
)

// Server wraps an http.Server around the adapter and manages the full
// lifecycle: it drives a lifecycle connection into the application
// (startup hooks before serving, shutdown hooks after draining) and
// shuts down gracefully on SIGINT/SIGTERM.
type Server struct {
	httpServer  *http.Server
	adapter     *Adapter
	app         transport.Handler
	inflight    *transport.InFlightRegistry
	extraRoutes []httpRoute
	config      ServerConfig
	logger      *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr            string
	MaxBodySize     int64
	RootPath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) { s.config.MaxBodySize = n }
}

// WithRootPath sets the mount prefix reported in connection scopes.
func WithRootPath(p string) ServerOption {
	return func(s *Server) { s.config.RootPath = p }
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ReadTimeout = d }
}

// WithWriteTimeout sets the maximum duration for writing a response.
// Keep it generous for connections that stream their body.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.WriteTimeout = d }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l }
}

// WithHTTPRoute mounts an extra plain http.Handler next to the adapter,
// for endpoints that live outside the connection contract such as
// /metrics.
func WithHTTPRoute(pattern string, h http.Handler) ServerOption {
	return func(s *Server) {
		s.extraRoutes = append(s.extraRoutes, httpRoute{pattern: pattern, handler: h})
	}
}

type httpRoute struct {
	pattern string
	handler http.Handler
}

// NewServer creates a transport server driving the given application
// handler, usually a transport.App.
func NewServer(app transport.Handler, opts ...ServerOption) *Server {
	s := &Server{
		app:      app,
		config:   DefaultServerConfig(),
		inflight: transport.NewInFlightRegistry(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.config.Logger
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.adapter = NewAdapter(app, Config{
		MaxBodySize: s.config.MaxBodySize,
		RootPath:    s.config.RootPath,
		Logger:      s.logger,
	})
	s.adapter.inflight = s.inflight

	mux := http.NewServeMux()
	mux.Handle("/", s.adapter.Handler())
	for _, route := range s.extraRoutes {
		mux.Handle(route.pattern, route.handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s
}

// Handler returns the composed http.Handler, for tests that mount the
// server under httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Stop initiates a graceful shutdown from within the process.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// ListenAndServe runs the startup hooks, starts the server, and blocks
// until a shutdown signal (SIGINT or SIGTERM) is received or Stop is
// called. It then drains in-flight requests within the configured
// timeout and runs the shutdown hooks. A failing startup hook aborts
// before the listener opens.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.serve(ctx, nil)
}

// ServeOn runs the server on the given listener. Used for testing.
func (s *Server) ServeOn(ln net.Listener) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	driver := newLifecycleDriver()
	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	go driver.run(lifecycleCtx, s.app)

	if err := driver.signal(ctx, api.EventLifecycleStartup, api.EventLifecycleStartupComplete); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	s.logger.Info("server starting", slog.String("addr", s.config.Addr))

	errCh := make(chan error, 1)
	go func() {
		var err error
		if ln != nil {
			err = s.httpServer.Serve(ln)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case <-s.stopCh:
		s.logger.Info("stop requested")
	}

	return s.shutdown(driver)
}

func (s *Server) shutdown(driver *lifecycleDriver) error {
	drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	drainErr := s.httpServer.Shutdown(drainCtx)
	if drainErr != nil {
		if n := s.inflight.CancelAll(); n > 0 {
			s.logger.Warn("cancelled in-flight connections", slog.Int("count", n))
		}
	}

	hookCtx, cancelHooks := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancelHooks()
	if err := driver.signal(hookCtx, api.EventLifecycleShutdown, api.EventLifecycleShutdownComplete); err != nil {
		s.logger.Error("shutdown hooks failed", slog.String("error", err.Error()))
		if drainErr != nil {
			return drainErr
		}
		return err
	}

	if drainErr != nil {
		return drainErr
	}
	s.logger.Info("server stopped")
	return nil
}

// lifecycleDriver feeds lifecycle events into the application and
// collects the acknowledgements, playing the transport side of the
// lifecycle connection.
type lifecycleDriver struct {
	signals chan api.EventType
	acks    chan api.Event
	result  chan error
}

func newLifecycleDriver() *lifecycleDriver {
	return &lifecycleDriver{
		signals: make(chan api.EventType),
		acks:    make(chan api.Event),
		result:  make(chan error, 1),
	}
}

func (d *lifecycleDriver) conn() api.Conn {
	return api.Conn{
		Scope: &api.Scope{Type: api.TypeLifecycle},
		Receive: func(ctx context.Context) (api.Event, error) {
			select {
			case t := <-d.signals:
				return api.Event{Type: t}, nil
			case <-ctx.Done():
				return api.Event{}, ctx.Err()
			}
		},
		Send: func(ctx context.Context, ev api.Event) error {
			select {
			case d.acks <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

func (d *lifecycleDriver) run(ctx context.Context, app transport.Handler) {
	_, err := app.Serve(ctx, d.conn())
	d.result <- err
}

// signal delivers one lifecycle event and waits for the expected
// acknowledgement. A hook failure surfaces as the loop's error instead
// of an acknowledgement.
func (d *lifecycleDriver) signal(ctx context.Context, event, ack api.EventType) error {
	select {
	case d.signals <- event:
	case err := <-d.result:
		if err != nil {
			return err
		}
		return errors.New("lifecycle connection ended early")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case got := <-d.acks:
		if got.Type != ack {
			return fmt.Errorf("unexpected lifecycle acknowledgement %q", got.Type)
		}
		return nil
	case err := <-d.result:
		if err != nil {
			return err
		}
		return errors.New("lifecycle connection ended without acknowledgement")
	case <-ctx.Done():
		return ctx.Err()
	}
}
