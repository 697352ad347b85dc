package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
	"github.com/rhuss/relais/pkg/transport"
)

// bodyChunkSize is the read size for streaming request bodies into
// request.body events.
const bodyChunkSize = 64 << 10

// Adapter bridges net/http onto the event-driven connection contract.
// Each incoming request becomes a request-type connection: a scope built
// from the request line and headers, a receive operation streaming the
// body in chunks, and a send operation mapping response events back onto
// the http.ResponseWriter.
type Adapter struct {
	handler  transport.Handler
	inflight *transport.InFlightRegistry // nil unless a server wires one
	config   Config
	logger   *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	RootPath    string
	Logger      *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter that drives the given handler,
// usually a transport.App.
func NewAdapter(handler transport.Handler, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{handler: handler, config: cfg, logger: logger}
}

// Handler returns the http.Handler for this adapter. Use this to
// integrate with an http.Server or test with httptest. The returned
// handler includes HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a)
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if a.inflight != nil {
		key := connectionKey()
		a.inflight.Register(key, cancel)
		defer a.inflight.Remove(key)
	}

	receiver := &bodyReceiver{body: http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)}
	sender := newResponseSender(w)
	conn := api.Conn{
		Scope:   a.scopeFromRequest(r),
		Receive: receiver.receive,
		Send:    sender.send,
	}

	result, err := a.handler.Serve(ctx, conn)
	if err != nil {
		a.writeConnError(w, sender, err)
		return
	}
	if result == nil || sender.started() {
		return
	}

	// The assembled app sends its own responses; a bare handler chain
	// without a response stage hands its result back here instead.
	if s, ok := result.(response.Sendable); ok {
		if err := s.Send(ctx, sender.send); err != nil {
			a.logger.Error("send response", slog.String("error", err.Error()))
		}
		return
	}
	resp, err := response.Negotiate(result)
	if err != nil {
		a.writeConnError(w, sender, err)
		return
	}
	if resp == nil {
		return
	}
	if err := resp.Send(ctx, sender.send); err != nil {
		a.logger.Error("send response", slog.String("error", err.Error()))
	}
}

// writeConnError reports a failed connection to the client. Once the
// response has started only a log entry remains possible.
func (a *Adapter) writeConnError(w http.ResponseWriter, sender *responseSender, err error) {
	if sender.started() {
		a.logger.Error("connection failed after response start", slog.String("error", err.Error()))
		return
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		transport.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body too large (max %d bytes)", maxBytes.Limit))
		return
	}
	transport.WriteError(w, transport.HTTPStatusFromError(err), err.Error())
}

// scopeFromRequest builds the immutable connection scope. The Host
// header is re-added to the header list because net/http moves it onto
// the Request.
func (a *Adapter) scopeFromRequest(r *http.Request) *api.Scope {
	scheme := "http"
	defaultPort := 80
	if r.TLS != nil {
		scheme = "https"
		defaultPort = 443
	}

	headers := make([]api.RawHeader, 0, len(r.Header)+1)
	headers = append(headers, api.RawHeader{Name: []byte("host"), Value: []byte(r.Host)})
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		for _, v := range values {
			headers = append(headers, api.RawHeader{Name: []byte(lower), Value: []byte(v)})
		}
	}

	return &api.Scope{
		Type:     api.TypeRequest,
		Proto:    strings.TrimPrefix(r.Proto, "HTTP/"),
		Scheme:   scheme,
		Method:   r.Method,
		Path:     r.URL.Path,
		RootPath: a.config.RootPath,
		Query:    []byte(r.URL.RawQuery),
		Headers:  headers,
		Client:   splitAddr(r.RemoteAddr, 0),
		Server:   a.serverAddr(r, defaultPort),
	}
}

func (a *Adapter) serverAddr(r *http.Request, defaultPort int) api.Addr {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		return splitAddr(addr.String(), defaultPort)
	}
	return splitAddr(r.Host, defaultPort)
}

func splitAddr(addr string, defaultPort int) api.Addr {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return api.Addr{Host: addr, Port: defaultPort}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return api.Addr{Host: host, Port: port}
}

// connectionKey creates a registry key for in-flight tracking.
func connectionKey() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// bodyReceiver streams the request body as request.body events. After
// the final chunk, further receives return an empty final event.
type bodyReceiver struct {
	body io.Reader
	buf  []byte
	done bool
}

func (b *bodyReceiver) receive(ctx context.Context) (api.Event, error) {
	if err := ctx.Err(); err != nil {
		return api.Event{}, err
	}
	if b.done {
		return api.Event{Type: api.EventRequestBody}, nil
	}
	if b.buf == nil {
		b.buf = make([]byte, bodyChunkSize)
	}

	for {
		n, err := b.body.Read(b.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, b.buf[:n])
			if err == io.EOF {
				b.done = true
				return api.Event{Type: api.EventRequestBody, Body: chunk}, nil
			}
			if err != nil {
				return api.Event{}, err
			}
			return api.Event{Type: api.EventRequestBody, Body: chunk, More: true}, nil
		}
		if err == io.EOF {
			b.done = true
			return api.Event{Type: api.EventRequestBody}, nil
		}
		if err != nil {
			return api.Event{}, err
		}
	}
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded into
// the context for the transport-level RequestID middleware and echoed on
// the response before the first write.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}
