// Package clienttest provides an in-memory client for exercising
// connection handlers without sockets.
//
// The client plays the transport side of a request connection: it builds
// the connection scope from a method and target URL, delivers the request
// body as events, and collects the events the application sends back into
// a Result. Startup and Shutdown drive a lifecycle connection for
// applications with hooks.
package clienttest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
	"github.com/rhuss/relais/pkg/transport"
)

// UserAgent is the user agent header the client sends by default.
const UserAgent = "relais-test-client"

// Client drives connections through a handler in memory.
type Client struct {
	app transport.Handler

	mu        sync.Mutex
	lifecycle *lifecycleDriver
}

// New creates a test client around the given handler, usually a
// transport.App.
func New(app transport.Handler) *Client {
	return &Client{app: app}
}

// Do runs one request connection through the handler and returns the
// assembled response. The target may be a bare path with an optional
// query string, or a full URL whose host and scheme are reflected in the
// connection scope.
func (c *Client) Do(ctx context.Context, method, target string, opts ...Option) (*Result, error) {
	cfg := requestConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target: %w", err)
	}

	scope := scopeFromTarget(u, strings.ToUpper(method), &cfg)

	receiver := &bodyFeeder{body: cfg.body}
	collector := &eventCollector{header: http.Header{}}
	conn := api.Conn{
		Scope:   scope,
		Receive: receiver.receive,
		Send:    collector.send,
	}

	result, err := c.app.Serve(ctx, conn)
	if err != nil {
		return nil, err
	}

	// The assembled app sends its own responses; a bare handler chain
	// without a response stage hands its result back here instead.
	if result != nil && !collector.started {
		if err := sendResult(ctx, result, collector); err != nil {
			return nil, err
		}
	}

	if !collector.started {
		return nil, errors.New("connection produced no response")
	}

	return &Result{
		Status: collector.status,
		Header: collector.header,
		Body:   collector.body.Bytes(),
	}, nil
}

func sendResult(ctx context.Context, result any, collector *eventCollector) error {
	if s, ok := result.(response.Sendable); ok {
		return s.Send(ctx, collector.send)
	}
	resp, err := response.Negotiate(result)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return resp.Send(ctx, collector.send)
}

// scopeFromTarget builds the connection scope for one request.
func scopeFromTarget(u *url.URL, method string, cfg *requestConfig) *api.Scope {
	scheme := "http"
	defaultPort := 80
	if u.Scheme == "https" {
		scheme = "https"
		defaultPort = 443
	}

	host := "localhost"
	if u.Host != "" {
		host = u.Host
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	query := u.RawQuery
	if cfg.querySet {
		query = cfg.query
	}

	return &api.Scope{
		Type:    api.TypeRequest,
		Proto:   "1.1",
		Scheme:  scheme,
		Method:  method,
		Path:    path,
		Query:   []byte(query),
		Headers: buildHeaders(host, cfg),
		Client:  api.Addr{Host: "127.0.0.1"},
		Server:  addrFromHost(host, defaultPort),
	}
}

// buildHeaders assembles the wire headers: client defaults first, unless
// the caller already set them, then the caller's headers. Names are
// lowercase on the wire.
func buildHeaders(host string, cfg *requestConfig) []api.RawHeader {
	set := make(map[string]bool, len(cfg.headers))
	for _, h := range cfg.headers {
		set[string(h.Name)] = true
	}

	var headers []api.RawHeader
	add := func(name, value string) {
		if !set[name] {
			headers = append(headers, api.RawHeader{Name: []byte(name), Value: []byte(value)})
		}
	}

	add("host", host)
	add("user-agent", UserAgent)
	add("content-length", strconv.Itoa(len(cfg.body)))
	if cfg.contentType != "" {
		add("content-type", cfg.contentType)
	}
	if len(cfg.cookies) > 0 {
		add("cookie", strings.Join(cfg.cookies, "; "))
	}

	return append(headers, cfg.headers...)
}

func addrFromHost(host string, defaultPort int) api.Addr {
	if h, p, err := net.SplitHostPort(host); err == nil {
		if port, err := strconv.Atoi(p); err == nil {
			return api.Addr{Host: h, Port: port}
		}
		return api.Addr{Host: h, Port: defaultPort}
	}
	return api.Addr{Host: host, Port: defaultPort}
}

// bodyFeeder delivers the request body as a single final chunk. Receives
// past the end yield empty final chunks.
type bodyFeeder struct {
	body []byte
	done bool
}

func (f *bodyFeeder) receive(ctx context.Context) (api.Event, error) {
	if err := ctx.Err(); err != nil {
		return api.Event{}, err
	}
	if f.done {
		return api.Event{Type: api.EventRequestBody}, nil
	}
	f.done = true
	return api.Event{Type: api.EventRequestBody, Body: f.body}, nil
}

// eventCollector assembles the response from send events, enforcing the
// same ordering the real transport does: one response.start, then body
// chunks until the final one.
type eventCollector struct {
	started bool
	done    bool
	status  int
	header  http.Header
	body    bytes.Buffer
}

func (c *eventCollector) send(ctx context.Context, ev api.Event) error {
	switch ev.Type {
	case api.EventResponseStart:
		if c.started {
			return errors.New("response already started")
		}
		c.started = true
		c.status = ev.Status
		if c.status == 0 {
			c.status = http.StatusOK
		}
		for _, h := range ev.Headers {
			c.header.Add(string(h.Name), string(h.Value))
		}

	case api.EventResponseBody:
		if !c.started {
			return errors.New("response.body before response.start")
		}
		if c.done {
			return errors.New("response already completed")
		}
		c.body.Write(ev.Body)
		if !ev.More {
			c.done = true
		}

	default:
		return fmt.Errorf("event type %q not supported by the test client", ev.Type)
	}
	return nil
}

// Result holds the response assembled from one request connection.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// Text returns the response body as a string.
func (r *Result) Text() string {
	return string(r.Body)
}

// JSON decodes the response body into v.
func (r *Result) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
