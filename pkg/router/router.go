// Package router maps methods and path patterns onto handlers with
// {name} parameter segments.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rhuss/relais/pkg/request"
)

// HandlerFunc is a routed endpoint: it receives the bound request facade
// and returns an arbitrary result for the response stages to normalize.
type HandlerFunc func(ctx context.Context, req *request.Request) (any, error)

// Params holds path parameters extracted from {name} segments.
type Params map[string]string

// ErrNotFound reports that no route matches a dispatched path and method.
// The routing stage converts it into a default-handler dispatch; it never
// reaches the transport.
var ErrNotFound = errors.New("no matching route")

// Option configures a Router.
type Option func(*Router)

// WithTrimTrailingSlash makes dispatch treat "/users/" and "/users" alike.
func WithTrimTrailingSlash() Option {
	return func(r *Router) { r.trimTrailingSlash = true }
}

// Router maps method and path patterns onto handlers. Routes are
// registered during application assembly and are read-only afterwards,
// so dispatch needs no locking.
type Router struct {
	trimTrailingSlash bool
	static            map[string][]*route
	dynamic           []*route
}

type route struct {
	pattern  string
	segments []segment
	methods  map[string]struct{} // nil matches all methods
	handler  HandlerFunc
}

// segment is one path element: a literal or, for {name} elements, a
// parameter binding.
type segment struct {
	literal string
	param   string
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{static: make(map[string][]*route)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers handler for pattern. Patterns are absolute paths whose
// segments are literals or {name} parameters. With no methods given the
// route accepts every method; method names are uppercased and any token
// is a valid method, so nonstandard methods work. Configuration problems
// fail here at registration, never at dispatch time.
func (r *Router) Handle(pattern string, handler HandlerFunc, methods ...string) error {
	if handler == nil {
		return fmt.Errorf("route %q: handler must not be nil", pattern)
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("route %q: pattern must start with /", pattern)
	}
	segments, dynamic, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	rt := &route{pattern: pattern, segments: segments, handler: handler}
	if len(methods) > 0 {
		rt.methods = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			rt.methods[strings.ToUpper(m)] = struct{}{}
		}
	}

	if dynamic {
		r.dynamic = append(r.dynamic, rt)
		return nil
	}
	key := r.normalize(pattern)
	r.static[key] = append(r.static[key], rt)
	return nil
}

// Dispatch finds the handler for path and method, returning the extracted
// parameters. Static routes win over dynamic ones; within each class,
// registration order decides. ErrNotFound covers both unknown paths and
// method mismatches.
func (r *Router) Dispatch(path, method string) (HandlerFunc, Params, error) {
	path = r.normalize(path)
	method = strings.ToUpper(method)

	for _, rt := range r.static[path] {
		if rt.allows(method) {
			return rt.handler, Params{}, nil
		}
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, rt := range r.dynamic {
		if params, ok := rt.match(parts, method); ok {
			return rt.handler, params, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (r *Router) normalize(path string) string {
	if r.trimTrailingSlash && len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func (rt *route) allows(method string) bool {
	if rt.methods == nil {
		return true
	}
	_, ok := rt.methods[method]
	return ok
}

func (rt *route) match(parts []string, method string) (Params, bool) {
	if !rt.allows(method) || len(parts) != len(rt.segments) {
		return nil, false
	}
	params := Params{}
	for i, seg := range rt.segments {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func parsePattern(pattern string) ([]segment, bool, error) {
	parts := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	segments := make([]segment, len(parts))
	dynamic := false
	seen := map[string]struct{}{}

	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			name := part[1 : len(part)-1]
			if strings.ContainsAny(name, "{}") {
				return nil, false, fmt.Errorf("route %q: malformed parameter segment %q", pattern, part)
			}
			if _, dup := seen[name]; dup {
				return nil, false, fmt.Errorf("route %q: duplicate parameter %q", pattern, name)
			}
			seen[name] = struct{}{}
			segments[i] = segment{param: name}
			dynamic = true
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, false, fmt.Errorf("route %q: malformed segment %q", pattern, part)
		}
		segments[i] = segment{literal: part}
	}
	return segments, dynamic, nil
}

// Must panics if err is non-nil. It wraps Handle calls in assembly code
// where a bad pattern is a programming error.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
