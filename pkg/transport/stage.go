package transport

import (
	"context"
	"net/http"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
)

// Stage is a Handler that wraps another Handler. All built-in stages
// satisfy it; Unwrap exposes the inner handler so assembled chains can
// be inspected without reaching into stage internals.
type Stage interface {
	Handler
	Unwrap() Handler
}

// NotFound returns the terminal handler used when a stage is assembled
// without an inner handler: every connection is answered with an HTML
// 404 page.
func NotFound() Handler {
	return HandlerFunc(func(ctx context.Context, conn api.Conn) (any, error) {
		return response.HTML(http.StatusNotFound, "Not Found"), nil
	})
}

// stage carries the wiring shared by the built-in stages: the inner
// handler and the connection types the stage processes. A connection of
// any other type is forwarded to the inner handler untouched.
type stage struct {
	next  Handler
	types []api.Type
}

func newStage(next Handler, types ...api.Type) stage {
	if next == nil {
		next = NotFound()
	}
	if len(types) == 0 {
		types = []api.Type{api.TypeRequest, api.TypeMessage}
	}
	return stage{next: next, types: types}
}

func (s *stage) interested(conn api.Conn) bool {
	if conn.Scope == nil {
		return false
	}
	for _, t := range s.types {
		if conn.Scope.Type == t {
			return true
		}
	}
	return false
}

// Unwrap returns the inner handler the stage wraps.
func (s *stage) Unwrap() Handler { return s.next }
