package transport

import (
	"context"

	"github.com/rhuss/relais/pkg/api"
)

// Handler processes a single connection. It is the primary contract of
// the transport layer: stages, middleware, and assembled applications all
// implement it. The return value is a response in one of the accepted
// conventions (a *response.Response, a response.Sendable, a string, a
// byte slice, or any JSON-encodable value); nil means the handler already
// sent everything itself or has nothing to send.
type Handler interface {
	Serve(ctx context.Context, conn api.Conn) (any, error)
}

// HandlerFunc is an adapter that allows using an ordinary function
// as a Handler.
type HandlerFunc func(ctx context.Context, conn api.Conn) (any, error)

// Serve calls f(ctx, conn).
func (f HandlerFunc) Serve(ctx context.Context, conn api.Conn) (any, error) {
	return f(ctx, conn)
}
