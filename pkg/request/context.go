package request

import "context"

// requestKey is a private type for the request facade context key.
type requestKey struct{}

// NewContext stores the request facade in the context.
func NewContext(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// FromContext retrieves the request facade bound by the request stage.
// Returns nil if the connection has no bound facade.
func FromContext(ctx context.Context) *Request {
	if v, ok := ctx.Value(requestKey{}).(*Request); ok {
		return v
	}
	return nil
}
