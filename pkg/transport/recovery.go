package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/relais/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to errors. The transport continues to accept new
// connections after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, conn api.Conn) (result any, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					retErr = fmt.Errorf("internal server error: %v", r)
				}
			}()
			return next.Serve(ctx, conn)
		})
	}
}
