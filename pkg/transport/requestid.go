package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/relais/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// connection. If the incoming context already carries a request ID (set
// by the HTTP bridge from the X-Request-ID header), that value is used.
// Otherwise, a new unique ID is generated.
//
// The request ID is stored in the context and can be retrieved with
// RequestIDFromContext.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, conn api.Conn) (any, error) {
			id := RequestIDFromContext(ctx)
			if id == "" {
				id = generateRequestID()
				ctx = ContextWithRequestID(ctx, id)
			}
			return next.Serve(ctx, conn)
		})
	}
}

// generateRequestID creates a new unique request ID as a hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
