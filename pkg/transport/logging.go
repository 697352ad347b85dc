package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/relais/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// connection. The log entry includes the connection type, method, path,
// duration, request ID (from context), and whether the handler succeeded
// or failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, conn api.Conn) (any, error) {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			result, err := next.Serve(ctx, conn)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.Duration("duration", time.Since(start)),
			}
			if scope := conn.Scope; scope != nil {
				attrs = append(attrs,
					slog.String("type", string(scope.Type)),
					slog.String("method", scope.Method),
					slog.String("path", scope.Path),
				)
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "connection failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "connection completed", attrs...)
			}

			return result, err
		})
	}
}
