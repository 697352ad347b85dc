package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
	"github.com/rhuss/relais/pkg/transport"
)

// Metrics returns a middleware stage that records connection metrics for
// request and message connections. Lifecycle connections pass through
// unrecorded.
//
// It captures:
//   - relais_connections_total (counter): incremented per connection with type and status class labels
//   - relais_connection_duration_seconds (histogram): handling duration by method
//   - relais_active_connections (gauge): incremented while a connection is inside the chain
//
// Status is classified from the outcome flowing back up the chain: the
// status class of a prepared response ("2xx", "4xx", ...), "5xx" when the
// inner chain failed, and "none" when no prepared response flowed up.
// Place the stage outside the response-preparing stage so routed handler
// results reach it normalized.
func Metrics() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, conn api.Conn) (any, error) {
			scope := conn.Scope
			if scope == nil || scope.Type == api.TypeLifecycle {
				return next.Serve(ctx, conn)
			}

			ActiveConnections.Inc()
			defer ActiveConnections.Dec()

			start := time.Now()
			result, err := next.Serve(ctx, conn)
			duration := time.Since(start).Seconds()

			ConnectionsTotal.WithLabelValues(string(scope.Type), statusClass(result, err)).Inc()
			ConnectionDuration.WithLabelValues(methodLabel(scope)).Observe(duration)

			return result, err
		})
	}
}

// statusClass maps a chain outcome onto a status class label like "2xx".
func statusClass(result any, err error) string {
	if err != nil {
		return "5xx"
	}
	if resp, ok := result.(*response.Response); ok {
		return strconv.Itoa(resp.Status/100) + "xx"
	}
	return "none"
}

// methodLabel returns the scope method, or "none" for connections without
// one (message streams).
func methodLabel(scope *api.Scope) string {
	if scope.Method == "" {
		return "none"
	}
	return scope.Method
}
