package transport

import (
	"context"
	"errors"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/request"
	"github.com/rhuss/relais/pkg/router"
)

// RouteStage dispatches request and message connections through a
// router. Dispatch uses the mounted path (root path plus path) and the
// method. The routed handler receives the request facade, reusing the
// one bound by an outer RequestStage when present, with the extracted
// path parameters attached. When no route matches, the connection falls
// through to the inner handler with empty parameters.
type RouteStage struct {
	stage
	router *router.Router
}

var _ Stage = (*RouteStage)(nil)

// Route creates a routing stage that dispatches through r and falls back
// to next.
func Route(next Handler, r *router.Router) *RouteStage {
	return &RouteStage{stage: newStage(next), router: r}
}

// Serve implements Handler.
func (rs *RouteStage) Serve(ctx context.Context, conn api.Conn) (any, error) {
	if !rs.interested(conn) {
		return rs.next.Serve(ctx, conn)
	}

	scope := conn.Scope
	h, params, err := rs.router.Dispatch(scope.RootPath+scope.Path, scope.Method)
	if err != nil {
		if errors.Is(err, router.ErrNotFound) {
			if req := request.FromContext(ctx); req != nil {
				req.SetParams(router.Params{})
			}
			return rs.next.Serve(ctx, conn)
		}
		return nil, err
	}

	req := request.FromContext(ctx)
	if req == nil {
		req = request.New(conn)
	}
	req.SetParams(params)
	return h(ctx, req)
}
