package transport

import (
	"context"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/request"
)

// RequestStage builds the lazy request facade for request and message
// connections and makes it available to inner handlers through the
// context (request.FromContext). The facade caches its decoded views, so
// every stage below shares one instance.
type RequestStage struct {
	stage
}

var _ Stage = (*RequestStage)(nil)

// BindRequest creates a request-binding stage around next.
func BindRequest(next Handler) *RequestStage {
	return &RequestStage{stage: newStage(next)}
}

// Serve implements Handler.
func (b *RequestStage) Serve(ctx context.Context, conn api.Conn) (any, error) {
	if !b.interested(conn) {
		return b.next.Serve(ctx, conn)
	}
	req := request.New(conn)
	return b.next.Serve(request.NewContext(ctx, req), conn)
}
