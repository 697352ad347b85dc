package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
)

// RespondStage normalizes handler results into wire events. In send mode
// it negotiates the inner handler's return value into a response and
// sends it on the connection; a nil result means the inner handler took
// care of sending, or has nothing to say, and nothing further happens.
// In prepare mode the stage only normalizes and returns the response for
// an enclosing stage to send, which is how nested applications compose.
//
// A decode failure surfacing from the inner handler is answered with a
// 400 response carrying the failure message instead of tearing down the
// connection. Other errors propagate unchanged.
type RespondStage struct {
	stage
	prepareOnly bool
}

var _ Stage = (*RespondStage)(nil)

// Respond creates a response stage in send mode around next.
func Respond(next Handler) *RespondStage {
	return &RespondStage{stage: newStage(next)}
}

// PrepareResponses creates a response stage in prepare mode around next.
func PrepareResponses(next Handler) *RespondStage {
	return &RespondStage{stage: newStage(next), prepareOnly: true}
}

// Serve implements Handler.
func (r *RespondStage) Serve(ctx context.Context, conn api.Conn) (any, error) {
	if !r.interested(conn) {
		return r.next.Serve(ctx, conn)
	}

	result, err := r.next.Serve(ctx, conn)
	if err != nil {
		var decodeErr *api.DecodeError
		if !errors.As(err, &decodeErr) {
			return nil, err
		}
		result = response.Error(http.StatusBadRequest, decodeErr.Error())
	}
	if result == nil {
		return nil, nil
	}

	if r.prepareOnly {
		if s, ok := result.(response.Sendable); ok {
			return s, nil
		}
		return response.Negotiate(result)
	}

	if s, ok := result.(response.Sendable); ok {
		return nil, s.Send(ctx, conn.Send)
	}
	resp, err := response.Negotiate(result)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return nil, resp.Send(ctx, conn.Send)
}
