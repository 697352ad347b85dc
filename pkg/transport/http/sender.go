package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/relais/pkg/api"
)

// senderState tracks the state of a responseSender.
type senderState int

const (
	senderIdle      senderState = iota // no events written yet
	senderStreaming                    // response.start written, body may continue
	senderCompleted                    // final body chunk written
)

// responseSender maps send events onto an http.ResponseWriter.
// response.start writes the status line and headers; response.body
// writes a chunk and flushes when more chunks follow, so long-lived
// streams reach the client incrementally.
type responseSender struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state senderState
}

func newResponseSender(w http.ResponseWriter) *responseSender {
	return &responseSender{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// send implements api.SendFunc.
func (s *responseSender) send(ctx context.Context, ev api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case api.EventResponseStart:
		if s.state != senderIdle {
			return errors.New("response already started")
		}
		for _, h := range ev.Headers {
			s.w.Header().Add(string(h.Name), string(h.Value))
		}
		status := ev.Status
		if status == 0 {
			status = http.StatusOK
		}
		s.w.WriteHeader(status)
		s.state = senderStreaming
		return nil

	case api.EventResponseBody:
		if s.state == senderIdle {
			return errors.New("response.body before response.start")
		}
		if s.state == senderCompleted {
			return errors.New("response already completed")
		}
		if len(ev.Body) > 0 {
			if _, err := s.w.Write(ev.Body); err != nil {
				return fmt.Errorf("write body chunk: %w", err)
			}
		}
		if !ev.More {
			s.state = senderCompleted
			return nil
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("flush body chunk: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("event type %q not supported by the HTTP bridge", ev.Type)
	}
}

// started reports whether the status line has been written.
func (s *responseSender) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != senderIdle
}
