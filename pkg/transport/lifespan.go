package transport

import (
	"context"
	"sync"

	"github.com/rhuss/relais/pkg/api"
)

// Hook is a lifecycle callback run during startup or shutdown.
type Hook func(ctx context.Context) error

// LifespanState reports how far a lifecycle connection has progressed.
type LifespanState int

const (
	// StateIdle means no startup event has been processed yet.
	StateIdle LifespanState = iota
	// StateStarted means the startup hooks completed.
	StateStarted
	// StateStopped means the shutdown hooks completed.
	StateStopped
)

func (s LifespanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// LifespanStage owns lifecycle connections. It loops over incoming
// lifecycle events: a startup event runs the registered startup hooks
// and acknowledges with lifecycle.startup.complete; a shutdown event
// runs the shutdown hooks, acknowledges with lifecycle.shutdown.complete,
// and ends the connection. Events of any other kind are ignored and the
// loop continues.
//
// Hooks run sequentially in registration order. A failing hook aborts
// the sequence and its error propagates without an acknowledgement, so
// the transport can refuse to start or report a failed stop.
//
// Connections of other types pass through to the inner handler untouched.
type LifespanStage struct {
	stage

	mu       sync.Mutex
	state    LifespanState
	startup  []Hook
	shutdown []Hook
}

var _ Stage = (*LifespanStage)(nil)

// Lifespan creates a lifecycle stage around next.
func Lifespan(next Handler) *LifespanStage {
	return &LifespanStage{stage: newStage(next, api.TypeLifecycle)}
}

// OnStartup registers hooks to run when a startup event arrives.
func (l *LifespanStage) OnStartup(hooks ...Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startup = append(l.startup, hooks...)
}

// OnShutdown registers hooks to run when a shutdown event arrives.
func (l *LifespanStage) OnShutdown(hooks ...Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdown = append(l.shutdown, hooks...)
}

// State returns the current lifecycle state. The state moves to
// StateStarted or StateStopped once the corresponding hooks have
// completed.
func (l *LifespanStage) State() LifespanState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Serve implements Handler.
func (l *LifespanStage) Serve(ctx context.Context, conn api.Conn) (any, error) {
	if !l.interested(conn) {
		return l.next.Serve(ctx, conn)
	}
	if conn.Receive == nil {
		return nil, api.ErrNoReceive
	}
	if conn.Send == nil {
		return nil, api.ErrNoSend
	}

	for {
		ev, err := conn.Receive(ctx)
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case api.EventLifecycleStartup:
			if err := l.runHooks(ctx, l.snapshot(&l.startup)); err != nil {
				return nil, err
			}
			l.setState(StateStarted)
			if err := conn.Send(ctx, api.Event{Type: api.EventLifecycleStartupComplete}); err != nil {
				return nil, err
			}
		case api.EventLifecycleShutdown:
			if err := l.runHooks(ctx, l.snapshot(&l.shutdown)); err != nil {
				return nil, err
			}
			l.setState(StateStopped)
			return nil, conn.Send(ctx, api.Event{Type: api.EventLifecycleShutdownComplete})
		}
	}
}

func (l *LifespanStage) runHooks(ctx context.Context, hooks []Hook) error {
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *LifespanStage) snapshot(hooks *[]Hook) []Hook {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Hook, len(*hooks))
	copy(out, *hooks)
	return out
}

func (l *LifespanStage) setState(s LifespanState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
