package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/relais/pkg/api"
)

func lifecycleConn(recorder *sendRecorder, events ...api.Event) api.Conn {
	return api.Conn{
		Scope:   lifecycleScope(),
		Receive: eventScript(events...),
		Send:    recorder.send,
	}
}

func TestLifespanStartupAndShutdown(t *testing.T) {
	var order []string
	stage := Lifespan(nil)
	stage.OnStartup(func(ctx context.Context) error {
		order = append(order, "startup-1")
		return nil
	})
	stage.OnStartup(func(ctx context.Context) error {
		order = append(order, "startup-2")
		return nil
	})
	stage.OnShutdown(func(ctx context.Context) error {
		order = append(order, "shutdown")
		return nil
	})

	if stage.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", stage.State())
	}

	recorder := &sendRecorder{}
	conn := lifecycleConn(recorder,
		api.Event{Type: api.EventLifecycleStartup},
		api.Event{Type: api.EventLifecycleShutdown},
	)

	result, err := stage.Serve(context.Background(), conn)
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}

	wantOrder := []string{"startup-1", "startup-2", "shutdown"}
	if len(order) != len(wantOrder) {
		t.Fatalf("hook order = %v, want %v", order, wantOrder)
	}
	for i, name := range wantOrder {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
	}

	if len(recorder.events) != 2 {
		t.Fatalf("sent %d events, want 2: %v", len(recorder.events), recorder.events)
	}
	if recorder.events[0].Type != api.EventLifecycleStartupComplete {
		t.Errorf("events[0] = %q, want startup complete", recorder.events[0].Type)
	}
	if recorder.events[1].Type != api.EventLifecycleShutdownComplete {
		t.Errorf("events[1] = %q, want shutdown complete", recorder.events[1].Type)
	}

	if stage.State() != StateStopped {
		t.Errorf("final state = %v, want stopped", stage.State())
	}
}

func TestLifespanIgnoresUnknownEvents(t *testing.T) {
	stage := Lifespan(nil)

	recorder := &sendRecorder{}
	conn := lifecycleConn(recorder,
		api.Event{Type: "lifecycle.ping"},
		api.Event{Type: api.EventLifecycleStartup},
		api.Event{Type: "request.body"},
		api.Event{Type: api.EventLifecycleShutdown},
	)

	if _, err := stage.Serve(context.Background(), conn); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if len(recorder.events) != 2 {
		t.Fatalf("sent %d events, want 2: %v", len(recorder.events), recorder.events)
	}
}

func TestLifespanStartupFailureSkipsAck(t *testing.T) {
	bootErr := errors.New("database unreachable")
	var ran []string

	stage := Lifespan(nil)
	stage.OnStartup(func(ctx context.Context) error {
		ran = append(ran, "first")
		return bootErr
	})
	stage.OnStartup(func(ctx context.Context) error {
		ran = append(ran, "second")
		return nil
	})

	recorder := &sendRecorder{}
	conn := lifecycleConn(recorder, api.Event{Type: api.EventLifecycleStartup})

	_, err := stage.Serve(context.Background(), conn)
	if !errors.Is(err, bootErr) {
		t.Fatalf("err = %v, want %v", err, bootErr)
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Errorf("hooks ran = %v, want only the first", ran)
	}
	if len(recorder.events) != 0 {
		t.Errorf("sent %d events, want none: %v", len(recorder.events), recorder.events)
	}
	if stage.State() != StateIdle {
		t.Errorf("state = %v, want idle after failed startup", stage.State())
	}
}

func TestLifespanShutdownFailureSkipsAck(t *testing.T) {
	stopErr := errors.New("flush failed")
	stage := Lifespan(nil)
	stage.OnShutdown(func(ctx context.Context) error { return stopErr })

	recorder := &sendRecorder{}
	conn := lifecycleConn(recorder,
		api.Event{Type: api.EventLifecycleStartup},
		api.Event{Type: api.EventLifecycleShutdown},
	)

	_, err := stage.Serve(context.Background(), conn)
	if !errors.Is(err, stopErr) {
		t.Fatalf("err = %v, want %v", err, stopErr)
	}
	if len(recorder.events) != 1 || recorder.events[0].Type != api.EventLifecycleStartupComplete {
		t.Errorf("sent events = %v, want only startup complete", recorder.events)
	}
	if stage.State() != StateStarted {
		t.Errorf("state = %v, want started after failed shutdown", stage.State())
	}
}

func TestLifespanRequiresOperations(t *testing.T) {
	stage := Lifespan(nil)

	_, err := stage.Serve(context.Background(), api.Conn{Scope: lifecycleScope(), Send: (&sendRecorder{}).send})
	if !errors.Is(err, api.ErrNoReceive) {
		t.Errorf("missing receive err = %v, want ErrNoReceive", err)
	}

	_, err = stage.Serve(context.Background(), api.Conn{Scope: lifecycleScope(), Receive: eventScript()})
	if !errors.Is(err, api.ErrNoSend) {
		t.Errorf("missing send err = %v, want ErrNoSend", err)
	}
}

func TestLifespanStateString(t *testing.T) {
	tests := []struct {
		state LifespanState
		want  string
	}{
		{StateIdle, "idle"},
		{StateStarted, "started"},
		{StateStopped, "stopped"},
		{LifespanState(42), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}
