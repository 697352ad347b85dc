package clienttest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/transport"
)

// Startup opens a lifecycle connection to the handler and delivers the
// startup event, waiting for the acknowledgement. Call it before Do when
// the application has startup hooks.
func (c *Client) Startup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle != nil {
		return errors.New("lifecycle already running")
	}

	driver := newLifecycleDriver()
	go driver.run(context.Background(), c.app)
	if err := driver.signal(ctx, api.EventLifecycleStartup, api.EventLifecycleStartupComplete); err != nil {
		return err
	}
	c.lifecycle = driver
	return nil
}

// Shutdown delivers the shutdown event on the lifecycle connection opened
// by Startup and waits for the connection to end.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle == nil {
		return errors.New("lifecycle not running")
	}
	driver := c.lifecycle
	c.lifecycle = nil

	if err := driver.signal(ctx, api.EventLifecycleShutdown, api.EventLifecycleShutdownComplete); err != nil {
		return err
	}
	select {
	case err := <-driver.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lifecycleDriver feeds lifecycle events into the application and
// collects the acknowledgements, playing the transport side of the
// lifecycle connection.
type lifecycleDriver struct {
	signals chan api.EventType
	acks    chan api.Event
	result  chan error
}

func newLifecycleDriver() *lifecycleDriver {
	return &lifecycleDriver{
		signals: make(chan api.EventType),
		acks:    make(chan api.Event),
		result:  make(chan error, 1),
	}
}

func (d *lifecycleDriver) conn() api.Conn {
	return api.Conn{
		Scope: &api.Scope{Type: api.TypeLifecycle},
		Receive: func(ctx context.Context) (api.Event, error) {
			select {
			case t := <-d.signals:
				return api.Event{Type: t}, nil
			case <-ctx.Done():
				return api.Event{}, ctx.Err()
			}
		},
		Send: func(ctx context.Context, ev api.Event) error {
			select {
			case d.acks <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

func (d *lifecycleDriver) run(ctx context.Context, app transport.Handler) {
	_, err := app.Serve(ctx, d.conn())
	d.result <- err
}

// signal delivers one lifecycle event and waits for the expected
// acknowledgement. A hook failure surfaces as the loop's error instead
// of an acknowledgement.
func (d *lifecycleDriver) signal(ctx context.Context, event, ack api.EventType) error {
	select {
	case d.signals <- event:
	case err := <-d.result:
		if err != nil {
			return err
		}
		return errors.New("lifecycle connection ended early")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case got := <-d.acks:
		if got.Type != ack {
			return fmt.Errorf("unexpected lifecycle acknowledgement %q", got.Type)
		}
		return nil
	case err := <-d.result:
		if err != nil {
			return err
		}
		return errors.New("lifecycle connection ended without acknowledgement")
	case <-ctx.Done():
		return ctx.Err()
	}
}
