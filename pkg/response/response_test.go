package response

import (
	"context"
	"net/http"
	"testing"

	"github.com/rhuss/relais/pkg/api"
)

// headerValue finds a header by name in a raw header list.
func headerValue(headers []api.RawHeader, name string) (string, bool) {
	for _, h := range headers {
		if string(h.Name) == name {
			return string(h.Value), true
		}
	}
	return "", false
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name        string
		resp        *Response
		status      int
		contentType string
		body        string
	}{
		{
			name:        "text",
			resp:        Text(http.StatusOK, "hello"),
			status:      200,
			contentType: "text/plain; charset=utf-8",
			body:        "hello",
		},
		{
			name:        "html",
			resp:        HTML(http.StatusAccepted, "<p>hi</p>"),
			status:      202,
			contentType: "text/html; charset=utf-8",
			body:        "<p>hi</p>",
		},
		{
			name:        "error_default_message",
			resp:        Error(http.StatusNotFound, ""),
			status:      404,
			contentType: "text/plain; charset=utf-8",
			body:        "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Status != tt.status {
				t.Errorf("status = %d, want %d", tt.resp.Status, tt.status)
			}
			if got := tt.resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("content type = %q, want %q", got, tt.contentType)
			}
			if string(tt.resp.Body) != tt.body {
				t.Errorf("body = %q, want %q", tt.resp.Body, tt.body)
			}
		})
	}
}

func TestJSONConstructor(t *testing.T) {
	resp, err := JSON(http.StatusCreated, map[string]any{"id": 7})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if resp.Status != 201 {
		t.Errorf("status = %d, want 201", resp.Status)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q, want application/json", got)
	}
	if string(resp.Body) != `{"id":7}` {
		t.Errorf("body = %q, want %q", resp.Body, `{"id":7}`)
	}

	if _, err := JSON(http.StatusOK, make(chan int)); err == nil {
		t.Error("expected marshal error for unsupported value")
	}
}

func TestRedirect(t *testing.T) {
	resp := Redirect(http.StatusTemporaryRedirect, "/elsewhere")
	if resp.Status != 307 {
		t.Errorf("status = %d, want 307", resp.Status)
	}
	if got := resp.Header.Get("Location"); got != "/elsewhere" {
		t.Errorf("location = %q, want /elsewhere", got)
	}
}

func TestSetCookie(t *testing.T) {
	resp := Text(http.StatusOK, "ok")
	resp.SetCookie(&http.Cookie{Name: "session", Value: "abc", Path: "/"})

	got := resp.Header.Get("Set-Cookie")
	if got != "session=abc; Path=/" {
		t.Errorf("set-cookie = %q, want %q", got, "session=abc; Path=/")
	}
}

func TestEventsSequence(t *testing.T) {
	resp := Text(http.StatusOK, "hello")
	events := resp.Events()

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	start := events[0]
	if start.Type != api.EventResponseStart {
		t.Errorf("events[0].Type = %q, want %q", start.Type, api.EventResponseStart)
	}
	if start.Status != 200 {
		t.Errorf("start status = %d, want 200", start.Status)
	}
	if ct, ok := headerValue(start.Headers, "content-type"); !ok || ct != "text/plain; charset=utf-8" {
		t.Errorf("content-type header = %q (found=%v)", ct, ok)
	}
	if cl, ok := headerValue(start.Headers, "content-length"); !ok || cl != "5" {
		t.Errorf("content-length header = %q (found=%v), want 5", cl, ok)
	}

	body := events[1]
	if body.Type != api.EventResponseBody {
		t.Errorf("events[1].Type = %q, want %q", body.Type, api.EventResponseBody)
	}
	if string(body.Body) != "hello" {
		t.Errorf("body event = %q, want hello", body.Body)
	}
	if body.More {
		t.Error("final body event must have More=false")
	}
}

func TestEventsKeepExplicitContentLength(t *testing.T) {
	resp := Text(http.StatusOK, "hello")
	resp.Header.Set("Content-Length", "99")

	count := 0
	for _, h := range resp.Events()[0].Headers {
		if string(h.Name) == "content-length" {
			count++
			if string(h.Value) != "99" {
				t.Errorf("content-length = %q, want 99", h.Value)
			}
		}
	}
	if count != 1 {
		t.Errorf("content-length headers = %d, want 1", count)
	}
}

func TestEventsZeroStatusDefaultsTo200(t *testing.T) {
	resp := &Response{Header: http.Header{}}
	if got := resp.Events()[0].Status; got != 200 {
		t.Errorf("status = %d, want 200", got)
	}
}

func TestSendForwardsEvents(t *testing.T) {
	var sent []api.Event
	send := func(_ context.Context, ev api.Event) error {
		sent = append(sent, ev)
		return nil
	}

	resp := Text(http.StatusOK, "payload")
	if err := resp.Send(context.Background(), send); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(sent) != 2 {
		t.Fatalf("sent %d events, want 2", len(sent))
	}
	if sent[0].Type != api.EventResponseStart || sent[1].Type != api.EventResponseBody {
		t.Errorf("event order = [%s %s], want [response.start response.body]", sent[0].Type, sent[1].Type)
	}
}

func TestSendWithoutOperation(t *testing.T) {
	resp := Text(http.StatusOK, "x")
	if err := resp.Send(context.Background(), nil); err != api.ErrNoSend {
		t.Errorf("Send(nil) error = %v, want ErrNoSend", err)
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name        string
		result      any
		status      int
		contentType string
		body        string
	}{
		{
			name:        "string",
			result:      "plain result",
			status:      200,
			contentType: "text/plain; charset=utf-8",
			body:        "plain result",
		},
		{
			name:        "bytes",
			result:      []byte("raw"),
			status:      200,
			contentType: "text/plain; charset=utf-8",
			body:        "raw",
		},
		{
			name:        "map",
			result:      map[string]any{"a": 1},
			status:      200,
			contentType: "application/json",
			body:        `{"a":1}`,
		},
		{
			name:        "empty_map",
			result:      map[string]any{},
			status:      200,
			contentType: "application/json",
			body:        `{}`,
		},
		{
			name:        "struct",
			result:      struct{ Name string }{Name: "x"},
			status:      200,
			contentType: "application/json",
			body:        `{"Name":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Negotiate(tt.result)
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("status = %d, want %d", resp.Status, tt.status)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("content type = %q, want %q", got, tt.contentType)
			}
			if string(resp.Body) != tt.body {
				t.Errorf("body = %q, want %q", resp.Body, tt.body)
			}
		})
	}
}

func TestNegotiateNil(t *testing.T) {
	resp, err := Negotiate(nil)
	if err != nil {
		t.Fatalf("Negotiate(nil): %v", err)
	}
	if resp != nil {
		t.Errorf("Negotiate(nil) = %v, want nil", resp)
	}
}

func TestNegotiatePassthrough(t *testing.T) {
	orig := Text(http.StatusTeapot, "tea")
	resp, err := Negotiate(orig)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if resp != orig {
		t.Error("expected *Response to pass through unchanged")
	}
}

func TestNegotiateMarshalFailure(t *testing.T) {
	if _, err := Negotiate(make(chan int)); err == nil {
		t.Error("expected error for unmarshalable result")
	}
}
