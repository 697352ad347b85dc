package response

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rhuss/relais/pkg/api"
)

// Response is a buffered response: a status code, headers, and the
// complete body. The zero status is sent as 200.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates an empty response with the given status.
func New(status int) *Response {
	return &Response{Status: status, Header: http.Header{}}
}

// Text builds a plain-text response.
func Text(status int, body string) *Response {
	r := New(status)
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// HTML builds an HTML response.
func HTML(status int, body string) *Response {
	r := New(status)
	r.Header.Set("Content-Type", "text/html; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// JSON builds a response with v marshaled as the JSON body.
func JSON(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := New(status)
	r.Header.Set("Content-Type", "application/json")
	r.Body = data
	return r, nil
}

// Redirect builds a redirect response pointing at location.
func Redirect(status int, location string) *Response {
	r := New(status)
	r.Header.Set("Location", location)
	return r
}

// Error builds a plain-text error response. An empty message falls back
// to the standard status text.
func Error(status int, message string) *Response {
	if message == "" {
		message = http.StatusText(status)
	}
	return Text(status, message)
}

// SetCookie appends a Set-Cookie header for c.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
}

// Events builds the canonical sendable sequence for the response: one
// response.start event carrying the status and lowercase header byte
// pairs, then one final response.body event. A content-length header is
// added when none is set.
func (r *Response) Events() []api.Event {
	headers := make([]api.RawHeader, 0, len(r.Header)+1)
	for _, name := range slices.Sorted(maps.Keys(r.Header)) {
		for _, v := range r.Header[name] {
			headers = append(headers, api.RawHeader{
				Name:  []byte(strings.ToLower(name)),
				Value: []byte(v),
			})
		}
	}
	if r.Header.Get("Content-Length") == "" {
		headers = append(headers, api.RawHeader{
			Name:  []byte("content-length"),
			Value: []byte(strconv.Itoa(len(r.Body))),
		})
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	return []api.Event{
		{Type: api.EventResponseStart, Status: status, Headers: headers},
		{Type: api.EventResponseBody, Body: r.Body},
	}
}

// Send forwards the response's event sequence to the transport.
func (r *Response) Send(ctx context.Context, send api.SendFunc) error {
	if send == nil {
		return api.ErrNoSend
	}
	for _, ev := range r.Events() {
		if err := send(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Sendable is anything that emits itself as a finite, ordered event
// sequence through a transport send operation. *Response implements it;
// application types with custom framing can too.
type Sendable interface {
	Send(ctx context.Context, send api.SendFunc) error
}

// Negotiate normalizes a handler result into a response under the fixed
// convention: nil stays nil (nothing further to send), a *Response passes
// through unchanged, a string or []byte becomes a 200 text/plain
// response, and any other value is marshaled into a 200 application/json
// response. A marshal failure is the only error case.
func Negotiate(result any) (*Response, error) {
	switch v := result.(type) {
	case nil:
		return nil, nil
	case *Response:
		return v, nil
	case string:
		return Text(http.StatusOK, v), nil
	case []byte:
		r := Text(http.StatusOK, "")
		r.Body = v
		return r, nil
	default:
		return JSON(http.StatusOK, v)
	}
}
