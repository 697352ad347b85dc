package clienttest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rhuss/relais/pkg/api"
)

type requestConfig struct {
	headers     []api.RawHeader
	cookies     []string
	body        []byte
	contentType string
	query       string
	querySet    bool
	err         error
}

// Option adjusts one request before it is delivered.
type Option func(*requestConfig)

// WithHeader adds a request header.
func WithHeader(name, value string) Option {
	return func(cfg *requestConfig) {
		cfg.headers = append(cfg.headers, api.RawHeader{
			Name:  []byte(strings.ToLower(name)),
			Value: []byte(value),
		})
	}
}

// WithBody sets the raw request body.
func WithBody(body []byte) Option {
	return func(cfg *requestConfig) {
		cfg.body = body
	}
}

// WithJSON encodes v as the request body and sets the content type.
func WithJSON(v any) Option {
	return func(cfg *requestConfig) {
		data, err := json.Marshal(v)
		if err != nil {
			cfg.err = fmt.Errorf("encoding request body: %w", err)
			return
		}
		cfg.body = data
		cfg.contentType = "application/json"
	}
}

// WithForm encodes values as a form request body and sets the content
// type.
func WithForm(values url.Values) Option {
	return func(cfg *requestConfig) {
		cfg.body = []byte(values.Encode())
		cfg.contentType = "application/x-www-form-urlencoded"
	}
}

// WithQuery replaces the query string of the target URL.
func WithQuery(values url.Values) Option {
	return func(cfg *requestConfig) {
		cfg.query = values.Encode()
		cfg.querySet = true
	}
}

// WithCookie adds a cookie to the request. Multiple cookies are joined
// into a single cookie header.
func WithCookie(name, value string) Option {
	return func(cfg *requestConfig) {
		cfg.cookies = append(cfg.cookies, name+"="+value)
	}
}
