package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/health")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}

	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestUnknownPathGets404(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/nowhere")

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q, want text/html", ct)
	}
	if body := readBody(t, resp); body != "Not Found" {
		t.Errorf("body = %q, want Not Found", body)
	}
}

func TestMethodMismatchGets404(t *testing.T) {
	resp := doRequest(t, http.MethodDelete, testEnv.BaseURL()+"/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unrouted method", resp.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	resp := doRequest(t, http.MethodGet, testEnv.BaseURL()+"/health", map[string]string{
		"X-Request-ID": "integration-42",
	})
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "integration-42" {
		t.Errorf("x-request-id = %q, want integration-42", got)
	}
}
