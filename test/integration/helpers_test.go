// Package integration provides end-to-end tests for the relais gateway.
//
// Tests run against real HTTP servers assembled the way cmd/server does
// it, started in-process using net/http/httptest: an open demo app and a
// bearer-protected app.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/relais/pkg/auth"
	"github.com/rhuss/relais/pkg/observability"
	"github.com/rhuss/relais/pkg/request"
	"github.com/rhuss/relais/pkg/router"
	"github.com/rhuss/relais/pkg/transport"
	transporthttp "github.com/rhuss/relais/pkg/transport/http"
)

// authSecret signs the bearer tokens accepted by the protected app.
const authSecret = "integration-secret"

// maxBodySize caps request bodies on the open app so oversize handling
// can be exercised.
const maxBodySize = 1 << 20

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the open and the bearer-protected server.
type TestEnvironment struct {
	Server     *httptest.Server
	AuthServer *httptest.Server
}

// TestMain starts both servers before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

func setupTestEnvironment() *TestEnvironment {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	open := transport.NewApp(transport.WithMiddleware(
		observability.Metrics(),
		transport.RequestID(),
		transport.Logging(logger),
		transport.Recovery(),
	))
	router.Must(open.Route("/health", healthHandler, "GET"))
	router.Must(open.Route("/echo", echoHandler))
	router.Must(open.Route("/parse", parseHandler, "POST"))
	router.Must(open.Route("/boom", func(ctx context.Context, req *request.Request) (any, error) {
		panic("kaboom")
	}))

	openServer := transporthttp.NewServer(open,
		transporthttp.WithMaxBodySize(maxBodySize),
		transporthttp.WithLogger(logger),
		transporthttp.WithHTTPRoute("/metrics", promhttp.Handler()),
	)

	protected := transport.NewApp(transport.WithMiddleware(
		transport.Recovery(),
		auth.Bearer(auth.Config{Secret: []byte(authSecret)}),
	))
	router.Must(protected.Route("/health", healthHandler, "GET"))
	router.Must(protected.Route("/whoami", whoamiHandler, "GET"))

	protectedServer := transporthttp.NewServer(protected,
		transporthttp.WithLogger(logger),
	)

	return &TestEnvironment{
		Server:     httptest.NewServer(openServer.Handler()),
		AuthServer: httptest.NewServer(protectedServer.Handler()),
	}
}

// Teardown stops both servers.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
	if env.AuthServer != nil {
		env.AuthServer.Close()
	}
}

// BaseURL returns the open server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// AuthURL returns the protected server base URL.
func (env *TestEnvironment) AuthURL() string {
	return env.AuthServer.URL
}

// --- Route handlers ---

func healthHandler(ctx context.Context, req *request.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

// echoHandler reflects the request back, the same shape cmd/server serves.
func echoHandler(ctx context.Context, req *request.Request) (any, error) {
	body, err := req.Text(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"method":  req.Method(),
		"path":    req.Path(),
		"query":   req.Query(),
		"cookies": req.Cookies(),
		"body":    body,
	}, nil
}

func parseHandler(ctx context.Context, req *request.Request) (any, error) {
	return req.JSON(ctx)
}

func whoamiHandler(ctx context.Context, req *request.Request) (any, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, nil
	}
	return map[string]any{"subject": id.Subject, "scopes": id.Scopes}, nil
}

// --- HTTP helpers ---

// getURL sends a GET request and returns the response.
func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// postBody sends a POST request with the given content type and body.
func postBody(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// doRequest sends a request with optional extra headers.
func doRequest(t *testing.T, method, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("creating %s request: %v", method, err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// signToken issues an HS256 token for the protected app. An expiry is
// added when the claims carry none.
func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}
