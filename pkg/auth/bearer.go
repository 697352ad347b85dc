package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/response"
	"github.com/rhuss/relais/pkg/transport"
)

// Config holds the bearer authentication configuration.
type Config struct {
	// Secret is the HMAC key tokens must be signed with.
	Secret []byte

	// Issuer is the expected token issuer (iss claim). If empty, issuer
	// is not validated.
	Issuer string

	// Audience is the expected token audience (aud claim). If empty,
	// audience is not validated.
	Audience string

	// Bypass lists request paths that skip authentication. Nil means
	// DefaultBypassPaths; an empty non-nil slice disables bypassing.
	Bypass []string
}

// DefaultBypassPaths lists paths that skip authentication.
var DefaultBypassPaths = []string{"/health", "/metrics"}

// Bearer returns a middleware stage that authenticates request
// connections. Message and lifecycle connections pass through untouched,
// as do requests whose path is on the bypass list. Every other request
// must carry a valid HS256-signed token in the Authorization header: on
// success the caller identity is attached to the context for the rest of
// the chain, on failure the chain is short-circuited with a 401 result.
func Bearer(cfg Config) transport.Middleware {
	if cfg.Bypass == nil {
		cfg.Bypass = DefaultBypassPaths
	}
	bypass := make(map[string]bool, len(cfg.Bypass))
	for _, p := range cfg.Bypass {
		bypass[p] = true
	}

	parser := jwt.NewParser(parserOptions(cfg)...)

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, conn api.Conn) (any, error) {
			scope := conn.Scope
			if scope == nil || scope.Type != api.TypeRequest {
				return next.Serve(ctx, conn)
			}
			if bypass[scope.Path] {
				return next.Serve(ctx, conn)
			}

			identity, err := authenticate(parser, cfg.Secret, scope)
			if err != nil {
				slog.Warn("authentication failed",
					"path", scope.Path,
					"error", err,
				)
				return unauthorized(), nil
			}

			slog.Debug("authentication succeeded",
				"subject", identity.Subject,
				"path", scope.Path,
			)

			return next.Serve(SetIdentity(ctx, identity), conn)
		})
	}
}

// authenticate extracts the bearer token from the connection headers and
// validates it.
func authenticate(parser *jwt.Parser, secret []byte, scope *api.Scope) (*Identity, error) {
	header := headerValue(scope, "authorization")
	if header == "" {
		return nil, errors.New("missing authorization header")
	}

	// Must be Bearer token.
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("authorization header is not a bearer token")
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		return nil, errors.New("empty bearer token")
	}

	token, err := parser.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	subject := claimString(claims, "sub")
	if subject == "" {
		return nil, errors.New("token missing sub claim")
	}

	return &Identity{
		Subject: subject,
		Scopes:  extractScopes(claims),
		Claims:  claims,
	}, nil
}

// parserOptions builds token parser options from the configuration.
func parserOptions(cfg Config) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}

	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return opts
}

// unauthorized builds the rejection result for failed authentication. The
// sending stage upstream turns it into the wire response.
func unauthorized() *response.Response {
	r := response.New(http.StatusUnauthorized)
	r.Header.Set("Content-Type", "application/json")
	r.Body = []byte(`{"error":{"type":"invalid_request","message":"authentication required"}}`)
	return r
}

// headerValue returns the first header matching name. Names are
// conventionally lowercase on the wire; the comparison is
// case-insensitive.
func headerValue(scope *api.Scope, name string) string {
	for _, h := range scope.Headers {
		if strings.EqualFold(string(h.Name), name) {
			return string(h.Value)
		}
	}
	return ""
}

// claimString extracts a string value from the claim set. Returns empty
// string if the claim is missing or not a string.
func claimString(claims jwt.MapClaims, key string) string {
	val, ok := claims[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}

// extractScopes extracts authorization scopes from the "scope" claim. The
// value can be a space-separated string or a JSON array.
func extractScopes(claims jwt.MapClaims) []string {
	val, ok := claims["scope"]
	if !ok {
		return nil
	}

	// Case 1: space-separated string (e.g. "read write admin")
	if s, ok := val.(string); ok {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			return nil
		}
		return parts
	}

	// Case 2: JSON array (e.g. ["read", "write", "admin"])
	if arr, ok := val.([]any); ok {
		var scopes []string
		for _, item := range arr {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) == 0 {
			return nil
		}
		return scopes
	}

	return nil
}
