// Command server runs the relais demo gateway.
//
// Configuration is loaded from a YAML file discovered at ./config.yaml or
// /etc/relais/config.yaml (override the location with RELAIS_CONFIG),
// then overridden by environment variables:
//
//	RELAIS_PORT            - Listen port (default: 8080)
//	RELAIS_AUTH_TYPE       - Authentication: "none" or "bearer"
//	RELAIS_AUTH_SECRET     - Shared secret for bearer tokens
//	RELAIS_METRICS_ENABLED - Expose Prometheus metrics (default: true)
//	RELAIS_LOG_LEVEL       - debug, info, warn or error (default: info)
//	RELAIS_LOG_FORMAT      - text or json (default: text)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/relais/pkg/auth"
	"github.com/rhuss/relais/pkg/config"
	"github.com/rhuss/relais/pkg/observability"
	"github.com/rhuss/relais/pkg/request"
	"github.com/rhuss/relais/pkg/transport"
	transporthttp "github.com/rhuss/relais/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Assemble the middleware chain, outermost first. Metrics wraps
	// everything so rejected and recovered connections are counted too;
	// authentication sits innermost so refused requests still get logged.
	middleware := []transport.Middleware{
		observability.Metrics(),
		transport.RequestID(),
		transport.Logging(logger),
		transport.Recovery(),
	}
	if cfg.Auth.Type == "bearer" {
		middleware = append(middleware, auth.Bearer(auth.Config{
			Secret:   []byte(cfg.Auth.Secret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Bypass:   cfg.Auth.Bypass,
		}))
		logger.Info("bearer authentication enabled")
	}

	app := transport.NewApp(transport.WithMiddleware(middleware...))
	if err := app.Route("/health", health, "GET"); err != nil {
		return err
	}
	if err := app.Route("/echo", echo); err != nil {
		return err
	}
	app.OnStartup(func(ctx context.Context) error {
		logger.Info("application starting")
		return nil
	})
	app.OnShutdown(func(ctx context.Context) error {
		logger.Info("application stopped")
		return nil
	})

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	}
	if cfg.Server.RootPath != "" {
		opts = append(opts, transporthttp.WithRootPath(cfg.Server.RootPath))
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithHTTPRoute(cfg.Observability.Metrics.Path, promhttp.Handler()))
		logger.Info("metrics endpoint enabled", slog.String("path", cfg.Observability.Metrics.Path))
	}

	srv := transporthttp.NewServer(app, opts...)
	return srv.ListenAndServe()
}

func health(ctx context.Context, req *request.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

// echo reflects the request back at the caller, showing what the
// application saw after the transport normalized the connection.
func echo(ctx context.Context, req *request.Request) (any, error) {
	body, err := req.Text(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	for name, values := range req.Headers() {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	result := map[string]any{
		"method":  req.Method(),
		"path":    req.Path(),
		"query":   req.Query(),
		"headers": headers,
		"cookies": req.Cookies(),
		"body":    body,
	}
	if id := auth.IdentityFromContext(ctx); id != nil {
		result["subject"] = id.Subject
	}
	return result, nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
