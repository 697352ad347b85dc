// Package transport assembles the stage chain that carries connections
// between a low-level event transport and application handlers.
//
// A connection arrives as an api.Conn: an immutable scope plus receive
// and send operations. The stages in this package wrap one another like
// middleware and split the work of serving it:
//
//   - LifespanStage owns lifecycle connections: it runs registered
//     startup and shutdown hooks and acknowledges the transport.
//   - RequestStage binds the lazy request facade from pkg/request and
//     hands it to inner handlers through the context.
//   - RespondStage normalizes handler return values through the response
//     conventions in pkg/response and sends them; in prepare mode it
//     returns the normalized response instead, which lets applications
//     nest.
//   - RouteStage dispatches on method and path through pkg/router and
//     falls back to an inner handler when no route matches.
//
// NewApp composes these stages in their canonical order around a router
// and exposes route and hook registration.
//
// # Middleware
//
// The middleware chain wraps Handler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Custom middleware
// can be added between the sending and preparing response stages, where
// it sees normalized responses.
package transport
