package transport

import (
	"context"

	"github.com/rhuss/relais/pkg/api"
	"github.com/rhuss/relais/pkg/router"
)

// App is the canonical assembly of the built-in stages around a routed
// application. The chain is, outermost first: lifecycle handling,
// request binding, response sending, user middleware, response
// preparation, routing. Routed handlers return values in the response
// conventions; the response stages normalize and send them. Connections
// that match no route are answered by the fallback handler, an HTML 404
// page unless configured otherwise.
type App struct {
	handler  Handler
	lifespan *LifespanStage
	router   *router.Router
}

// AppOption configures the assembly of an App.
type AppOption func(*appConfig)

type appConfig struct {
	routerOpts []router.Option
	middleware []Middleware
	fallback   Handler
}

// WithMiddleware adds middleware between the sending and preparing
// response stages. The middleware sees normalized responses coming up
// from the inner application and can replace or decorate them before
// they are sent.
func WithMiddleware(middleware ...Middleware) AppOption {
	return func(cfg *appConfig) {
		cfg.middleware = append(cfg.middleware, middleware...)
	}
}

// WithFallback replaces the default 404 handler for connections that
// match no route.
func WithFallback(h Handler) AppOption {
	return func(cfg *appConfig) { cfg.fallback = h }
}

// WithTrimTrailingSlash makes routing treat "/users/" and "/users" alike.
func WithTrimTrailingSlash() AppOption {
	return func(cfg *appConfig) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithTrimTrailingSlash())
	}
}

// NewApp assembles an application.
func NewApp(opts ...AppOption) *App {
	var cfg appConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := router.New(cfg.routerOpts...)

	var h Handler = Route(cfg.fallback, r)
	h = PrepareResponses(h)
	h = Combine(h, cfg.middleware...)
	h = Respond(h)
	h = BindRequest(h)
	lifespan := Lifespan(h)

	return &App{handler: lifespan, lifespan: lifespan, router: r}
}

// Serve implements Handler by running the connection through the full
// stage chain.
func (a *App) Serve(ctx context.Context, conn api.Conn) (any, error) {
	return a.handler.Serve(ctx, conn)
}

// Route registers handler for pattern. See router.Router.Handle for the
// pattern and method rules.
func (a *App) Route(pattern string, handler router.HandlerFunc, methods ...string) error {
	return a.router.Handle(pattern, handler, methods...)
}

// OnStartup registers startup hooks.
func (a *App) OnStartup(hooks ...Hook) {
	a.lifespan.OnStartup(hooks...)
}

// OnShutdown registers shutdown hooks.
func (a *App) OnShutdown(hooks ...Hook) {
	a.lifespan.OnShutdown(hooks...)
}

// State reports the lifecycle state of the application.
func (a *App) State() LifespanState {
	return a.lifespan.State()
}
