// Package connectivity dispatches named service calls either to an
// in-process handler or to a remote endpoint, as decided by a SQLite routes
// table that can change while the process runs.
//
//	router := connectivity.New(connectivity.WithLogger(logger))
//	router.RegisterTransport("http", connectivity.HTTPFactory(connectivity.HTTPOptions{}))
//	keeper.RegisterConnectivity(router)
//	go router.Watch(ctx, db, time.Second)
//
//	resp, err := router.Call(ctx, "tapaudit_evaluate", payload)
//
// A service with no row in the routes table falls back to its local
// handler, so a single binary works without any configuration.
package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Handler is a service function: JSON bytes in, JSON bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// TransportFactory builds a Handler for a remote endpoint from the route's
// endpoint and config columns. close may be nil.
type TransportFactory func(endpoint string, config json.RawMessage) (handler Handler, close func(), err error)

type route struct {
	Service  string
	Strategy string
	Endpoint string
	Config   json.RawMessage
}

func (rt route) key() string {
	return rt.Strategy + "|" + rt.Endpoint + "|" + string(rt.Config)
}

type remote struct {
	handler Handler
	close   func()
}

// Router is safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	locals    map[string]Handler
	remotes   map[string]remote
	routes    map[string]route
	factories map[string]TransportFactory
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		locals:    make(map[string]Handler),
		remotes:   make(map[string]remote),
		routes:    make(map[string]route),
		factories: make(map[string]TransportFactory),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterLocal registers the in-process handler for service.
func (r *Router) RegisterLocal(service string, h Handler) {
	r.mu.Lock()
	r.locals[service] = h
	r.mu.Unlock()
}

// RegisterTransport registers the factory used for routes whose strategy is
// protocol.
func (r *Router) RegisterTransport(protocol string, f TransportFactory) {
	r.mu.Lock()
	r.factories[protocol] = f
	r.mu.Unlock()
}

// Services lists the names with a local handler.
func (r *Router) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.locals))
	for name := range r.locals {
		names = append(names, name)
	}
	return names
}

// Call dispatches payload to service. A "noop" route returns (nil, nil); a
// remote route wins over the local handler; otherwise the local handler
// runs. Unknown services yield *ErrServiceNotFound.
func (r *Router) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	rem, hasRemote := r.remotes[service]
	local := r.locals[service]
	rt, hasRoute := r.routes[service]
	r.mu.RUnlock()

	if hasRoute && rt.Strategy == "noop" {
		r.logger.DebugContext(ctx, "connectivity: noop", "service", service)
		return nil, nil
	}
	if hasRemote {
		r.logger.DebugContext(ctx, "connectivity: remote",
			"service", service, "strategy", rt.Strategy, "endpoint", rt.Endpoint)
		return rem.handler(ctx, payload)
	}
	if local != nil {
		return local(ctx, payload)
	}
	return nil, &ErrServiceNotFound{Service: service}
}

// Reload reads the routes table and rebuilds remote handlers. Routes whose
// strategy, endpoint and config are unchanged keep their handler. A route
// whose factory is missing or fails is skipped and logged.
func (r *Router) Reload(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}') FROM routes`)
	if err != nil {
		return fmt.Errorf("connectivity: query routes: %w", err)
	}
	defer rows.Close()

	next := make(map[string]route)
	for rows.Next() {
		var rt route
		var cfg string
		if err := rows.Scan(&rt.Service, &rt.Strategy, &rt.Endpoint, &cfg); err != nil {
			return fmt.Errorf("connectivity: scan route: %w", err)
		}
		rt.Config = json.RawMessage(cfg)
		next[rt.Service] = rt
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("connectivity: rows: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	built := make(map[string]remote, len(next))
	for name, rt := range next {
		if rt.Strategy == "local" || rt.Strategy == "noop" {
			continue
		}
		if old, ok := r.routes[name]; ok && old.key() == rt.key() {
			if existing, ok := r.remotes[name]; ok {
				built[name] = existing
				continue
			}
		}
		factory, ok := r.factories[rt.Strategy]
		if !ok {
			r.logger.Warn("connectivity: no transport factory",
				"service", name, "strategy", rt.Strategy)
			continue
		}
		h, closeFn, err := factory(rt.Endpoint, rt.Config)
		if err != nil {
			r.logger.Error("connectivity: factory failed",
				"service", name, "strategy", rt.Strategy, "endpoint", rt.Endpoint, "error", err)
			continue
		}
		built[name] = remote{handler: h, close: closeFn}
	}

	for name, old := range r.remotes {
		if old.close == nil {
			continue
		}
		if _, kept := built[name]; !kept || r.routes[name].key() != next[name].key() {
			old.close()
		}
	}

	r.remotes = built
	r.routes = next
	r.logger.Info("connectivity: routes reloaded", "total", len(next), "remote", len(built))
	return nil
}

// Close releases every remote handler.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.remotes {
		if rem.close != nil {
			rem.close()
		}
	}
	r.remotes = make(map[string]remote)
	r.routes = make(map[string]route)
	return nil
}
