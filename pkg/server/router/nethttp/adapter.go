// Package nethttp implements router.Router on net/http with a small
// segment-based pattern matcher.
package nethttp

import (
	"net/http"
	"strings"
	"sync"

	"github.com/nimburion/serverconf/pkg/server/router"
)

type route struct {
	method     string
	segments   []string
	handler    router.HandlerFunc
	middleware []router.MiddlewareFunc
}

type routeTable struct {
	mu     sync.RWMutex
	routes []route
}

// Router implements router.Router using net/http.
type Router struct {
	table      *routeTable
	prefix     string
	middleware []router.MiddlewareFunc
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{table: &routeTable{}}
}

// Handle registers a handler for one method and path.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	chain := make([]router.MiddlewareFunc, 0, len(r.middleware)+len(middleware))
	chain = append(chain, r.middleware...)
	chain = append(chain, middleware...)

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	r.table.routes = append(r.table.routes, route{
		method:     method,
		segments:   splitPath(r.prefix + path),
		handler:    handler,
		middleware: chain,
	})
}

func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodGet, path, handler, middleware...)
}

func (r *Router) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodPost, path, handler, middleware...)
}

func (r *Router) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodPut, path, handler, middleware...)
}

func (r *Router) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodDelete, path, handler, middleware...)
}

func (r *Router) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodPatch, path, handler, middleware...)
}

// Group creates a sub-router with prefix and middleware. Routes registered on
// the group land in the same table.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	combined := make([]router.MiddlewareFunc, 0, len(r.middleware)+len(middleware))
	combined = append(combined, r.middleware...)
	combined = append(combined, middleware...)
	return &Router{
		table:      r.table,
		prefix:     r.prefix + prefix,
		middleware: combined,
	}
}

// Use appends middleware applied to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rt, params, ok := r.table.match(req.Method, req.URL.Path)
	if !ok {
		http.NotFound(w, req)
		return
	}

	ctx := router.NewBaseContext(w, req, func(name string) string { return params[name] })
	handler := router.Chain(rt.handler, rt.middleware)
	if err := handler(ctx); err != nil && !ctx.Response().Written() {
		http.Error(ctx.Response(), err.Error(), http.StatusInternalServerError)
	}
}

func (t *routeTable) match(method, path string) (route, map[string]string, bool) {
	segments := splitPath(path)

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rt := range t.routes {
		if rt.method != method {
			continue
		}
		if params, ok := matchSegments(rt.segments, segments); ok {
			return rt, params, true
		}
	}
	return route{}, nil, false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// matchSegments matches path segments against a pattern whose ":name"
// segments capture parameters.
func matchSegments(pattern, actual []string) (map[string]string, bool) {
	if len(pattern) != len(actual) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = actual[i]
			continue
		}
		if seg != actual[i] {
			return nil, false
		}
	}
	return params, true
}
