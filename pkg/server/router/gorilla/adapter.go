// Package gorilla implements router.Router on gorilla/mux.
package gorilla

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nimburion/serverconf/pkg/server/router"
)

// Router implements router.Router using gorilla/mux.
type Router struct {
	mux        *mux.Router
	middleware []router.MiddlewareFunc
}

// NewRouter creates a Router over a fresh mux router.
func NewRouter() *Router {
	return &Router{mux: mux.NewRouter()}
}

// Mux exposes the underlying mux router so the engine factory can apply
// engine-specific settings.
func (r *Router) Mux() *mux.Router {
	return r.mux
}

// Handle registers a handler for one method and path. ":name" parameter
// segments are translated to mux's "{name}" form.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	chain := make([]router.MiddlewareFunc, 0, len(r.middleware)+len(middleware))
	chain = append(chain, r.middleware...)
	chain = append(chain, middleware...)

	r.mux.HandleFunc(toMuxPath(path), func(w http.ResponseWriter, req *http.Request) {
		ctx := router.NewBaseContext(w, req, func(name string) string {
			return mux.Vars(req)[name]
		})
		wrapped := router.Chain(handler, chain)
		if err := wrapped(ctx); err != nil && !ctx.Response().Written() {
			http.Error(ctx.Response(), err.Error(), http.StatusInternalServerError)
		}
	}).Methods(method)
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

// Group creates a sub-router with prefix and middleware.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	combined := make([]router.MiddlewareFunc, 0, len(r.middleware)+len(middleware))
	combined = append(combined, r.middleware...)
	combined = append(combined, middleware...)

	return &Router{
		mux:        r.mux.PathPrefix(prefix).Subrouter(),
		middleware: combined,
	}
}

// Use appends middleware applied to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func toMuxPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}
