// Package gin implements router.Router on gin-gonic/gin.
package gin

import (
	"net/http"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/nimburion/serverconf/pkg/server/router"
)

// Router implements router.Router using a gin engine.
type Router struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
}

// NewRouter creates a Router over a fresh gin engine in release mode.
func NewRouter() *Router {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	return &Router{engine: ginpkg.New()}
}

// Engine exposes the underlying gin engine so the engine factory can apply
// engine-specific settings.
func (r *Router) Engine() *ginpkg.Engine {
	return r.engine
}

// Handle registers a handler for one method and path.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	chain := make([]router.MiddlewareFunc, 0, len(r.middleware)+len(middleware))
	chain = append(chain, r.middleware...)
	chain = append(chain, middleware...)

	ginHandler := func(gc *ginpkg.Context) {
		ctx := newContext(gc)
		wrapped := router.Chain(handler, chain)
		if err := wrapped(ctx); err != nil && !ctx.Response().Written() {
			gc.AbortWithStatus(http.StatusInternalServerError)
		}
	}

	if r.group != nil {
		r.group.Handle(method, path, ginHandler)
		return
	}
	r.engine.Handle(method, path, ginHandler)
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

	var group *ginpkg.RouterGroup
	if r.group != nil {
		group = r.group.Group(prefix)
	} else {
		group = r.engine.Group(prefix)
	}

	return &Router{
		engine:     r.engine,
		group:      group,
		middleware: combined,
	}
}

// Use appends middleware applied to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// ginContext adapts gin.Context to router.Context.
type ginContext struct {
	gc       *ginpkg.Context
	request  *http.Request
	response router.ResponseWriter
}

func newContext(gc *ginpkg.Context) *ginContext {
	return &ginContext{
		gc:       gc,
		request:  gc.Request,
		response: &ginResponseWriter{ResponseWriter: gc.Writer},
	}
}

func (c *ginContext) Request() *http.Request { return c.request }

func (c *ginContext) SetRequest(r *http.Request) {
	c.request = r
	c.gc.Request = r
}

func (c *ginContext) Response() router.ResponseWriter     { return c.response }
func (c *ginContext) SetResponse(w router.ResponseWriter) { c.response = w }

func (c *ginContext) Param(name string) string { return c.gc.Param(name) }
func (c *ginContext) Query(name string) string { return c.gc.Query(name) }

func (c *ginContext) JSON(code int, v interface{}) error {
	c.gc.JSON(code, v)
	return nil
}

func (c *ginContext) String(code int, s string) error {
	c.gc.String(code, "%s", s)
	return nil
}

func (c *ginContext) Get(key string) interface{} {
	v, ok := c.gc.Get(key)
	if !ok {
		return nil
	}
	return v
}

func (c *ginContext) Set(key string, value interface{}) {
	c.gc.Set(key, value)
}

// ginResponseWriter adapts gin.ResponseWriter to router.ResponseWriter.
type ginResponseWriter struct {
	ginpkg.ResponseWriter
}

func (w *ginResponseWriter) Status() int {
	if !w.ResponseWriter.Written() {
		return http.StatusOK
	}
	return w.ResponseWriter.Status()
}

func (w *ginResponseWriter) Written() bool { return w.ResponseWriter.Written() }

func (w *ginResponseWriter) Size() int {
	if n := w.ResponseWriter.Size(); n > 0 {
		return n
	}
	return 0
}
