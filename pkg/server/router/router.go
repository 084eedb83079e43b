// Package router defines the engine-agnostic routing surface. Each supported
// engine (net/http, gin-gonic, gorilla/mux) provides an adapter implementing
// Router; handlers and middleware are written once against these interfaces.
package router

import "net/http"

// Router is the interface every engine adapter implements.
type Router interface {
	// Handle registers a handler for one HTTP method and path. Paths use
	// ":name" segments for parameters, e.g. /sessions/:id.
	Handle(method, path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// GET registers a GET route
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	// POST registers a POST route
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	// PUT registers a PUT route
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	// DELETE registers a DELETE route
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	// PATCH registers a PATCH route
	PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a sub-router sharing this router's routes, with the
	// given prefix and middleware applied to everything registered on it
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use appends middleware applied to every route registered afterwards
	Use(middleware ...MiddlewareFunc)

	// ServeHTTP implements http.Handler
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request through the engine-agnostic Context.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a handler.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Chain applies middleware to handler, outermost first.
func Chain(handler HandlerFunc, middleware []MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// Context gives handlers engine-agnostic access to the request and response.
type Context interface {
	// Request returns the HTTP request
	Request() *http.Request

	// SetRequest replaces the request, for middleware that rewrites it
	SetRequest(r *http.Request)

	// Response returns the response writer
	Response() ResponseWriter

	// SetResponse replaces the response writer, for middleware that wraps it
	SetResponse(w ResponseWriter)

	// Param returns a path parameter by name
	Param(name string) string

	// Query returns a query parameter by name
	Query(name string) string

	// JSON writes v as a JSON response with the given status code
	JSON(code int, v interface{}) error

	// String writes a plain text response with the given status code
	String(code int, s string) error

	// Get retrieves a request-scoped value by key
	Get(key string) interface{}

	// Set stores a request-scoped value by key
	Set(key string, value interface{})
}

// ResponseWriter extends http.ResponseWriter with response state tracking.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the status code written, or 200 when unset
	Status() int

	// Written reports whether the header has been written
	Written() bool

	// Size returns the number of body bytes written so far
	Size() int
}
