package router

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
)

// ParamFunc resolves one path parameter by name. Adapters whose underlying
// router owns parameter extraction (gorilla/mux) supply their own lookup.
type ParamFunc func(name string) string

// BaseContext is a plain Context implementation shared by the net/http and
// gorilla adapters. The gin adapter has its own, backed by gin.Context.
type BaseContext struct {
	request  *http.Request
	response ResponseWriter
	param    ParamFunc
	store    map[string]interface{}
	mu       sync.RWMutex
}

// NewBaseContext builds a Context over w and r. param may be nil when the
// route has no parameters.
func NewBaseContext(w http.ResponseWriter, r *http.Request, param ParamFunc) *BaseContext {
	return &BaseContext{
		request:  r,
		response: WrapResponseWriter(w),
		param:    param,
		store:    make(map[string]interface{}),
	}
}

func (c *BaseContext) Request() *http.Request        { return c.request }
func (c *BaseContext) SetRequest(r *http.Request)    { c.request = r }
func (c *BaseContext) Response() ResponseWriter      { return c.response }
func (c *BaseContext) SetResponse(w ResponseWriter)  { c.response = w }

func (c *BaseContext) Param(name string) string {
	if c.param == nil {
		return ""
	}
	return c.param(name)
}

func (c *BaseContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *BaseContext) JSON(code int, v interface{}) error {
	c.response.Header().Set("Content-Type", "application/json")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *BaseContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain")
	c.response.WriteHeader(code)
	_, err := io.WriteString(c.response, s)
	return err
}

func (c *BaseContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *BaseContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

// WrapResponseWriter wraps w with status and size tracking. Wrapping an
// already-wrapped writer returns it unchanged.
func WrapResponseWriter(w http.ResponseWriter) ResponseWriter {
	if rw, ok := w.(ResponseWriter); ok {
		return rw
	}
	return &trackingWriter{ResponseWriter: w}
}

type trackingWriter struct {
	http.ResponseWriter
	status  int
	size    int
	written bool
}

func (w *trackingWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *trackingWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *trackingWriter) Written() bool { return w.written }

func (w *trackingWriter) Size() int { return w.size }

func (w *trackingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (w *trackingWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
