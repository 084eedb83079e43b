package gorilla

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/serverconf/pkg/server/router"
)

func TestRouterBasicRouting(t *testing.T) {
	r := NewRouter()
	r.GET("/ping", func(c router.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("unexpected response: %d %q", w.Code, w.Body.String())
	}
}

func TestRouterPathParams(t *testing.T) {
	r := NewRouter()
	r.GET("/sessions/:id", func(c router.Context) error {
		return c.String(http.StatusOK, c.Param("id"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc123", nil))

	if w.Body.String() != "abc123" {
		t.Errorf("expected param abc123, got %q", w.Body.String())
	}
}

func TestRouterGroupAndMiddleware(t *testing.T) {
	r := NewRouter()
	var saw bool
	g := r.Group("/api", func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			saw = true
			return next(c)
		}
	})
	g.GET("/status", func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "up"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if w.Code != http.StatusOK || !saw {
		t.Errorf("unexpected response: code=%d middleware=%v", w.Code, saw)
	}
}
