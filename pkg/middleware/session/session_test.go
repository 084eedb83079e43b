package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/server/router"
	"github.com/nimburion/serverconf/pkg/server/router/nethttp"
)

func sessionRouter(cfg Config, handler router.HandlerFunc) *nethttp.Router {
	r := nethttp.NewRouter()
	r.Use(Middleware(cfg))
	r.GET("/", handler)
	return r
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			found = cookie
		}
	}
	return found
}

func TestFromServerConfigDefaults(t *testing.T) {
	cfg := FromServerConfig(config.SessionConfig{}, NewInMemoryStore())
	if cfg.CookieName != DefaultCookieName {
		t.Errorf("expected default cookie name, got %s", cfg.CookieName)
	}
	if cfg.CookiePath != "/" {
		t.Errorf("expected default cookie path /, got %s", cfg.CookiePath)
	}
	if !cfg.CookieHTTPOnly {
		t.Error("expected http-only by default")
	}
	if cfg.CookieSecure {
		t.Error("expected secure off by default")
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("expected 30m timeout, got %v", cfg.Timeout)
	}
	if !cfg.TrackCookie || cfg.TrackURL {
		t.Error("expected cookie tracking only by default")
	}
}

func TestFromServerConfigMapsCookieSettings(t *testing.T) {
	httpOnly := false
	secure := true
	maxAge := 60
	sc := config.SessionConfig{
		Timeout:       123 * time.Second,
		TrackingModes: []config.TrackingMode{config.TrackingModeCookie, config.TrackingModeURL},
		Cookie: config.CookieConfig{
			Name:     "SID",
			Domain:   "example.com",
			Path:     "/app",
			HTTPOnly: &httpOnly,
			Secure:   &secure,
			MaxAge:   &maxAge,
		},
	}
	cfg := FromServerConfig(sc, nil)

	if cfg.CookieName != "SID" || cfg.CookieDomain != "example.com" || cfg.CookiePath != "/app" {
		t.Errorf("unexpected cookie identity: %+v", cfg)
	}
	if cfg.CookieHTTPOnly {
		t.Error("expected explicit http-only false to apply")
	}
	if !cfg.CookieSecure {
		t.Error("expected secure true")
	}
	if cfg.CookieMaxAge != 60 {
		t.Errorf("expected max-age 60, got %d", cfg.CookieMaxAge)
	}
	if cfg.Timeout != 123*time.Second {
		t.Errorf("expected timeout 123s, got %v", cfg.Timeout)
	}
	if !cfg.TrackCookie || !cfg.TrackURL {
		t.Error("expected both tracking modes enabled")
	}
}

func TestFromServerConfigURLOnlyTracking(t *testing.T) {
	cfg := FromServerConfig(config.SessionConfig{
		TrackingModes: []config.TrackingMode{config.TrackingModeURL},
	}, nil)
	if cfg.TrackCookie {
		t.Error("expected cookie tracking disabled")
	}
	if !cfg.TrackURL {
		t.Error("expected URL tracking enabled")
	}
}

func TestMiddlewareIssuesCookieWithConfiguredAttributes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = NewInMemoryStore()
	cfg.CookieName = "SID"
	cfg.CookieDomain = "example.com"
	cfg.CookiePath = "/app"
	cfg.CookieSecure = true
	cfg.CookieMaxAge = 60

	r := sessionRouter(cfg, func(c router.Context) error {
		s, _ := FromContext(c)
		s.Set("user", "alice")
		return c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := findCookie(t, w, "SID")
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if cookie.Domain != "example.com" || cookie.Path != "/app" {
		t.Errorf("unexpected cookie scope: %+v", cookie)
	}
	if !cookie.Secure || !cookie.HttpOnly {
		t.Errorf("unexpected cookie flags: %+v", cookie)
	}
	if cookie.MaxAge != 60 {
		t.Errorf("expected max-age 60, got %d", cookie.MaxAge)
	}
}

func TestMiddlewarePersistsAcrossRequests(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = NewInMemoryStore()

	var got string
	r := sessionRouter(cfg, func(c router.Context) error {
		s, _ := FromContext(c)
		if value, ok := s.Get("user"); ok {
			got = value
		} else {
			s.Set("user", "alice")
		}
		return c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(t, w, DefaultCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie on first request")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "alice" {
		t.Errorf("expected persisted value, got %q", got)
	}
}

func TestMiddlewareURLTracking(t *testing.T) {
	store := NewInMemoryStore()
	cfg := DefaultConfig()
	cfg.Store = store
	cfg.TrackCookie = false
	cfg.TrackURL = true

	var firstID string
	r := sessionRouter(cfg, func(c router.Context) error {
		s, _ := FromContext(c)
		if firstID == "" {
			firstID = s.ID()
			s.Set("user", "bob")
		} else if s.ID() != firstID {
			t.Errorf("expected session %s, got %s", firstID, s.ID())
		}
		return c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if findCookie(t, w, DefaultCookieName) != nil {
		t.Error("URL-only tracking must not set a cookie")
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?"+DefaultCookieName+"="+firstID, nil))
}

func TestSessionRenewRotatesID(t *testing.T) {
	store := NewInMemoryStore()
	cfg := DefaultConfig()
	cfg.Store = store

	var before string
	r := sessionRouter(cfg, func(c router.Context) error {
		s, _ := FromContext(c)
		before = s.ID()
		s.Set("user", "carol")
		s.Renew()
		return c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := findCookie(t, w, DefaultCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if cookie.Value == before {
		t.Error("expected rotated session ID in cookie")
	}
}

func TestSessionDestroyClearsCookie(t *testing.T) {
	store := NewInMemoryStore()
	cfg := DefaultConfig()
	cfg.Store = store

	r := sessionRouter(cfg, func(c router.Context) error {
		s, _ := FromContext(c)
		s.Destroy()
		return nil
	})

	// Seed a session first.
	seed := map[string]string{"user": "dave"}
	if err := store.Save(context.Background(), "existing", seed, time.Minute); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	cookie := findCookie(t, w, DefaultCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Errorf("expected expired cookie, got %+v", cookie)
	}
	if _, err := store.Load(context.Background(), "existing"); err == nil {
		t.Error("expected session deleted from store")
	}
}
