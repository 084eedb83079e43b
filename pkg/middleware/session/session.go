// Package session provides cookie- and URL-tracked sessions over pluggable
// backend stores.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/server/router"
)

// ContextKey stores the active request session.
const ContextKey = "session"

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "SESSION"

// ErrNotFound indicates that a session does not exist in the backend store.
var ErrNotFound = errors.New("session not found")

// Store defines a pluggable session backend.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, data map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Close() error
}

// Config controls the session middleware.
type Config struct {
	Store Store

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieHTTPOnly bool
	CookieSecure   bool
	// CookieMaxAge in seconds; 0 or negative means a browser-session cookie
	CookieMaxAge int

	// Timeout is the server-side session lifetime
	Timeout time.Duration

	// TrackCookie and TrackURL select how the session ID travels. When
	// both are false the middleware behaves as if only cookies were
	// enabled.
	TrackCookie bool
	TrackURL    bool
}

// DefaultConfig returns cookie-tracked sessions with a 30 minute timeout.
func DefaultConfig() Config {
	return Config{
		CookieName:     DefaultCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		Timeout:        30 * time.Minute,
		TrackCookie:    true,
	}
}

// FromServerConfig maps the server session settings onto a middleware
// Config. Unset pointer fields keep the defaults.
func FromServerConfig(sc config.SessionConfig, store Store) Config {
	cfg := DefaultConfig()
	cfg.Store = store

	if sc.Cookie.Name != "" {
		cfg.CookieName = sc.Cookie.Name
	}
	if sc.Cookie.Path != "" {
		cfg.CookiePath = sc.Cookie.Path
	}
	cfg.CookieDomain = sc.Cookie.Domain
	if sc.Cookie.HTTPOnly != nil {
		cfg.CookieHTTPOnly = *sc.Cookie.HTTPOnly
	}
	if sc.Cookie.Secure != nil {
		cfg.CookieSecure = *sc.Cookie.Secure
	}
	if sc.Cookie.MaxAge != nil {
		cfg.CookieMaxAge = *sc.Cookie.MaxAge
	}
	if sc.Timeout > 0 {
		cfg.Timeout = sc.Timeout
	}
	if len(sc.TrackingModes) > 0 {
		cfg.TrackCookie = false
		cfg.TrackURL = false
		for _, mode := range sc.TrackingModes {
			switch mode {
			case config.TrackingModeCookie:
				cfg.TrackCookie = true
			case config.TrackingModeURL:
				cfg.TrackURL = true
			}
		}
	}
	return cfg
}

// Session is the per-request mutable session view.
type Session struct {
	id        string
	data      map[string]string
	dirty     bool
	destroyed bool
	renewed   bool
}

// Middleware loads the request session, exposes it on the router context,
// and persists changes after the handler runs.
func Middleware(cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Store == nil {
				return next(c)
			}

			previousID := readSessionID(c.Request(), cfg)
			s := &Session{id: previousID, data: map[string]string{}}

			if previousID != "" {
				stored, err := cfg.Store.Load(c.Request().Context(), previousID)
				switch {
				case err == nil:
					s.data = cloneMap(stored)
				case errors.Is(err, ErrNotFound):
					s.id = ""
					previousID = ""
				default:
					return err
				}
			}

			if s.id == "" {
				newID, err := generateSessionID()
				if err != nil {
					return err
				}
				s.id = newID
				s.dirty = true
			} else {
				_ = cfg.Store.Touch(c.Request().Context(), s.id, cfg.Timeout)
			}

			c.Set(ContextKey, s)
			if cfg.TrackCookie {
				writeSessionCookie(c.Response(), cfg, s.id)
			}

			handlerErr := next(c)
			commitErr := commit(c, cfg, previousID, s)
			if handlerErr != nil {
				return handlerErr
			}
			return commitErr
		}
	}
}

// FromContext returns the active request session if present.
func FromContext(c router.Context) (*Session, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.Get(ContextKey).(*Session)
	return s, ok
}

// ID returns the current session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Get reads a session value.
func (s *Session) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	value, ok := s.data[key]
	return value, ok
}

// Set writes a session value.
func (s *Session) Set(key, value string) {
	if s == nil || strings.TrimSpace(key) == "" {
		return
	}
	s.data[key] = value
	s.dirty = true
}

// Delete removes a session value.
func (s *Session) Delete(key string) {
	if s == nil {
		return
	}
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.dirty = true
	}
}

// Values returns a copy of the current session values.
func (s *Session) Values() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return cloneMap(s.data)
}

// Renew rotates the session ID at the end of the current request.
func (s *Session) Renew() {
	if s == nil {
		return
	}
	s.renewed = true
	s.dirty = true
}

// Destroy marks the session for deletion and cookie removal.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.destroyed = true
	s.dirty = true
	s.data = map[string]string{}
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = def.CookieName
	}
	if strings.TrimSpace(cfg.CookiePath) == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if !cfg.TrackCookie && !cfg.TrackURL {
		cfg.TrackCookie = true
	}
	return cfg
}

func commit(c router.Context, cfg Config, previousID string, s *Session) error {
	if s == nil || s.id == "" {
		return nil
	}

	if s.destroyed {
		if previousID != "" {
			_ = cfg.Store.Delete(c.Request().Context(), previousID)
		}
		if cfg.TrackCookie && !c.Response().Written() {
			clearSessionCookie(c.Response(), cfg)
		}
		return nil
	}

	targetID := s.id
	if s.renewed {
		newID, err := generateSessionID()
		if err != nil {
			return err
		}
		targetID = newID
	}

	if s.dirty {
		if err := cfg.Store.Save(c.Request().Context(), targetID, cloneMap(s.data), cfg.Timeout); err != nil {
			return err
		}
	}

	if s.renewed && previousID != "" && previousID != targetID {
		_ = cfg.Store.Delete(c.Request().Context(), previousID)
	}

	if cfg.TrackCookie && !c.Response().Written() {
		writeSessionCookie(c.Response(), cfg, targetID)
	}
	s.id = targetID
	return nil
}

// readSessionID finds the inbound session ID via the enabled tracking modes:
// the cookie first, then a query parameter named after the cookie.
func readSessionID(req *http.Request, cfg Config) string {
	if req == nil {
		return ""
	}
	if cfg.TrackCookie {
		if cookie, err := req.Cookie(cfg.CookieName); err == nil && cookie != nil {
			if id := strings.TrimSpace(cookie.Value); id != "" {
				return id
			}
		}
	}
	if cfg.TrackURL {
		if id := strings.TrimSpace(req.URL.Query().Get(cfg.CookieName)); id != "" {
			return id
		}
	}
	return ""
}

func writeSessionCookie(w http.ResponseWriter, cfg Config, sessionID string) {
	cookie := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sessionID,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.CookieMaxAge > 0 {
		cookie.MaxAge = cfg.CookieMaxAge
		cookie.Expires = time.Now().Add(time.Duration(cfg.CookieMaxAge) * time.Second)
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func generateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
