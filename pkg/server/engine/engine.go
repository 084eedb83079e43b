// Package engine turns a resolved server configuration into a ready-to-serve
// HTTP engine. Each supported engine gets a factory type wrapping its router
// adapter; factories expose explicit setters and a Build step that assembles
// middleware and listener settings into a Runtime.
package engine

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/middleware/accesslog"
	"github.com/nimburion/serverconf/pkg/middleware/forwarded"
	metricsmw "github.com/nimburion/serverconf/pkg/middleware/metrics"
	"github.com/nimburion/serverconf/pkg/middleware/session"
	"github.com/nimburion/serverconf/pkg/observability/metrics"
	"github.com/nimburion/serverconf/pkg/server/router"
)

// Type identifies one of the supported HTTP engines.
type Type string

// Supported engine types.
const (
	TypeNetHTTP Type = config.EngineNetHTTP
	TypeGin     Type = config.EngineGin
	TypeGorilla Type = config.EngineGorilla
)

// DefaultPort is used when no port has been configured.
const DefaultPort = 8080

// ParseType resolves an engine name to its Type. Matching is case-insensitive
// and ignores surrounding whitespace; the empty string selects net/http.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.EngineNetHTTP:
		return TypeNetHTTP, nil
	case config.EngineGin:
		return TypeGin, nil
	case config.EngineGorilla:
		return TypeGorilla, nil
	}
	return "", fmt.Errorf("unknown engine type %q", name)
}

// Factory configures one HTTP engine. Setters record intent; Build assembles
// the middleware chain and listener settings. Routes registered on the
// runtime's router after Build run behind the installed middleware.
type Factory interface {
	Type() Type

	SetAddress(ip net.IP)
	SetPort(port int)
	// SetContextPath mounts the application under path. The empty string is
	// ignored so the engine default (root) stays in place.
	SetContextPath(path string)
	SetDisplayName(name string)
	SetServerHeader(value string)
	SetURIEncoding(name string) error
	SetMaxHTTPHeaderSize(bytes int)
	SetAccessLog(cfg accesslog.Config)
	SetSession(sc config.SessionConfig)
	SetSessionStore(store session.Store)
	// SetForwarded installs the forwarded-header middleware described by fc.
	// A nil descriptor removes it; at most one instance is ever installed.
	SetForwarded(fc *config.ForwardedConfig) error
	SetMetrics(registry *metrics.Registry)

	Build() (*Runtime, error)
}

// Runtime is the assembled output of a factory.
type Runtime struct {
	// Type is the engine this runtime was built for.
	Type Type

	// Router accepts route registrations. Registered handlers run behind the
	// middleware installed at build time.
	Router router.Router

	// Handler is the root http.Handler, with the context path mount applied.
	Handler http.Handler

	// Addr is the host:port listen address.
	Addr string

	// MaxHeaderBytes caps the request header block. Zero means the net/http
	// default.
	MaxHeaderBytes int

	// DisplayName is the configured application name.
	DisplayName string

	// URIEncoding is the validated request URI charset, if configured.
	URIEncoding string

	// AccessLog is the open access log, or nil when disabled. The caller
	// owns closing it.
	AccessLog *accesslog.AccessLog

	// Metrics is the registry whose middleware was installed, or nil.
	Metrics *metrics.Registry
}

// factoryState carries the accumulated settings shared by every factory.
type factoryState struct {
	engineType Type
	base       router.Router

	address        net.IP
	port           int
	contextPath    string
	displayName    string
	serverHeader   string
	uriEncoding    string
	maxHeaderBytes int

	forwardedMW  router.MiddlewareFunc
	accessLogCfg *accesslog.Config
	sessionCfg   config.SessionConfig
	sessionStore session.Store
	registry     *metrics.Registry
}

func newFactoryState(t Type, base router.Router) factoryState {
	return factoryState{
		engineType:  t,
		base:        base,
		port:        DefaultPort,
		displayName: "application",
	}
}

// Type reports which engine this factory configures.
func (f *factoryState) Type() Type { return f.engineType }

// SetAddress binds the listener to ip. Nil keeps all interfaces.
func (f *factoryState) SetAddress(ip net.IP) { f.address = ip }

// SetPort sets the listen port.
func (f *factoryState) SetPort(port int) { f.port = port }

// SetContextPath mounts the application under path. Empty input is ignored.
func (f *factoryState) SetContextPath(path string) {
	if path == "" {
		return
	}
	f.contextPath = config.NormalizeContextPath(path)
}

// SetDisplayName records the application name.
func (f *factoryState) SetDisplayName(name string) { f.displayName = name }

// SetServerHeader makes every response carry value as the Server header.
// Empty disables the header entirely.
func (f *factoryState) SetServerHeader(value string) { f.serverHeader = value }

// SetURIEncoding validates and records the request URI charset.
func (f *factoryState) SetURIEncoding(name string) error {
	charset, err := config.LookupCharset(name)
	if err != nil {
		return fmt.Errorf("uri encoding: %w", err)
	}
	f.uriEncoding = charset
	return nil
}

// SetMaxHTTPHeaderSize caps the request header block in bytes.
func (f *factoryState) SetMaxHTTPHeaderSize(bytes int) { f.maxHeaderBytes = bytes }

// SetAccessLog enables pattern-driven access logging.
func (f *factoryState) SetAccessLog(cfg accesslog.Config) { f.accessLogCfg = &cfg }

// SetSession records the session settings applied at build time when a store
// has been provided.
func (f *factoryState) SetSession(sc config.SessionConfig) { f.sessionCfg = sc }

// SetSessionStore provides the backing store for the session middleware.
func (f *factoryState) SetSessionStore(store session.Store) { f.sessionStore = store }

// SetForwarded installs the forwarded-header middleware described by fc,
// replacing any previous one. Nil removes it.
func (f *factoryState) SetForwarded(fc *config.ForwardedConfig) error {
	if fc == nil {
		f.forwardedMW = nil
		return nil
	}
	mw, err := forwarded.Middleware(fc)
	if err != nil {
		return err
	}
	f.forwardedMW = mw
	return nil
}

// SetMetrics installs request instrumentation backed by registry.
func (f *factoryState) SetMetrics(registry *metrics.Registry) { f.registry = registry }

// ForwardedEnabled reports whether a forwarded-header middleware is installed.
func (f *factoryState) ForwardedEnabled() bool { return f.forwardedMW != nil }

// Build applies the accumulated settings to the underlying router and returns
// the runtime. Middleware order is server header, forwarded rewrite, metrics,
// access log, session.
func (f *factoryState) Build() (*Runtime, error) {
	if f.serverHeader != "" {
		f.base.Use(serverHeaderMiddleware(f.serverHeader))
	}
	if f.forwardedMW != nil {
		f.base.Use(f.forwardedMW)
	}
	if f.registry != nil {
		f.base.Use(metricsmw.Metrics(f.registry))
	}

	var logs *accesslog.AccessLog
	if f.accessLogCfg != nil {
		opened, err := accesslog.New(*f.accessLogCfg)
		if err != nil {
			return nil, fmt.Errorf("access log: %w", err)
		}
		logs = opened
		f.base.Use(logs.Middleware())
	}
	if f.sessionStore != nil {
		f.base.Use(session.Middleware(session.FromServerConfig(f.sessionCfg, f.sessionStore)))
	}

	host := ""
	if f.address != nil {
		host = f.address.String()
	}
	port := f.port
	if port <= 0 {
		port = DefaultPort
	}

	return &Runtime{
		Type:           f.engineType,
		Router:         f.base,
		Handler:        mount(f.contextPath, f.base),
		Addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		MaxHeaderBytes: f.maxHeaderBytes,
		DisplayName:    f.displayName,
		URIEncoding:    f.uriEncoding,
		AccessLog:      logs,
		Metrics:        f.registry,
	}, nil
}

func serverHeaderMiddleware(value string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Response().Header().Set("Server", value)
			return next(c)
		}
	}
}

// mount serves h under contextPath. Requests outside the context path get a
// plain 404; the prefix is stripped before h sees the request.
func mount(contextPath string, h http.Handler) http.Handler {
	if contextPath == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		if path != contextPath && !strings.HasPrefix(path, contextPath+"/") {
			http.NotFound(w, req)
			return
		}
		stripped := strings.TrimPrefix(path, contextPath)
		if stripped == "" {
			stripped = "/"
		}
		clone := req.Clone(req.Context())
		clone.URL.Path = stripped
		h.ServeHTTP(w, clone)
	})
}
