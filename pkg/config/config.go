package config

import (
	"net"
	"strings"
	"time"
)

// Engine type constants
const (
	// EngineNetHTTP selects the net/http based engine
	EngineNetHTTP = "nethttp"
	// EngineGin selects the gin-gonic based engine
	EngineGin = "gin"
	// EngineGorilla selects the gorilla/mux based engine
	EngineGorilla = "gorilla"
)

// Session tracking mode constants
const (
	// TrackingModeCookie tracks sessions via the session cookie
	TrackingModeCookie TrackingMode = "cookie"
	// TrackingModeURL tracks sessions via URL rewriting
	TrackingModeURL TrackingMode = "url"
	// TrackingModeSSL tracks sessions via the TLS session
	TrackingModeSSL TrackingMode = "ssl"
)

// TrackingMode identifies one session tracking mechanism.
type TrackingMode string

// Session store kind constants
const (
	// SessionStoreMemory keeps sessions in process memory
	SessionStoreMemory = "memory"
	// SessionStoreFile persists sessions under the configured store dir
	SessionStoreFile = "file"
	// SessionStoreRedis persists sessions in Redis
	SessionStoreRedis = "redis"
)

// Config is the root configuration structure for the server toolkit
type Config struct {
	EngineType    string              `mapstructure:"engine_type"`
	Server        Server              `mapstructure:"server"`
	SessionStore  SessionStoreConfig  `mapstructure:"session_store"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

// SessionStoreConfig selects the backing store for the session middleware.
type SessionStoreConfig struct {
	Kind     string `mapstructure:"kind"` // memory, file, redis
	RedisURL string `mapstructure:"redis_url"`
}

// Server holds the normalized embedded server settings. It is populated from
// flat string properties by Bind, then read by the engine customizer; fields
// left at their zero value mean "use the engine default".
type Server struct {
	// Address is the network address the server binds to. Nil leaves the
	// engine listening on all interfaces.
	Address net.IP

	// Port is the listen port. Nil leaves the engine default in place.
	Port *int

	// ContextPath is the root path the application is served under.
	// It never ends with "/"; the root context is the empty string.
	ContextPath string

	// DisplayName is the human-readable application name.
	DisplayName string

	// ServerHeader is sent as the Server response header when non-empty.
	ServerHeader string

	// ServletPath is the raw front-controller path or mapping. The mapping
	// and prefix forms are always derived together from this one value via
	// ServletMapping and ServletPrefix.
	ServletPath string

	// UseForwardHeaders controls forwarded-header trust. Nil means "infer
	// from the hosting environment at customization time".
	UseForwardHeaders *bool

	Session SessionConfig

	NetHTTP EngineConfig
	Gin     EngineConfig
	Gorilla EngineConfig
}

// SessionConfig configures the server-side session layer.
type SessionConfig struct {
	// Timeout is the session expiry. Zero leaves the engine default.
	Timeout       time.Duration
	TrackingModes []TrackingMode
	Cookie        CookieConfig
	// StoreDir is where file-backed session state lives. It is passed
	// through as configured and resolved against the working directory
	// when first used; no existence check happens at configuration time.
	StoreDir string
}

// CookieConfig configures the session cookie attributes. Pointer fields
// distinguish "explicitly configured" from "engine default".
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Comment  string
	HTTPOnly *bool
	Secure   *bool
	MaxAge   *int
}

// EngineConfig holds the per-engine settings block (server.<engine>.*).
// ProtocolHeader and RemoteIPHeader are pointers so that an explicit empty
// value can be told apart from an absent one; the distinction drives the
// forwarded-header policy.
type EngineConfig struct {
	AccessLog AccessLogConfig

	ProtocolHeader           *string
	ProtocolHeaderHTTPSValue string
	RemoteIPHeader           *string
	PortHeader               string
	InternalProxies          string

	// URIEncoding is the canonical charset name used to decode request URIs.
	URIEncoding string

	// MaxHTTPHeaderSize caps the request header block in bytes. Zero leaves
	// the engine default.
	MaxHTTPHeaderSize int
}

// AccessLogConfig configures per-request access logging for one engine.
type AccessLogConfig struct {
	Enabled *bool
	Pattern string
	Prefix  string
	Suffix  string
	Dir     string
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"` // json, text
	LogAsync       bool   `mapstructure:"log_async"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// RateLimitConfig configures the per-client rate limit middleware.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// DefaultConfig returns the configuration defaults. Server fields that mean
// "engine default" stay at their zero value.
func DefaultConfig() *Config {
	return &Config{
		EngineType: EngineNetHTTP,
		Server: Server{
			DisplayName: "application",
			NetHTTP:     defaultEngineConfig(),
			Gin:         defaultEngineConfig(),
			Gorilla:     defaultEngineConfig(),
		},
		SessionStore: SessionStoreConfig{
			Kind: SessionStoreMemory,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			Burst:             200,
		},
	}
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		AccessLog: AccessLogConfig{
			Pattern: "common",
			Prefix:  "access_log",
			Suffix:  ".log",
		},
	}
}

// Engine returns the settings block for the named engine type, or nil for an
// unknown name.
func (s *Server) Engine(engineType string) *EngineConfig {
	switch strings.ToLower(strings.TrimSpace(engineType)) {
	case EngineNetHTTP:
		return &s.NetHTTP
	case EngineGin:
		return &s.Gin
	case EngineGorilla:
		return &s.Gorilla
	}
	return nil
}

// ServletMapping returns the front-controller URL pattern derived from
// ServletPath. Both "/foo" and "/foo/*" yield "/foo/*".
func (s *Server) ServletMapping() string {
	mapping, _ := SplitServletPath(s.ServletPath)
	return mapping
}

// ServletPrefix returns the front-controller path prefix derived from
// ServletPath. Both "/foo" and "/foo/*" yield "/foo".
func (s *Server) ServletPrefix() string {
	_, prefix := SplitServletPath(s.ServletPath)
	return prefix
}

// SetContextPath stores a normalized context path: a trailing slash is
// stripped and the root path "/" becomes the empty string.
func (s *Server) SetContextPath(path string) {
	s.ContextPath = NormalizeContextPath(path)
}

// NormalizeContextPath strips a single trailing "/" so that the root context
// collapses to the empty string and nested paths never end with a slash.
func NormalizeContextPath(path string) string {
	if strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}
