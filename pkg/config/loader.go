package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration with precedence ENV > file > defaults.
// Sections other than server.* unmarshal straight from Viper; the server.*
// namespace is flattened to string properties and pushed through Bind so
// that every server setting takes the same coercion path.
type Loader struct {
	configFile string
	envPrefix  string
	env        EnvFunc
}

// NewLoader creates a Loader.
// configFile: path to a configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g. "APP")
func NewLoader(configFile, envPrefix string) *Loader {
	return &Loader{
		configFile: configFile,
		envPrefix:  envPrefix,
		env:        OSEnv,
	}
}

// WithEnv replaces the environment lookup, mainly for tests.
func (l *Loader) WithEnv(env EnvFunc) *Loader {
	if env != nil {
		l.env = env
	}
	return l
}

// serverEnvBindings maps server property keys to environment variable
// suffixes, bound explicitly like every other section.
var serverEnvBindings = []struct {
	key    string
	suffix string
}{
	{"server.address", "SERVER_ADDRESS"},
	{"server.port", "SERVER_PORT"},
	{"server.context-path", "SERVER_CONTEXT_PATH"},
	{"server.display-name", "SERVER_DISPLAY_NAME"},
	{"server.server-header", "SERVER_SERVER_HEADER"},
	{"server.servlet-path", "SERVER_SERVLET_PATH"},
	{"server.use-forward-headers", "SERVER_USE_FORWARD_HEADERS"},
	{"server.session.timeout", "SERVER_SESSION_TIMEOUT"},
	{"server.session.tracking-modes", "SERVER_SESSION_TRACKING_MODES"},
	{"server.session.store-dir", "SERVER_SESSION_STORE_DIR"},
	{"server.session.cookie.name", "SERVER_SESSION_COOKIE_NAME"},
	{"server.session.cookie.domain", "SERVER_SESSION_COOKIE_DOMAIN"},
	{"server.session.cookie.path", "SERVER_SESSION_COOKIE_PATH"},
	{"server.session.cookie.comment", "SERVER_SESSION_COOKIE_COMMENT"},
	{"server.session.cookie.http-only", "SERVER_SESSION_COOKIE_HTTP_ONLY"},
	{"server.session.cookie.secure", "SERVER_SESSION_COOKIE_SECURE"},
	{"server.session.cookie.max-age", "SERVER_SESSION_COOKIE_MAX_AGE"},
}

// engineEnvSuffixes are appended per engine namespace.
var engineEnvSuffixes = []struct {
	key    string
	suffix string
}{
	{"accesslog.enabled", "ACCESSLOG_ENABLED"},
	{"accesslog.pattern", "ACCESSLOG_PATTERN"},
	{"accesslog.prefix", "ACCESSLOG_PREFIX"},
	{"accesslog.suffix", "ACCESSLOG_SUFFIX"},
	{"accesslog.dir", "ACCESSLOG_DIR"},
	{"protocol-header", "PROTOCOL_HEADER"},
	{"protocol-header-https-value", "PROTOCOL_HEADER_HTTPS_VALUE"},
	{"remote-ip-header", "REMOTE_IP_HEADER"},
	{"port-header", "PORT_HEADER"},
	{"internal-proxies", "INTERNAL_PROXIES"},
	{"uri-encoding", "URI_ENCODING"},
	{"max-http-header-size", "MAX_HTTP_HEADER_SIZE"},
}

// Load reads defaults, the optional config file, and environment overrides
// into a validated Config. Server property coercion failures are fatal here;
// callers that want per-key error reporting use Bind directly.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	l.setDefaults(v, cfg)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	// Server settings only travel through the property table below; the
	// ambient sections unmarshal directly.
	var ambient struct {
		EngineType    string              `mapstructure:"engine_type"`
		SessionStore  SessionStoreConfig  `mapstructure:"session_store"`
		Observability ObservabilityConfig `mapstructure:"observability"`
		RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	}
	if err := v.Unmarshal(&ambient); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.EngineType = ambient.EngineType
	cfg.SessionStore = ambient.SessionStore
	cfg.Observability = ambient.Observability
	cfg.RateLimit = ambient.RateLimit

	props := map[string]string{}
	flattenSettings("server", v.Get("server"), props)
	l.applyServerEnv(props)

	result := Bind(props, &cfg.Server)
	if result.HasErrors() {
		errs := make([]error, 0, len(result.Errors()))
		for _, bindErr := range result.Errors() {
			errs = append(errs, bindErr)
		}
		return nil, fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}

	if err := l.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the non-server sections and the engine selector.
func (l *Loader) Validate(cfg *Config) error {
	var errs []error

	validEngineTypes := []string{EngineNetHTTP, EngineGin, EngineGorilla}
	if !contains(validEngineTypes, strings.ToLower(cfg.EngineType)) {
		errs = append(errs, fmt.Errorf("invalid engine_type: %s (must be one of: %v)", cfg.EngineType, validEngineTypes))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(cfg.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("observability.log_level must be one of %v", validLogLevels))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, strings.ToLower(cfg.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("observability.log_format must be one of %v", validLogFormats))
	}

	validStoreKinds := []string{SessionStoreMemory, SessionStoreFile, SessionStoreRedis}
	if !contains(validStoreKinds, strings.ToLower(cfg.SessionStore.Kind)) {
		errs = append(errs, fmt.Errorf("session_store.kind must be one of %v", validStoreKinds))
	}
	if strings.EqualFold(cfg.SessionStore.Kind, SessionStoreRedis) && strings.TrimSpace(cfg.SessionStore.RedisURL) == "" {
		errs = append(errs, errors.New("session_store.redis_url is required for the redis store"))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be greater than 0 when rate limiting is enabled"))
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, errors.New("rate_limit.burst must be greater than 0 when rate limiting is enabled"))
		}
	}

	return errors.Join(errs...)
}

func (l *Loader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine_type", cfg.EngineType)
	v.SetDefault("session_store.kind", cfg.SessionStore.Kind)
	v.SetDefault("session_store.redis_url", cfg.SessionStore.RedisURL)
	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.log_async", cfg.Observability.LogAsync)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("rate_limit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)
}

func (l *Loader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("engine_type", l.prefixedEnv("ENGINE_TYPE"))
	v.BindEnv("session_store.kind", l.prefixedEnv("SESSION_STORE_KIND"))
	v.BindEnv("session_store.redis_url", l.prefixedEnv("SESSION_STORE_REDIS_URL"))
	v.BindEnv("observability.log_level", l.prefixedEnv("OBSERVABILITY_LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("OBSERVABILITY_LOG_FORMAT"))
	v.BindEnv("observability.log_async", l.prefixedEnv("OBSERVABILITY_LOG_ASYNC"))
	v.BindEnv("observability.metrics_enabled", l.prefixedEnv("OBSERVABILITY_METRICS_ENABLED"))
	v.BindEnv("rate_limit.enabled", l.prefixedEnv("RATE_LIMIT_ENABLED"))
	v.BindEnv("rate_limit.requests_per_second", l.prefixedEnv("RATE_LIMIT_REQUESTS_PER_SECOND"))
	v.BindEnv("rate_limit.burst", l.prefixedEnv("RATE_LIMIT_BURST"))
}

func (l *Loader) applyServerEnv(props map[string]string) {
	for _, binding := range serverEnvBindings {
		if value, ok := l.env(l.prefixedEnv(binding.suffix)); ok {
			props[binding.key] = value
		}
	}
	for _, engineName := range []string{EngineNetHTTP, EngineGin, EngineGorilla} {
		envName := strings.ToUpper(engineName)
		for _, binding := range engineEnvSuffixes {
			suffix := "SERVER_" + envName + "_" + binding.suffix
			if value, ok := l.env(l.prefixedEnv(suffix)); ok {
				props["server."+engineName+"."+binding.key] = value
			}
		}
	}
}

func (l *Loader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// flattenSettings turns the nested map Viper produced for one section into
// dotted string properties, stringifying leaf values.
func flattenSettings(prefix string, value interface{}, out map[string]string) {
	switch nested := value.(type) {
	case nil:
	case map[string]interface{}:
		for key, child := range nested {
			flattenSettings(prefix+"."+key, child, out)
		}
	default:
		out[prefix] = fmt.Sprint(value)
	}
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
