package config

import "os"

// Forwarded-header defaults applied when the engine block does not override
// them.
const (
	// DefaultProtocolHeader carries the original client protocol
	DefaultProtocolHeader = "X-Forwarded-Proto"
	// DefaultProtocolHeaderHTTPSValue is the protocol header value meaning TLS
	DefaultProtocolHeaderHTTPSValue = "https"
	// DefaultRemoteIPHeader carries the original client address chain
	DefaultRemoteIPHeader = "X-Forwarded-For"
)

// DefaultInternalProxies matches the standard private, loopback, and
// link-local IPv4 ranges as dotted quads: 10/8, 192.168/16, 169.254/16,
// 127/8, and 172.16/12.
const DefaultInternalProxies = "10\\.\\d{1,3}\\.\\d{1,3}\\.\\d{1,3}|" +
	"192\\.168\\.\\d{1,3}\\.\\d{1,3}|" +
	"169\\.254\\.\\d{1,3}\\.\\d{1,3}|" +
	"127\\.\\d{1,3}\\.\\d{1,3}\\.\\d{1,3}|" +
	"172\\.1[6-9]{1}\\.\\d{1,3}\\.\\d{1,3}|" +
	"172\\.2[0-9]{1}\\.\\d{1,3}\\.\\d{1,3}|" +
	"172\\.3[0-1]{1}\\.\\d{1,3}\\.\\d{1,3}"

// platformMarkers are environment variables whose presence identifies a
// hosting platform that fronts applications with a trusted reverse proxy
// (Heroku, Cloud Foundry).
var platformMarkers = []string{"DYNO", "VCAP_APPLICATION"}

// EnvFunc looks up one environment variable. Injecting it keeps the platform
// inference deterministic in tests; OSEnv reads the real process environment.
type EnvFunc func(name string) (string, bool)

// OSEnv is the EnvFunc backed by the process environment.
func OSEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// ForwardedConfig is the fully-parameterized forwarded-header descriptor.
// The customizer materializes a non-nil descriptor as exactly one
// header-rewriting middleware; nil means no forwarded-header handling.
type ForwardedConfig struct {
	ProtocolHeader           string
	ProtocolHeaderHTTPSValue string
	RemoteIPHeader           string
	PortHeader               string
	InternalProxies          string
}

// ResolveForwarded decides whether forwarded-header handling is installed for
// one engine and with what parameters.
//
// Explicitly setting both the protocol header and the remote IP header to the
// empty string always disables handling, even when platform inference would
// enable it. Otherwise handling is installed when UseForwardHeaders is true,
// when the platform is inferred to front the server with a trusted proxy
// (UseForwardHeaders unset), or when both header names are explicitly
// configured to non-empty values. Engine-level header names and proxy ranges
// override the defaults; the flag is never written back.
func ResolveForwarded(s *Server, engine *EngineConfig, env EnvFunc) *ForwardedConfig {
	if env == nil {
		env = OSEnv
	}

	protocolHeader := engine.ProtocolHeader
	remoteIPHeader := engine.RemoteIPHeader

	explicitlyDisabled := protocolHeader != nil && *protocolHeader == "" &&
		remoteIPHeader != nil && *remoteIPHeader == ""
	if explicitlyDisabled {
		return nil
	}

	explicitHeaders := protocolHeader != nil && *protocolHeader != "" &&
		remoteIPHeader != nil && *remoteIPHeader != ""

	useForwardHeaders := explicitHeaders
	if !useForwardHeaders {
		if s.UseForwardHeaders != nil {
			useForwardHeaders = *s.UseForwardHeaders
		} else {
			useForwardHeaders = platformDeduced(env)
		}
	}
	if !useForwardHeaders {
		return nil
	}

	fc := &ForwardedConfig{
		ProtocolHeader:           DefaultProtocolHeader,
		ProtocolHeaderHTTPSValue: DefaultProtocolHeaderHTTPSValue,
		RemoteIPHeader:           DefaultRemoteIPHeader,
		InternalProxies:          DefaultInternalProxies,
	}
	if protocolHeader != nil && *protocolHeader != "" {
		fc.ProtocolHeader = *protocolHeader
	}
	if engine.ProtocolHeaderHTTPSValue != "" {
		fc.ProtocolHeaderHTTPSValue = engine.ProtocolHeaderHTTPSValue
	}
	if remoteIPHeader != nil && *remoteIPHeader != "" {
		fc.RemoteIPHeader = *remoteIPHeader
	}
	if engine.PortHeader != "" {
		fc.PortHeader = engine.PortHeader
	}
	if engine.InternalProxies != "" {
		fc.InternalProxies = engine.InternalProxies
	}
	return fc
}

func platformDeduced(env EnvFunc) bool {
	for _, marker := range platformMarkers {
		if _, ok := env(marker); ok {
			return true
		}
	}
	return false
}
