package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/encoding/ianaindex"
)

// ErrorKind classifies a property coercion failure.
type ErrorKind string

// Coercion error kinds
const (
	// ErrInvalidAddress marks an address value that is neither an IP
	// literal nor a resolvable hostname
	ErrInvalidAddress ErrorKind = "invalid-address"
	// ErrInvalidNumber marks a non-numeric value bound to an integer field
	ErrInvalidNumber ErrorKind = "invalid-number"
	// ErrUnknownCharset marks a charset name with no IANA registration
	ErrUnknownCharset ErrorKind = "unknown-charset"
	// ErrInvalidEnumValue marks an unrecognized enum-set token
	ErrInvalidEnumValue ErrorKind = "invalid-enum-value"
	// ErrInvalidBoolean marks a value other than true/false
	ErrInvalidBoolean ErrorKind = "invalid-boolean"
)

// BindError is one per-key coercion failure. Failing keys never abort the
// bind; all other keys are still applied.
type BindError struct {
	Key   string
	Value string
	Kind  ErrorKind
	Cause error
}

func (e *BindError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: cannot bind %q to %s: %v", e.Kind, e.Value, e.Key, e.Cause)
	}
	return fmt.Sprintf("%s: cannot bind %q to %s", e.Kind, e.Value, e.Key)
}

// BindResult reports the outcome of one Bind call.
type BindResult struct {
	errs    []*BindError
	unknown []string
}

// HasErrors reports whether any key failed to coerce.
func (r *BindResult) HasErrors() bool {
	return len(r.errs) > 0
}

// Errors returns the per-key coercion failures in key order.
func (r *BindResult) Errors() []*BindError {
	return r.errs
}

// Unknown returns the keys that matched no known property. Unknown keys are
// not errors; callers wanting strict validation can treat them as such.
func (r *BindResult) Unknown() []string {
	return r.unknown
}

// coerceError carries the error kind from a coercion helper up to Bind,
// where the key and raw value are attached.
type coerceError struct {
	kind  ErrorKind
	cause error
}

func (e *coerceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	}
	return string(e.kind)
}

type setterFunc func(*Server, string) error

// propertyTable enumerates every bindable property by its canonical
// normalized key. Binding is table-driven on purpose: each key maps to a
// typed setter closure checked at compile time.
var propertyTable = buildPropertyTable()

func buildPropertyTable() map[string]setterFunc {
	t := map[string]setterFunc{
		"server.address": func(s *Server, v string) error {
			ip, err := parseAddress(v)
			if err != nil {
				return err
			}
			s.Address = ip
			return nil
		},
		"server.port": func(s *Server, v string) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			s.Port = &n
			return nil
		},
		"server.contextpath": func(s *Server, v string) error {
			s.SetContextPath(v)
			return nil
		},
		"server.displayname": func(s *Server, v string) error {
			s.DisplayName = v
			return nil
		},
		"server.serverheader": func(s *Server, v string) error {
			s.ServerHeader = v
			return nil
		},
		"server.servletpath": func(s *Server, v string) error {
			s.ServletPath = v
			return nil
		},
		"server.useforwardheaders": func(s *Server, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			s.UseForwardHeaders = &b
			return nil
		},
		"server.session.timeout": func(s *Server, v string) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			s.Session.Timeout = time.Duration(n) * time.Second
			return nil
		},
		"server.session.trackingmodes": func(s *Server, v string) error {
			modes, err := ParseTrackingModes(v)
			if err != nil {
				return err
			}
			s.Session.TrackingModes = modes
			return nil
		},
		"server.session.storedir": func(s *Server, v string) error {
			s.Session.StoreDir = v
			return nil
		},
		"server.session.cookie.name": func(s *Server, v string) error {
			s.Session.Cookie.Name = v
			return nil
		},
		"server.session.cookie.domain": func(s *Server, v string) error {
			s.Session.Cookie.Domain = v
			return nil
		},
		"server.session.cookie.path": func(s *Server, v string) error {
			s.Session.Cookie.Path = v
			return nil
		},
		"server.session.cookie.comment": func(s *Server, v string) error {
			s.Session.Cookie.Comment = v
			return nil
		},
		"server.session.cookie.httponly": func(s *Server, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			s.Session.Cookie.HTTPOnly = &b
			return nil
		},
		"server.session.cookie.secure": func(s *Server, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			s.Session.Cookie.Secure = &b
			return nil
		},
		"server.session.cookie.maxage": func(s *Server, v string) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			s.Session.Cookie.MaxAge = &n
			return nil
		},
	}

	engines := map[string]func(*Server) *EngineConfig{
		EngineNetHTTP: func(s *Server) *EngineConfig { return &s.NetHTTP },
		EngineGin:     func(s *Server) *EngineConfig { return &s.Gin },
		EngineGorilla: func(s *Server) *EngineConfig { return &s.Gorilla },
	}
	for name, engine := range engines {
		addEngineProperties(t, "server."+name+".", engine)
	}

	return t
}

func addEngineProperties(t map[string]setterFunc, prefix string, engine func(*Server) *EngineConfig) {
	t[prefix+"accesslog.enabled"] = func(s *Server, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		engine(s).AccessLog.Enabled = &b
		return nil
	}
	t[prefix+"accesslog.pattern"] = func(s *Server, v string) error {
		engine(s).AccessLog.Pattern = v
		return nil
	}
	t[prefix+"accesslog.prefix"] = func(s *Server, v string) error {
		engine(s).AccessLog.Prefix = v
		return nil
	}
	t[prefix+"accesslog.suffix"] = func(s *Server, v string) error {
		engine(s).AccessLog.Suffix = v
		return nil
	}
	t[prefix+"accesslog.dir"] = func(s *Server, v string) error {
		engine(s).AccessLog.Dir = v
		return nil
	}
	t[prefix+"protocolheader"] = func(s *Server, v string) error {
		engine(s).ProtocolHeader = &v
		return nil
	}
	t[prefix+"protocolheaderhttpsvalue"] = func(s *Server, v string) error {
		engine(s).ProtocolHeaderHTTPSValue = v
		return nil
	}
	t[prefix+"remoteipheader"] = func(s *Server, v string) error {
		engine(s).RemoteIPHeader = &v
		return nil
	}
	t[prefix+"portheader"] = func(s *Server, v string) error {
		engine(s).PortHeader = v
		return nil
	}
	t[prefix+"internalproxies"] = func(s *Server, v string) error {
		// Stored verbatim; the pattern is compiled at customization time.
		engine(s).InternalProxies = v
		return nil
	}
	t[prefix+"uriencoding"] = func(s *Server, v string) error {
		charset, err := lookupCharset(v)
		if err != nil {
			return err
		}
		engine(s).URIEncoding = charset
		return nil
	}
	t[prefix+"maxhttpheadersize"] = func(s *Server, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		engine(s).MaxHTTPHeaderSize = n
		return nil
	}
}

// Bind applies flat string properties onto the server settings. Keys are
// matched case-insensitively with hyphen, underscore, and camelCase segment
// variants treated as equivalent. Unmatched keys are collected, not rejected;
// per-key coercion failures are collected and the remaining keys still apply.
func Bind(props map[string]string, s *Server) *BindResult {
	result := &BindResult{}

	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := props[key]
		setter, ok := propertyTable[NormalizeKey(key)]
		if !ok {
			result.unknown = append(result.unknown, key)
			continue
		}
		if err := setter(s, value); err != nil {
			var ce *coerceError
			if errors.As(err, &ce) {
				result.errs = append(result.errs, &BindError{Key: key, Value: value, Kind: ce.kind, Cause: ce.cause})
			} else {
				result.errs = append(result.errs, &BindError{Key: key, Value: value, Cause: err})
			}
		}
	}

	return result
}

// NormalizeKey collapses the relaxed key variants to one canonical form:
// hyphens and underscores are dropped and letters lowercased, so
// "server.servletPath", "server.servlet-path", and "server.servlet_path"
// all normalize to "server.servletpath".
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ParseTrackingModes parses a comma-separated tracking mode list into a
// deduplicated set. Recognized tokens are cookie, url, and ssl.
func ParseTrackingModes(v string) ([]TrackingMode, error) {
	var modes []TrackingMode
	seen := map[TrackingMode]bool{}
	for _, token := range strings.Split(v, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		mode := TrackingMode(token)
		switch mode {
		case TrackingModeCookie, TrackingModeURL, TrackingModeSSL:
		default:
			return nil, &coerceError{kind: ErrInvalidEnumValue, cause: fmt.Errorf("unrecognized tracking mode %q", token)}
		}
		if !seen[mode] {
			seen[mode] = true
			modes = append(modes, mode)
		}
	}
	return modes, nil
}

func parseAddress(v string) (net.IP, error) {
	if ip := net.ParseIP(v); ip != nil {
		return ip, nil
	}
	ips, err := net.LookupIP(v)
	if err != nil || len(ips) == 0 {
		return nil, &coerceError{kind: ErrInvalidAddress, cause: err}
	}
	return ips[0], nil
}

func parseInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &coerceError{kind: ErrInvalidNumber, cause: err}
	}
	return n, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, &coerceError{kind: ErrInvalidBoolean, cause: fmt.Errorf("expected true or false, got %q", v)}
}

// LookupCharset validates a charset name against the IANA index and returns
// it unchanged. Unknown names yield an ErrUnknownCharset coercion error.
func LookupCharset(v string) (string, error) {
	return lookupCharset(v)
}

func lookupCharset(v string) (string, error) {
	name := strings.TrimSpace(v)
	if name == "" {
		return "", &coerceError{kind: ErrUnknownCharset, cause: errors.New("empty charset name")}
	}
	// A nil encoding with a nil error means the name is IANA-registered but
	// has no Go decoder; that still counts as recognized here.
	if _, err := ianaindex.IANA.Encoding(name); err != nil {
		return "", &coerceError{kind: ErrUnknownCharset, cause: err}
	}
	return name, nil
}
