// Package forwarded rewrites requests using reverse-proxy forwarding headers.
// The rewrite only happens when the immediate peer is a trusted internal
// proxy; requests arriving directly from untrusted addresses pass through
// untouched so clients cannot spoof their own origin.
package forwarded

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/server/router"
)

type contextKey struct{}

// Info is the origin derived from forwarding headers.
type Info struct {
	// ClientIP is the first untrusted address in the forwarding chain
	ClientIP string
	// Scheme is "https" when the protocol header carried the configured
	// HTTPS value, "http" otherwise
	Scheme string
	// Port is the original server port, when a port header is configured
	Port int
}

// FromContext returns the forwarding info recorded for this request.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(contextKey{}).(Info)
	return info, ok
}

// Middleware builds the header-rewriting middleware for fc. The internal
// proxy pattern must match complete dotted-quad addresses.
func Middleware(fc *config.ForwardedConfig) (router.MiddlewareFunc, error) {
	proxies, err := regexp.Compile("^(?:" + fc.InternalProxies + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid internal proxies pattern: %w", err)
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			peer := hostOnly(req.RemoteAddr)
			if !proxies.MatchString(peer) {
				return next(c)
			}

			info := Info{ClientIP: peer, Scheme: "http"}

			if chain := req.Header.Get(fc.RemoteIPHeader); chain != "" {
				if client, ok := resolveClient(chain, proxies); ok {
					info.ClientIP = client
				}
			}

			if fc.ProtocolHeader != "" {
				proto := req.Header.Get(fc.ProtocolHeader)
				if strings.EqualFold(proto, fc.ProtocolHeaderHTTPSValue) {
					info.Scheme = "https"
				}
			}

			if fc.PortHeader != "" {
				if port, err := strconv.Atoi(req.Header.Get(fc.PortHeader)); err == nil {
					info.Port = port
				}
			}

			rewritten := req.WithContext(context.WithValue(req.Context(), contextKey{}, info))
			rewritten.RemoteAddr = net.JoinHostPort(info.ClientIP, portOnly(req.RemoteAddr))
			rewritten.URL.Scheme = info.Scheme
			c.SetRequest(rewritten)

			return next(c)
		}
	}, nil
}

// resolveClient walks the forwarding chain right to left, skipping trusted
// proxies; the first untrusted entry is the client.
func resolveClient(chain string, proxies *regexp.Regexp) (string, bool) {
	entries := strings.Split(chain, ",")
	for i := len(entries) - 1; i >= 0; i-- {
		entry := strings.TrimSpace(entries[i])
		if entry == "" {
			continue
		}
		if !proxies.MatchString(entry) {
			return entry, true
		}
	}
	return "", false
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func portOnly(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return "0"
}
