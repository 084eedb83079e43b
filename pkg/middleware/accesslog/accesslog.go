// Package accesslog records one formatted line per request, Tomcat-style.
package accesslog

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nimburion/serverconf/pkg/server/router"
)

// Config controls the access log destination and line format.
type Config struct {
	// Pattern is a token pattern or the named pattern "common"
	Pattern string
	// Dir is the log directory; empty means stdout
	Dir string
	// Prefix and Suffix form the log file name, e.g. "access_log" + ".log"
	Prefix string
	Suffix string
}

// DefaultConfig matches the engine defaults.
func DefaultConfig() Config {
	return Config{Pattern: "common", Prefix: "access_log", Suffix: ".log"}
}

// AccessLog writes formatted request lines to one destination.
type AccessLog struct {
	tokens []token
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	now    func() time.Time
}

// New opens the access log. When cfg.Dir is set the directory is created and
// lines are appended to prefix+suffix inside it; otherwise lines go to
// stdout.
func New(cfg Config) (*AccessLog, error) {
	a := &AccessLog{
		tokens: parsePattern(cfg.Pattern),
		out:    os.Stdout,
		now:    time.Now,
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create access log dir: %w", err)
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "access_log"
		}
		name := filepath.Join(cfg.Dir, prefix+cfg.Suffix)
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open access log: %w", err)
		}
		a.out = f
		a.closer = f
	}

	return a, nil
}

// Middleware returns the request-logging middleware.
func (a *AccessLog) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			start := a.now()
			err := next(c)

			req := c.Request()
			resp := c.Response()
			a.write(Entry{
				RemoteHost: hostOnly(req.RemoteAddr),
				User:       requestUser(req),
				Time:       start,
				Method:     req.Method,
				URI:        req.URL.RequestURI(),
				Protocol:   req.Proto,
				Status:     resp.Status(),
				Bytes:      resp.Size(),
			})
			return err
		}
	}
}

// Log formats and writes one entry directly. The middleware path uses it;
// tests can too.
func (a *AccessLog) Log(e Entry) {
	a.write(e)
}

// Close closes the underlying file, when one is open.
func (a *AccessLog) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *AccessLog) write(e Entry) {
	line := formatEntry(a.tokens, e)
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(a.out, line)
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func requestUser(req *http.Request) string {
	if user, _, ok := req.BasicAuth(); ok {
		return user
	}
	return ""
}
