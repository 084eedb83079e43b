package accesslog

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nimburion/serverconf/pkg/server/router"
	"github.com/nimburion/serverconf/pkg/server/router/nethttp"
)

var entryTime = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

func sampleEntry() Entry {
	return Entry{
		RemoteHost: "203.0.113.9",
		Time:       entryTime,
		Method:     "GET",
		URI:        "/index.html",
		Protocol:   "HTTP/1.1",
		Status:     200,
		Bytes:      2326,
	}
}

func TestCommonPatternFormat(t *testing.T) {
	line := formatEntry(parsePattern("common"), sampleEntry())
	want := `203.0.113.9 - - [14/Mar/2026:09:26:53 +0000] "GET /index.html HTTP/1.1" 200 2326`
	if line != want {
		t.Errorf("unexpected line:\n got %q\nwant %q", line, want)
	}
}

func TestCustomPatternFormat(t *testing.T) {
	line := formatEntry(parsePattern("%h %t '%r' %s %b"), sampleEntry())
	want := `203.0.113.9 [14/Mar/2026:09:26:53 +0000] 'GET /index.html HTTP/1.1' 200 2326`
	if line != want {
		t.Errorf("unexpected line:\n got %q\nwant %q", line, want)
	}
}

func TestPatternZeroBytesIsDash(t *testing.T) {
	e := sampleEntry()
	e.Bytes = 0
	line := formatEntry(parsePattern("%b"), e)
	if line != "-" {
		t.Errorf("expected dash for zero bytes, got %q", line)
	}
}

func TestPatternUnknownTokenKeptLiterally(t *testing.T) {
	line := formatEntry(parsePattern("%s %z"), sampleEntry())
	if line != "200 %z" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestPatternEscapedPercent(t *testing.T) {
	line := formatEntry(parsePattern("%s%%"), sampleEntry())
	if line != "200%" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestAccessLogWritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	a, err := New(Config{Pattern: "common", Dir: dir, Prefix: "foo", Suffix: "-bar.log"})
	if err != nil {
		t.Fatalf("failed to open access log: %v", err)
	}
	a.now = func() time.Time { return entryTime }

	r := nethttp.NewRouter()
	r.Use(a.Middleware())
	r.GET("/hello", func(c router.Context) error {
		return c.String(http.StatusOK, "hello world")
	})

	req := httptest.NewRequest(http.MethodGet, "/hello?x=1", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "foo-bar.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := strings.TrimSpace(string(raw))
	want := `203.0.113.9 - - [14/Mar/2026:09:26:53 +0000] "GET /hello?x=1 HTTP/1.1" 200 11`
	if line != want {
		t.Errorf("unexpected line:\n got %q\nwant %q", line, want)
	}
}

func TestAccessLogDefaultFileName(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Config{Dir: dir, Suffix: ".log"})
	if err != nil {
		t.Fatalf("failed to open access log: %v", err)
	}
	a.Log(sampleEntry())
	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "access_log.log")); err != nil {
		t.Errorf("expected default file name: %v", err)
	}
}
