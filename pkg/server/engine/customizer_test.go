package engine

import (
	"net"
	"testing"

	"github.com/nimburion/serverconf/pkg/config"
)

func customizerEnv(vars map[string]string) config.EnvFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func emptyEnv() config.EnvFunc {
	return customizerEnv(nil)
}

func TestCustomizerAppliesListenSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	port := 9000
	cfg.Server.Address = net.ParseIP("127.0.0.1")
	cfg.Server.Port = &port

	f := NewNetHTTPFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}

	rt, err := f.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if rt.Addr != "127.0.0.1:9000" {
		t.Errorf("expected 127.0.0.1:9000, got %s", rt.Addr)
	}
}

func TestCustomizerLeavesEngineDefaultsInPlace(t *testing.T) {
	cfg := config.DefaultConfig()

	f := NewNetHTTPFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}

	rt, err := f.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if rt.Addr != ":8080" {
		t.Errorf("expected default addr, got %s", rt.Addr)
	}
	if f.contextPath != "" {
		t.Errorf("expected no context path, got %q", f.contextPath)
	}
	if f.serverHeader != "" {
		t.Errorf("expected no server header, got %q", f.serverHeader)
	}
	if f.ForwardedEnabled() {
		t.Error("expected no forwarded middleware without flag or platform")
	}
}

func TestCustomizerAlwaysAppliesDisplayName(t *testing.T) {
	cfg := config.DefaultConfig()

	f := NewNetHTTPFactory()
	f.SetDisplayName("stale")
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.displayName != "application" {
		t.Errorf("expected default display name applied, got %q", f.displayName)
	}

	cfg.Server.DisplayName = "orders"
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.displayName != "orders" {
		t.Errorf("expected orders, got %q", f.displayName)
	}
}

func TestCustomizerAppliesContextPathAndServerHeader(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.SetContextPath("/api/")
	cfg.Server.ServerHeader = "Custom Server"

	f := NewGorillaFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyGorilla(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.contextPath != "/api" {
		t.Errorf("expected normalized /api, got %q", f.contextPath)
	}
	if f.serverHeader != "Custom Server" {
		t.Errorf("expected server header, got %q", f.serverHeader)
	}
}

func TestCustomizerForwardedByFlag(t *testing.T) {
	cfg := config.DefaultConfig()
	use := true
	cfg.Server.UseForwardHeaders = &use

	f := NewNetHTTPFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if !f.ForwardedEnabled() {
		t.Error("expected forwarded middleware when flag set")
	}
}

func TestCustomizerForwardedByPlatformPerEngine(t *testing.T) {
	heroku := customizerEnv(map[string]string{"DYNO": "web.1"})

	nhf := NewNetHTTPFactory()
	gf := NewGinFactory()
	mf := NewGorillaFactory()

	cfg := config.DefaultConfig()
	c := NewCustomizer(cfg, heroku, nil)
	if err := c.ApplyNetHTTP(nhf); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if err := c.ApplyGin(gf); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if err := c.ApplyGorilla(mf); err != nil {
		t.Fatalf("customize failed: %v", err)
	}

	if !nhf.ForwardedEnabled() || !gf.ForwardedEnabled() || !mf.ForwardedEnabled() {
		t.Error("expected platform inference to enable forwarded handling on every engine")
	}
}

func TestCustomizerExplicitEmptyHeadersDisableForwarded(t *testing.T) {
	empty := ""
	cfg := config.DefaultConfig()
	cfg.Server.Gin.ProtocolHeader = &empty
	cfg.Server.Gin.RemoteIPHeader = &empty

	f := NewGinFactory()
	heroku := customizerEnv(map[string]string{"DYNO": "web.1"})
	if err := NewCustomizer(cfg, heroku, nil).ApplyGin(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.ForwardedEnabled() {
		t.Error("expected explicit empty headers to win over platform inference")
	}
}

func TestCustomizerBadInternalProxiesIsFatal(t *testing.T) {
	use := true
	cfg := config.DefaultConfig()
	cfg.Server.UseForwardHeaders = &use
	cfg.Server.NetHTTP.InternalProxies = "(("

	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(NewNetHTTPFactory()); err == nil {
		t.Error("expected customization to fail on invalid proxy pattern")
	}
}

func TestCustomizerEngineBlockSettings(t *testing.T) {
	enabled := true
	cfg := config.DefaultConfig()
	cfg.Server.Gin.URIEncoding = "US-ASCII"
	cfg.Server.Gin.MaxHTTPHeaderSize = 9999
	cfg.Server.Gin.AccessLog.Enabled = &enabled
	cfg.Server.Gin.AccessLog.Pattern = "%h %s"

	f := NewGinFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyGin(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.uriEncoding != "US-ASCII" {
		t.Errorf("expected US-ASCII, got %q", f.uriEncoding)
	}
	if f.maxHeaderBytes != 9999 {
		t.Errorf("expected 9999, got %d", f.maxHeaderBytes)
	}
	if f.accessLogCfg == nil || f.accessLogCfg.Pattern != "%h %s" {
		t.Errorf("expected access log config, got %+v", f.accessLogCfg)
	}
}

func TestCustomizerInvalidURIEncodingIsFatal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.NetHTTP.URIEncoding = "not-a-charset"

	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(NewNetHTTPFactory()); err == nil {
		t.Error("expected customization to fail on unknown charset")
	}
}

func TestCustomizerPassesSessionStoreDirThrough(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Session.StoreDir = "/nonexistent/sessions"

	f := NewNetHTTPFactory()
	if err := NewCustomizer(cfg, emptyEnv(), nil).ApplyNetHTTP(f); err != nil {
		t.Fatalf("customize failed: %v", err)
	}
	if f.sessionCfg.StoreDir != "/nonexistent/sessions" {
		t.Errorf("expected store dir passed through untouched, got %q", f.sessionCfg.StoreDir)
	}
}

func TestCustomizerApplyDispatch(t *testing.T) {
	cfg := config.DefaultConfig()
	c := NewCustomizer(cfg, emptyEnv(), nil)

	factories := []Factory{NewNetHTTPFactory(), NewGinFactory(), NewGorillaFactory()}
	for _, f := range factories {
		if err := c.Apply(f); err != nil {
			t.Errorf("Apply(%v) failed: %v", f.Type(), err)
		}
	}
}
