package engine

import (
	"fmt"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/middleware/accesslog"
	"github.com/nimburion/serverconf/pkg/observability/logger"
)

// Customizer copies a resolved server configuration onto an engine factory.
// Fields left at their "engine default" value are skipped; the display name
// is always applied. Unusable values make the customization fail outright.
type Customizer struct {
	cfg *config.Config
	env config.EnvFunc
	log logger.Logger
}

// NewCustomizer creates a customizer over cfg. A nil env falls back to the
// process environment, a nil log discards output.
func NewCustomizer(cfg *config.Config, env config.EnvFunc, log logger.Logger) *Customizer {
	if env == nil {
		env = config.OSEnv
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Customizer{cfg: cfg, env: env, log: log}
}

// ApplyNetHTTP customizes a net/http factory.
func (c *Customizer) ApplyNetHTTP(f *NetHTTPFactory) error {
	return c.apply(&f.factoryState, &c.cfg.Server.NetHTTP)
}

// ApplyGin customizes a gin factory.
func (c *Customizer) ApplyGin(f *GinFactory) error {
	return c.apply(&f.factoryState, &c.cfg.Server.Gin)
}

// ApplyGorilla customizes a gorilla factory.
func (c *Customizer) ApplyGorilla(f *GorillaFactory) error {
	return c.apply(&f.factoryState, &c.cfg.Server.Gorilla)
}

// Apply dispatches to the engine-specific customization for f.
func (c *Customizer) Apply(f Factory) error {
	switch target := f.(type) {
	case *NetHTTPFactory:
		return c.ApplyNetHTTP(target)
	case *GinFactory:
		return c.ApplyGin(target)
	case *GorillaFactory:
		return c.ApplyGorilla(target)
	}
	return fmt.Errorf("unknown factory type %T", f)
}

func (c *Customizer) apply(st *factoryState, eng *config.EngineConfig) error {
	s := &c.cfg.Server

	if s.Address != nil {
		st.SetAddress(s.Address)
	}
	if s.Port != nil {
		st.SetPort(*s.Port)
	}
	if s.ContextPath != "" {
		st.SetContextPath(s.ContextPath)
	}
	st.SetDisplayName(s.DisplayName)
	if s.ServerHeader != "" {
		st.SetServerHeader(s.ServerHeader)
	}
	st.SetSession(s.Session)

	if eng.URIEncoding != "" {
		if err := st.SetURIEncoding(eng.URIEncoding); err != nil {
			return err
		}
	}
	if eng.MaxHTTPHeaderSize > 0 {
		st.SetMaxHTTPHeaderSize(eng.MaxHTTPHeaderSize)
	}
	if eng.AccessLog.Enabled != nil && *eng.AccessLog.Enabled {
		st.SetAccessLog(accesslog.Config{
			Pattern: eng.AccessLog.Pattern,
			Dir:     eng.AccessLog.Dir,
			Prefix:  eng.AccessLog.Prefix,
			Suffix:  eng.AccessLog.Suffix,
		})
	}

	fc := config.ResolveForwarded(s, eng, c.env)
	if err := st.SetForwarded(fc); err != nil {
		return fmt.Errorf("forwarded headers: %w", err)
	}

	c.log.Debug("engine customized",
		"engine", string(st.engineType),
		"display_name", s.DisplayName,
		"forwarded", st.ForwardedEnabled(),
	)
	return nil
}
