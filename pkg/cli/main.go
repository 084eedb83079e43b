// Package cli assembles the serverconf command tree: serve, config check,
// config show, and version.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/middleware/ratelimit"
	"github.com/nimburion/serverconf/pkg/middleware/requestid"
	"github.com/nimburion/serverconf/pkg/middleware/session"
	"github.com/nimburion/serverconf/pkg/observability/logger"
	"github.com/nimburion/serverconf/pkg/observability/metrics"
	"github.com/nimburion/serverconf/pkg/server"
	"github.com/nimburion/serverconf/pkg/server/engine"
	"github.com/nimburion/serverconf/pkg/server/router"
	"github.com/nimburion/serverconf/pkg/version"
)

// Options configures the command tree.
type Options struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// RegisterRoutes lets the embedding application add routes to the built
	// runtime before the server starts.
	RegisterRoutes func(rt *engine.Runtime) error
}

// serverFlagBindings maps CLI flags to server property keys so flag overrides
// travel through the same coercion path as file and environment values.
var serverFlagBindings = []struct {
	flag string
	key  string
}{
	{"address", "server.address"},
	{"port", "server.port"},
	{"context-path", "server.context-path"},
	{"display-name", "server.display-name"},
	{"server-header", "server.server-header"},
	{"use-forward-headers", "server.use-forward-headers"},
}

// NewRootCommand builds the root command with its subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "APP"
	}
	if opts.Name == "" {
		opts.Name = "serverconf"
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().String("engine", "", "HTTP engine (nethttp, gin, gorilla)")
	rootCmd.PersistentFlags().String("address", "", "bind address")
	rootCmd.PersistentFlags().Int("port", 0, "listen port")
	rootCmd.PersistentFlags().String("context-path", "", "application context path")
	rootCmd.PersistentFlags().String("display-name", "", "application display name")
	rootCmd.PersistentFlags().String("server-header", "", "Server response header value")
	rootCmd.PersistentFlags().Bool("use-forward-headers", false, "trust forwarded headers")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger(cfgPath, opts.EnvPrefix, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log, opts)
		},
	}
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = serveCmd.RunE

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, opts.EnvPrefix, cmd.Flags())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (engine: %s)\n", cfg.EngineType)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, opts.EnvPrefix, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("format config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(opts.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", info.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %s\n", info.BuildTime)
		},
	})

	return rootCmd
}

// Execute runs cmd under a signal-aware context and exits non-zero on error.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cfgPath, envPrefix string, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.NewLoader(cfgPath, envPrefix).Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigAndLogger(cfgPath, envPrefix string, flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	cfg, err := loadConfig(cfgPath, envPrefix, flags)
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	zapLog, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	var log logger.Logger = zapLog
	if cfg.Observability.LogAsync {
		log = logger.WrapAsync(zapLog, logger.AsyncConfig{Enabled: true})
	}
	return cfg, log, nil
}

// applyFlagOverrides pushes changed CLI flags through the server property
// table, keeping one coercion path for every configuration source.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if flags.Changed("engine") {
		value, _ := flags.GetString("engine")
		cfg.EngineType = strings.ToLower(strings.TrimSpace(value))
		if _, err := engine.ParseType(cfg.EngineType); err != nil {
			return err
		}
	}

	props := map[string]string{}
	for _, binding := range serverFlagBindings {
		if flags.Changed(binding.flag) {
			flag := flags.Lookup(binding.flag)
			props[binding.key] = flag.Value.String()
		}
	}
	if len(props) == 0 {
		return nil
	}

	result := config.Bind(props, &cfg.Server)
	if result.HasErrors() {
		errs := make([]error, 0, len(result.Errors()))
		for _, bindErr := range result.Errors() {
			errs = append(errs, bindErr)
		}
		return fmt.Errorf("invalid flag override: %w", errors.Join(errs...))
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) error {
	engineType, err := engine.ParseType(cfg.EngineType)
	if err != nil {
		return err
	}
	factory, err := engine.NewFactory(engineType)
	if err != nil {
		return err
	}

	if err := engine.NewCustomizer(cfg, nil, log).Apply(factory); err != nil {
		return fmt.Errorf("customize engine: %w", err)
	}

	var registry *metrics.Registry
	if cfg.Observability.MetricsEnabled {
		registry = metrics.NewRegistry()
		factory.SetMetrics(registry)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		factory.SetSessionStore(store)
	}

	rt, err := factory.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	if rt.AccessLog != nil {
		defer rt.AccessLog.Close()
	}

	rt.Router.Use(requestid.RequestID())
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		rt.Router.Use(ratelimit.RateLimit(limiter, ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	registerBuiltinRoutes(rt, registry, opts.Name)
	if opts.RegisterRoutes != nil {
		if err := opts.RegisterRoutes(rt); err != nil {
			return fmt.Errorf("register routes: %w", err)
		}
	}

	log.Info("engine ready",
		"engine", string(rt.Type),
		"addr", rt.Addr,
		"display_name", rt.DisplayName,
	)

	srv := server.NewServer(server.Config{
		Addr:           rt.Addr,
		MaxHeaderBytes: rt.MaxHeaderBytes,
	}, rt.Handler, log)
	return srv.Start(ctx)
}

func registerBuiltinRoutes(rt *engine.Runtime, registry *metrics.Registry, name string) {
	rt.Router.GET("/healthz", func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	rt.Router.GET("/info", func(c router.Context) error {
		info := version.Current(name)
		return c.JSON(http.StatusOK, map[string]string{
			"name":         rt.DisplayName,
			"engine":       string(rt.Type),
			"version":      info.Version,
			"commit":       info.Commit,
			"request_id":   requestid.GetRequestID(c.Request().Context()),
			"uri_encoding": rt.URIEncoding,
		})
	})
	if registry != nil {
		handler := registry.Handler()
		rt.Router.GET("/metrics", func(c router.Context) error {
			handler.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch strings.ToLower(cfg.SessionStore.Kind) {
	case "", config.SessionStoreMemory:
		return session.NewInMemoryStore(), nil
	case config.SessionStoreFile:
		if cfg.Server.Session.StoreDir == "" {
			return nil, errors.New("server.session.store-dir is required for the file store")
		}
		return session.NewFileStore(cfg.Server.Session.StoreDir)
	case config.SessionStoreRedis:
		return session.NewRedisStore(session.RedisConfig{URL: cfg.SessionStore.RedisURL})
	}
	return nil, fmt.Errorf("unknown session store kind %q", cfg.SessionStore.Kind)
}
