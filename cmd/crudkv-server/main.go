package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/google/gops/agent"

	"github.com/yndnr/crudkv-go/internal/core/service"
	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
	"github.com/yndnr/crudkv-go/internal/infra/confloader"
	"github.com/yndnr/crudkv-go/internal/infra/shutdown"
	"github.com/yndnr/crudkv-go/internal/server/config"
	"github.com/yndnr/crudkv-go/internal/server/httpserver"
	"github.com/yndnr/crudkv-go/internal/storage"
	"github.com/yndnr/crudkv-go/internal/telemetry/logger"
	"github.com/yndnr/crudkv-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (.yaml, .yml or .toml)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("crudkv-server %s\n", buildinfo.Get())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	build := buildinfo.Get()
	log.Info("starting crudkv-server",
		"version", build.Version,
		"commit", build.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	if cfg.Debug.Gops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			log.Warn("could not start gops agent", "error", err)
		} else {
			defer agent.Close()
		}
	}

	trustedProxies, err := cfg.Server.HTTP.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	registry := metric.NewRegistry()

	engine, err := initStorage(cfg, log, registry)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Resources:          service.NewResourceService(engine),
		Store:              engine,
		Endpoint:           cfg.Endpoint,
		Metrics:            registry,
		Logger:             log.Slog(),
		RateLimit:          cfg.Server.HTTP.RateLimit,
		TrustedProxies:     trustedProxies,
		CORSAllowedOrigins: cfg.Server.HTTP.CORSAllowedOrigins,
		AdminEnabled:       cfg.Server.HTTP.AdminEnabled,
		MaxBodyBytes:       cfg.Server.HTTP.MaxBodyBytes,
	})

	httpServer := httpserver.New(httpserver.ServerConfig{
		Addr:         cfg.Server.HTTP.Addr,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		TLSCertFile:  cfg.Server.HTTP.TLSCertFile,
		TLSKeyFile:   cfg.Server.HTTP.TLSKeyFile,
		Logger:       log.Slog(),
	}, router)

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log.Slog())

	// Hooks run in reverse order: http, watcher, storage.
	shutdownHandler.OnShutdown("storage", func(ctx context.Context) error {
		return engine.Close()
	})

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, cfg, log)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}

	shutdownHandler.OnShutdown("http server", httpServer.Shutdown)

	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", httpServer.TLSEnabled(),
			"collection", "/"+cfg.Endpoint.Name)

		if err := httpServer.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger("listener failed")
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initStorage opens the engine and registers its metrics.
func initStorage(cfg *config.ServerConfig, log logger.Logger, registry *metric.Registry) (*storage.Engine, error) {
	storageCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storageCfg.Engine = cfg.Storage.Engine
	storageCfg.SyncWrites = cfg.Storage.SyncWrites
	storageCfg.Badger.GCInterval = cfg.Storage.GCInterval
	if cfg.Storage.LockStripes > 0 {
		storageCfg.LockStripes = cfg.Storage.LockStripes
	}

	opts := []storage.Option{
		storage.WithLogger(log.Slog()),
		storage.WithObserver(registry),
	}
	if key := cfg.Security.EncryptionKey; key != "" {
		opts = append(opts, storage.WithBackupKey([]byte(key)))
	}

	engine, err := storage.Open(storageCfg, opts...)
	if err != nil {
		return nil, err
	}

	if err := engine.RegisterMetrics(registry.Registerer()); err != nil {
		engine.Close()
		return nil, fmt.Errorf("register storage metrics: %w", err)
	}

	return engine, nil
}

// watchConfig reloads the config file on change. log.level is applied at
// runtime; any other change is reported as needing a restart.
func watchConfig(path string, current *config.ServerConfig, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	active := *current
	watcher.OnChange(func(string) {
		next, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}

		if next.Log.Level != active.Log.Level {
			if err := logger.SetLevel(next.Log.Level); err != nil {
				log.Warn("log level not applied", "level", next.Log.Level, "error", err)
			} else {
				log.Info("log level changed", "from", active.Log.Level, "to", next.Log.Level)
				active.Log.Level = next.Log.Level
			}
		}

		rest := *next
		rest.Log.Level = active.Log.Level
		if !reflect.DeepEqual(rest, active) {
			log.Warn("configuration changed; restart crudkv-server to apply it")
			active = rest
		}
	})
	watcher.StartAsync()

	return watcher, nil
}
