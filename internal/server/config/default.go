package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 32 << 20

	DefaultEndpointName = "resources"
	DefaultContentType  = "application/octet-stream"

	DefaultEngine      = "badger"
	DefaultDataDir     = "./data"
	DefaultGCInterval  = 10 * time.Minute
	DefaultLockStripes = 64

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
				AdminEnabled:    true,
				MaxBodyBytes:    DefaultMaxBodyBytes,
			},
		},
		Endpoint: EndpointConfig{
			Name:        DefaultEndpointName,
			AllowPost:   true,
			ContentType: DefaultContentType,
		},
		Storage: StorageSection{
			Engine:      DefaultEngine,
			DataDir:     DefaultDataDir,
			SyncWrites:  true,
			GCInterval:  DefaultGCInterval,
			LockStripes: DefaultLockStripes,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
