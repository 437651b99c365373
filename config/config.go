// Package config handles ctfd node configuration.
//
// Settings are layered: built-in defaults, then the TOML config file,
// then CTFD_* environment variables (optionally from a .env file), then
// command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds node runtime configuration.
type Config struct {
	DataDir string `toml:"datadir"`

	// Ledger storage
	DB DBConfig `toml:"db"`

	// JSON-RPC server
	RPC RPCConfig `toml:"rpc"`

	// Event sinks
	Events EventsConfig `toml:"events"`

	// Logging
	Log LogConfig `toml:"log"`
}

// DBConfig selects the ledger storage backend.
type DBConfig struct {
	Backend string `toml:"backend"` // badger or memory
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Port        int      `toml:"port"`
	AllowedIPs  []string `toml:"allowed"`
	CORSOrigins []string `toml:"cors"` // Allowed CORS origins ("*" = all).
	WebSocket   bool     `toml:"websocket"`
	Metrics     bool     `toml:"metrics"`
}

// EventsConfig holds the external event sinks. The event log itself is
// always written to the ledger store.
type EventsConfig struct {
	Redis RedisConfig `toml:"redis"`
}

// RedisConfig configures the Redis pub/sub publisher.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	JSON  bool   `toml:"json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ctfd
//	macOS:   ~/Library/Application Support/Ctfd
//	Windows: %APPDATA%\Ctfd
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ctfd"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Ctfd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Ctfd")
		}
		return filepath.Join(home, "AppData", "Roaming", "Ctfd")
	default:
		return filepath.Join(home, ".ctfd")
	}
}

// LedgerDir returns the Badger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledger")
}

// WalletDir returns the CLI wallet directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallets")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ctfd.toml")
}

// EnvFile returns the optional .env override file path.
func (c *Config) EnvFile() string {
	return filepath.Join(c.DataDir, ".env")
}

// RPCListenAddr returns the host:port the RPC server binds to.
func (c *Config) RPCListenAddr() string {
	return joinHostPort(c.RPC.Addr, c.RPC.Port)
}
