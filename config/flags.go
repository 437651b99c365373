package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string
	Backend string

	// RPC
	RPC          bool
	RPCAddr      string
	RPCPort      int
	RPCAllowed   string
	RPCCORS      string
	RPCWebSocket bool
	RPCMetrics   bool

	// Events
	Redis         bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetRPC          bool
	SetRPCWebSocket bool
	SetRPCMetrics   bool
	SetRedis        bool
	SetRedisDB      bool
	SetLogJSON      bool
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ctfd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Backend, "db", "", "Storage backend (badger or memory)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")
	fs.BoolVar(&f.RPCWebSocket, "ws", true, "Serve the event stream on /ws")
	fs.BoolVar(&f.RPCMetrics, "metrics", true, "Serve Prometheus metrics on /metrics")

	// Events
	fs.BoolVar(&f.Redis, "redis", false, "Publish events to Redis")
	fs.StringVar(&f.RedisAddr, "redis-addr", "", "Redis address (host:port)")
	fs.StringVar(&f.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&f.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&f.RedisChannel, "redis-channel", "", "Redis pub/sub channel")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetRPCWebSocket = isFlagSet(fs, "ws")
	f.SetRPCMetrics = isFlagSet(fs, "metrics")
	f.SetRedis = isFlagSet(fs, "redis")
	f.SetRedisDB = isFlagSet(fs, "redis-db")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// A positional argument stops the parser; anything flag-like after it
	// would be silently ignored.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Backend != "" {
		cfg.DB.Backend = f.Backend
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}
	if f.SetRPCWebSocket {
		cfg.RPC.WebSocket = f.RPCWebSocket
	}
	if f.SetRPCMetrics {
		cfg.RPC.Metrics = f.RPCMetrics
	}

	// Events
	if f.SetRedis {
		cfg.Events.Redis.Enabled = f.Redis
	}
	if f.RedisAddr != "" {
		cfg.Events.Redis.Addr = f.RedisAddr
	}
	if f.RedisPassword != "" {
		cfg.Events.Redis.Password = f.RedisPassword
	}
	if f.SetRedisDB {
		cfg.Events.Redis.DB = f.RedisDB
	}
	if f.RedisChannel != "" {
		cfg.Events.Redis.Channel = f.RedisChannel
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the ctfd help text to w.
func PrintUsage(w io.Writer) {
	usage := `ctfd - Conditional Token Framework ledger node

Usage:
  ctfd [options]
  ctfd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --datadir       Data directory (default: ~/.ctfd)
  --config, -c    Config file path (default: <datadir>/ctfd.toml)
  --db            Storage backend: badger (default) or memory

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (default: 8745)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)
  --ws            Serve the live event stream on /ws (default: true)
  --metrics       Serve Prometheus metrics on /metrics (default: true)

Event Options:
  --redis           Publish event records to Redis
  --redis-addr      Redis address (default: 127.0.0.1:6379)
  --redis-password  Redis password
  --redis-db        Redis database number
  --redis-channel   Pub/sub channel (default: ctf:events)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Environment:
  Every setting can also be given as a CTFD_* variable, e.g.
  CTFD_RPC_PORT=9000 or CTFD_REDIS_ADDR=redis:6379. Variables are also
  read from <datadir>/.env when present.

Examples:
  # Start with defaults
  ctfd

  # Throwaway in-memory ledger on a custom port
  ctfd --db=memory --rpc-port=9000

  # Fan events out to Redis
  ctfd --redis --redis-addr=127.0.0.1:6379
`
	fmt.Fprint(w, usage)
}

// Load builds the node configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. .env file and CTFD_* environment variables
// 5. Command-line flags
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	// The data directory decides where the config file lives, so resolve
	// it from the environment and flags before reading anything.
	setStr(&cfg.DataDir, "DATADIR")
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	if err := LoadFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	if err := LoadEnvFile(cfg.EnvFile()); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.WalletDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
