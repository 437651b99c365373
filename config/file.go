package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFile decodes a TOML config file on top of cfg. A missing file is
// not an error. Unknown keys are rejected so typos do not go unnoticed.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a commented default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# ctfd node configuration
#
# Values here override built-in defaults. CTFD_* environment variables
# (or a .env file in the data directory) override this file, and
# command-line flags override everything.

# Data directory (default: ~/.ctfd)
# datadir = "~/.ctfd"

# ============================================================================
# Storage
# ============================================================================

[db]
# badger (persistent) or memory (lost on restart)
backend = "badger"

# ============================================================================
# RPC Server
# ============================================================================

[rpc]
enabled = true
addr = "127.0.0.1"
port = 8745
allowed = ["127.0.0.1"]
# CORS allowed origins ("*" for all)
# cors = ["http://localhost:3000"]

# Stream event records on /ws
websocket = true
# Serve Prometheus metrics on /metrics
metrics = true

# ============================================================================
# Event sinks
# ============================================================================

[events.redis]
enabled = false
addr = "127.0.0.1:6379"
# password = ""
db = 0
channel = "ctf:events"

# ============================================================================
# Logging
# ============================================================================

[log]
level = "info"
# file = ""
json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
