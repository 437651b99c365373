package config

import (
	"fmt"
	"net"
	"strings"

	klog "github.com/Klingon-tech/klingnet-ctf/internal/log"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" && cfg.DB.Backend == BackendBadger {
		return fmt.Errorf("datadir is required for the badger backend")
	}

	cfg.DB.Backend = strings.ToLower(strings.TrimSpace(cfg.DB.Backend))
	switch cfg.DB.Backend {
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("db.backend must be %q or %q", BackendBadger, BackendMemory)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for i, entry := range cfg.RPC.AllowedIPs {
		if err := validateAllowed(entry); err != nil {
			return fmt.Errorf("rpc.allowed[%d]: %w", i, err)
		}
	}

	if cfg.Events.Redis.Enabled {
		if cfg.Events.Redis.Addr == "" {
			return fmt.Errorf("events.redis.addr is required when redis is enabled")
		}
		if _, _, err := net.SplitHostPort(cfg.Events.Redis.Addr); err != nil {
			return fmt.Errorf("events.redis.addr: %w", err)
		}
		if cfg.Events.Redis.DB < 0 {
			return fmt.Errorf("events.redis.db must not be negative")
		}
	}
	if cfg.Events.Redis.Channel == "" {
		cfg.Events.Redis.Channel = DefaultRedisChannel
	}

	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}

// validateAllowed accepts a bare IP or a CIDR range.
func validateAllowed(entry string) error {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("invalid CIDR %q", entry)
		}
		return nil
	}
	if net.ParseIP(entry) == nil {
		return fmt.Errorf("invalid IP %q", entry)
	}
	return nil
}
