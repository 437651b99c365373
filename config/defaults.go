package config

import (
	"net"
	"strconv"
)

// DefaultRPCPort is the default JSON-RPC port.
const DefaultRPCPort = 8745

// DefaultRedisChannel is the default pub/sub channel for event records.
const DefaultRedisChannel = "ctf:events"

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		DB: DBConfig{
			Backend: BackendBadger,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       DefaultRPCPort,
			AllowedIPs: []string{"127.0.0.1"},
			WebSocket:  true,
			Metrics:    true,
		},
		Events: EventsConfig{
			Redis: RedisConfig{
				Enabled: false,
				Addr:    "127.0.0.1:6379",
				Channel: DefaultRedisChannel,
			},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
