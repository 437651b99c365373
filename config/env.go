package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CTFD_"

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. Variables already set are left alone; a missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg fields from CTFD_* environment variables.
// Unset or empty variables leave the field untouched.
func ApplyEnv(cfg *Config) error {
	setStr(&cfg.DataDir, "DATADIR")

	setStr(&cfg.DB.Backend, "DB_BACKEND")

	if err := setBool(&cfg.RPC.Enabled, "RPC_ENABLED"); err != nil {
		return err
	}
	setStr(&cfg.RPC.Addr, "RPC_ADDR")
	if err := setInt(&cfg.RPC.Port, "RPC_PORT"); err != nil {
		return err
	}
	setList(&cfg.RPC.AllowedIPs, "RPC_ALLOWED")
	setList(&cfg.RPC.CORSOrigins, "RPC_CORS")
	if err := setBool(&cfg.RPC.WebSocket, "RPC_WEBSOCKET"); err != nil {
		return err
	}
	if err := setBool(&cfg.RPC.Metrics, "RPC_METRICS"); err != nil {
		return err
	}

	if err := setBool(&cfg.Events.Redis.Enabled, "REDIS_ENABLED"); err != nil {
		return err
	}
	setStr(&cfg.Events.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Events.Redis.Password, "REDIS_PASSWORD")
	if err := setInt(&cfg.Events.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	setStr(&cfg.Events.Redis.Channel, "REDIS_CHANNEL")

	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Log.File, "LOG_FILE")
	return setBool(&cfg.Log.JSON, "LOG_JSON")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = parseStringList(v)
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}
