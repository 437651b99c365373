// Package node wires a ledger engine, its storage, its event sinks and
// the JSON-RPC server into one runnable unit that cmd/ctfd embeds.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	klog "github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpc"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db     storage.DB
	engine *engine.Engine

	hub   *event.Hub
	redis *event.RedisPublisher

	rpcServer *rpc.Server
}

// New builds a node from cfg: logger, storage, event sinks, engine and
// (when enabled) the RPC server. Nothing listens until Start.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" && cfg.DataDir != "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "ctfd.log")
	}
	// Console output turns to JSON when stdout is not a terminal.
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON || klog.AutoJSON(), logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("datadir", cfg.DataDir).
		Str("backend", cfg.DB.Backend).
		Msg("Starting CTF ledger node")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	// ── 3. Event sinks ──────────────────────────────────────────────
	fanout := event.NewFanout()
	var hub *event.Hub
	if cfg.RPC.Enabled && cfg.RPC.WebSocket {
		hub = event.NewHub()
		fanout.Add(hub)
	}

	var redisPub *event.RedisPublisher
	if cfg.Events.Redis.Enabled {
		redisPub, err = openRedis(cfg.Events.Redis)
		if err != nil {
			db.Close()
			return nil, err
		}
		fanout.Add(redisPub)
		logger.Info().
			Str("addr", cfg.Events.Redis.Addr).
			Str("channel", cfg.Events.Redis.Channel).
			Msg("Redis event publisher connected")
	}

	// ── 4. Engine ───────────────────────────────────────────────────
	eng := engine.New(db, fanout)
	if err := logLedgerState(logger, eng); err != nil {
		if redisPub != nil {
			redisPub.Close()
		}
		db.Close()
		return nil, fmt.Errorf("read ledger state: %w", err)
	}

	n := &Node{
		cfg:    cfg,
		logger: logger,
		db:     db,
		engine: eng,
		hub:    hub,
		redis:  redisPub,
	}

	// ── 5. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCListenAddr(), eng, hub, cfg.RPC)
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// Start binds the RPC listener.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start RPC at %s: %w", n.cfg.RPCListenAddr(), err)
		}
		n.logger.Info().
			Str("addr", n.rpcServer.Addr()).
			Bool("websocket", n.hub != nil).
			Bool("metrics", n.cfg.RPC.Metrics).
			Msg("RPC server started")
	}

	n.logger.Info().Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order. In-flight RPC calls
// finish before storage is closed.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.hub != nil {
		n.hub.Close()
	}
	if n.redis != nil {
		if err := n.redis.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Redis close")
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Database close")
		}
	}

	n.logger.Info().Msg("Goodbye!")
}

// Engine returns the node's ledger engine.
func (n *Node) Engine() *engine.Engine {
	return n.engine
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// redisConnectTimeout bounds the startup ping.
const redisConnectTimeout = 5 * time.Second

func openRedis(cfg config.RedisConfig) (*event.RedisPublisher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	pub, err := event.NewRedisPublisher(ctx, event.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}
	return pub, nil
}
