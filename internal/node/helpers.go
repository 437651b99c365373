package node

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/rs/zerolog"
)

// openDB opens the configured storage backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.DB.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger, "":
		db, err := storage.NewBadger(cfg.LedgerDir())
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", cfg.LedgerDir(), err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db backend %q", cfg.DB.Backend)
	}
}

// logLedgerState reports what a reopened ledger already holds.
func logLedgerState(logger zerolog.Logger, eng *engine.Engine) error {
	conds, err := eng.Conditions()
	if err != nil {
		return err
	}
	resolved := 0
	for _, c := range conds {
		if c.Resolved {
			resolved++
		}
	}
	last, err := eng.LastEventSeq()
	if err != nil {
		return err
	}
	logger.Info().
		Int("conditions", len(conds)).
		Int("resolved", resolved).
		Uint64("last_event", last).
		Msg("Ledger opened")
	return nil
}
