package event

import (
	"context"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/metrics"
)

// Publisher pushes committed records to an external sink.
type Publisher interface {
	// Name labels the sink in logs and metrics.
	Name() string
	Publish(ctx context.Context, rec *Record) error
}

// publishTimeout bounds a single sink write.
const publishTimeout = 2 * time.Second

// Fanout delivers records to every registered publisher. A failing sink
// is logged and skipped; it never affects the ledger.
type Fanout struct {
	publishers []Publisher
}

// NewFanout creates a fan-out over the given publishers. Nil entries are ignored.
func NewFanout(pubs ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Add registers another publisher.
func (f *Fanout) Add(p Publisher) {
	f.publishers = append(f.publishers, p)
}

// Publish sends recs, in order, to every publisher.
func (f *Fanout) Publish(ctx context.Context, recs []*Record) {
	for _, rec := range recs {
		for _, p := range f.publishers {
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := p.Publish(pctx, rec)
			cancel()
			metrics.EventsPublished.WithLabelValues(p.Name(), metrics.Status(err)).Inc()
			if err != nil {
				log.Events.Warn().Err(err).
					Str("sink", p.Name()).
					Uint64("seq", rec.Seq).
					Str("type", string(rec.Type)).
					Msg("Event publish failed")
			}
		}
	}
}
