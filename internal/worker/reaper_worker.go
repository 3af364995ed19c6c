package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReaperInterval is how often finished attempts are swept.
const ReaperInterval = time.Minute

// Evicter drops finalized attempts older than a retention window.
type Evicter interface {
	EvictFinished(retention time.Duration) int
}

// ReaperWorker removes finished attempts from the live registry once
// students have had time to read their score.
type ReaperWorker struct {
	attempts  Evicter
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

func NewReaperWorker(attempts Evicter, retention time.Duration, log zerolog.Logger) *ReaperWorker {
	return &ReaperWorker{
		attempts:  attempts,
		retention: retention,
		interval:  ReaperInterval,
		log:       log.With().Str("component", "reaper_worker").Logger(),
	}
}

func (w *ReaperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("retention", w.retention).Msg("ReaperWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.attempts.EvictFinished(w.retention); n > 0 {
				w.log.Debug().Int("evicted", n).Msg("Finished attempts evicted")
			}
		}
	}
}
