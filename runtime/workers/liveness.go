package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/runtime"
)

// LivenessWorker reaps dead connections with a two-tick timeout. Each tick it
// evicts every session that failed to answer the previous probe, then marks
// the survivors unconfirmed and probes them again. A session that stays
// silent across two consecutive periods is closed through the same teardown
// path as a natural disconnect.
type LivenessWorker struct {
	log      *slog.Logger
	registry *runtime.Registry
	interval time.Duration
}

func NewLivenessWorker(log *slog.Logger, registry *runtime.Registry, interval time.Duration) *LivenessWorker {
	return &LivenessWorker{log: log, registry: registry, interval: interval}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	w.log.Info("Starting liveness worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep walks a snapshot of the registry, so eviction cannot deadlock with a
// concurrent natural disconnect touching the registry lock. Close is
// idempotent; a session racing its own teardown is simply closed twice.
func (w *LivenessWorker) sweep() {
	for _, session := range w.registry.All() {
		if !session.Confirmed() {
			w.log.Warn("Evicting unresponsive session", "user_id", session.UserID)
			_ = session.Close("liveness timeout")
			continue
		}

		session.Unconfirm()
		if err := session.Ping(); err != nil {
			w.log.Warn("Probe failed, closing session", "user_id", session.UserID, "err", err)
			_ = session.Close("liveness probe failed")
		}
	}
}
