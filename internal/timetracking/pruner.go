package timetracking

import (
	"context"
	"log/slog"
	"time"
)

type pruneStore interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically deletes COMPLETED sessions older than the retention
// window. A retention of 0 disables it.
type Pruner struct {
	store     pruneStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewPruner(store pruneStore, retention, interval time.Duration, logger *slog.Logger) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Pruner) Enabled() bool {
	return p.retention > 0
}

// Run prunes once immediately, then on every tick until ctx is done.
func (p *Pruner) Run(ctx context.Context) error {
	if !p.Enabled() {
		p.logger.Info("session pruner disabled", "retention", p.retention)
		return nil
	}
	p.logger.Info("session pruner started", "retention", p.retention, "interval", p.interval)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		p.logger.Error("session prune failed", "error", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Info("pruned completed sessions", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}
