package session

import (
	"context"
	"log/slog"
	"time"
)

// Refresher renews the access token shortly before it expires.
type Refresher struct {
	log      *slog.Logger
	store    *Store
	margin   time.Duration
	interval time.Duration
}

func NewRefresher(log *slog.Logger, store *Store, margin time.Duration) *Refresher {
	interval := margin / 2
	if interval <= 0 {
		interval = time.Second
	}
	return &Refresher{log: log, store: store, margin: margin, interval: interval}
}

func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	r.store.mu.RLock()
	current := r.store.session
	r.store.mu.RUnlock()
	if current == nil || current.RefreshToken == "" {
		return
	}
	if !current.ExpiresWithin(r.store.now(), r.margin) {
		return
	}
	if err := r.store.Refresh(ctx); err != nil {
		r.log.Warn("Token refresh failed", "error", err)
		return
	}
	r.log.Debug("Token refreshed", "user_id", current.User.ID)
}
