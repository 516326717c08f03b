package runtime

import (
	"context"
	"log/slog"
	"sync"
)

// Barrier counts outstanding startup tasks and fires its callbacks once,
// after Seal, when none is left. Tasks failing still count as finished.
type Barrier struct {
	log       *slog.Logger
	mu        sync.Mutex
	pending   int
	sealed    bool
	fired     bool
	callbacks []func()
}

func NewBarrier(log *slog.Logger) *Barrier {
	return &Barrier{log: log}
}

// Go runs task in its own goroutine and counts it until it returns.
func (b *Barrier) Go(ctx context.Context, name string, task func(ctx context.Context) error) {
	b.mu.Lock()
	if b.fired {
		b.log.Warn("Startup task added after the barrier fired", "task", name)
	}
	b.pending++
	b.mu.Unlock()

	go func() {
		defer b.finish()
		if err := task(ctx); err != nil {
			b.log.Warn("Startup task failed", "task", name, "error", err)
			return
		}
		b.log.Debug("Startup task finished", "task", name)
	}()
}

// Seal states that every startup task has been added.
func (b *Barrier) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.release()
}

// OnFinished registers cb. It runs at once when the barrier already fired.
func (b *Barrier) OnFinished(cb func()) {
	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		cb()
		return
	}
	b.callbacks = append(b.callbacks, cb)
	b.mu.Unlock()
}

func (b *Barrier) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired
}

func (b *Barrier) finish() {
	b.mu.Lock()
	b.pending--
	b.release()
}

// release is called with mu held and unlocks it.
func (b *Barrier) release() {
	if !b.sealed || b.pending > 0 || b.fired {
		b.mu.Unlock()
		return
	}
	b.fired = true
	callbacks := b.callbacks
	b.callbacks = nil
	b.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
}
