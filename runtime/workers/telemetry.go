package workers

import (
	"chat-panel/telemetry"
	"context"
	"log/slog"
	"time"
)

// TelemetryWorker drains captured events and flushes them in batches,
// every flushInterval or as soon as batchSize events are pending.
// A failed batch is dropped: telemetry never retries.
type TelemetryWorker struct {
	log           *slog.Logger
	client        *telemetry.Client
	flushInterval time.Duration
	batchSize     int
}

func NewTelemetryWorker(log *slog.Logger, client *telemetry.Client,
	flushInterval time.Duration, batchSize int) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		client:        client,
		flushInterval: flushInterval,
		batchSize:     batchSize,
	}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	if !w.client.Enabled() {
		w.log.Debug("Telemetry sink not configured, worker not started")
		return nil
	}
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	var pending []telemetry.Event
	for {
		select {
		case <-ctx.Done():
			// Last chance: the parent context is gone, give the flush its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), w.flushInterval)
			w.flush(flushCtx, pending)
			cancel()
			return nil
		case evt := <-w.client.Events():
			pending = append(pending, evt)
			if len(pending) >= w.batchSize {
				w.flush(ctx, pending)
				pending = nil
			}
		case <-ticker.C:
			w.flush(ctx, pending)
			pending = nil
		}
	}
}

func (w TelemetryWorker) flush(ctx context.Context, batch []telemetry.Event) {
	if err := w.client.Send(ctx, batch); err != nil {
		w.log.Debug("Telemetry batch lost", "events", len(batch), "error", err)
	}
}
