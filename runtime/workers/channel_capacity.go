package workers

import (
	"chat-panel/contract"
	"context"
	"log/slog"
	"time"
)

// highWater is the fill ratio from which a channel is reported as saturated.
const highWater = 0.8

// NamedChannel samples the backlog of one buffered channel.
type NamedChannel struct {
	Name  string
	Usage func() (length, capacity int)
}

// ChannelCapacityWorker periodically samples channel backlogs.
// Reading len and cap is non-blocking, so sampling never interferes with the owners.
// A saturated channel is logged and captured as a telemetry event.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	telemetry      contract.Telemetry
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger,
	channels []NamedChannel, telemetry contract.Telemetry,
	metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log: log, channels: channels,
		telemetry:      telemetry,
		metricInterval: metricInterval,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			for _, nc := range w.channels {
				w.sample(nc)
			}
		}
	}
}

func (w ChannelCapacityWorker) sample(nc NamedChannel) {
	length, capacity := nc.Usage()
	if capacity == 0 {
		return
	}
	if float64(length) < highWater*float64(capacity) {
		w.log.Debug("Channel usage", "channel", nc.Name, "length", length, "capacity", capacity)
		return
	}
	w.log.Warn("Channel almost full", "channel", nc.Name, "length", length, "capacity", capacity)
	w.telemetry.Capture("channel_saturated", map[string]any{
		"channel":  nc.Name,
		"length":   length,
		"capacity": capacity,
	})
}
