package workers

import (
	"chat-panel/mocks"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChannelCapacityWorker_ReportsSaturatedChannels(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	telemetry := mocks.NewMockTelemetry(ctrl)

	var reported atomic.Int32
	// Then only the saturated channel is captured
	telemetry.EXPECT().
		Capture("channel_saturated", map[string]any{"channel": "engine", "length": 9, "capacity": 10}).
		Do(func(string, map[string]any) { reported.Add(1) }).
		MinTimes(1)

	// Given one saturated channel and one nearly empty
	worker := NewChannelCapacityWorker(slog.Default(), []NamedChannel{
		{Name: "engine", Usage: func() (int, int) { return 9, 10 }},
		{Name: "telemetry", Usage: func() (int, int) { return 1, 10 }},
		{Name: "unbuffered", Usage: func() (int, int) { return 0, 0 }},
	}, telemetry, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return reported.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)
}
