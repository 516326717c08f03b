package telemetry

import (
	"chat-panel/infrastructure/rest/resttest"
	"chat-panel/storage"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewLocalStore(db, slog.Default())
}

func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case evt := <-c.Events():
			events = append(events, evt)
		default:
			return events
		}
	}
}

func TestClient_OptedOutByDefault(t *testing.T) {
	req := require.New(t)

	// Given a fresh install
	c := NewClient(slog.Default(), nil, newStore(t), "key", 8)

	// When events are captured
	c.Capture("message_sent", map[string]any{"length": 3})
	c.Identify("u1", map[string]any{"email": "a@b.c"})

	// Then nothing is queued
	req.False(c.OptedIn())
	req.Empty(drain(c))
}

func TestClient_ConsentIsPersisted(t *testing.T) {
	req := require.New(t)
	store := newStore(t)

	// Given the user opted in once
	first := NewClient(slog.Default(), nil, store, "key", 8)
	req.NoError(first.OptIn())

	// Then a later run starts opted in
	second := NewClient(slog.Default(), nil, store, "key", 8)
	req.True(second.OptedIn())

	// When opting out
	req.NoError(second.OptOut())

	// Then the next run starts opted out
	req.False(NewClient(slog.Default(), nil, store, "key", 8).OptedIn())
}

func TestClient_IdentifyThenCapture(t *testing.T) {
	req := require.New(t)
	c := NewClient(slog.Default(), nil, newStore(t), "key", 8)
	req.NoError(c.OptIn())

	// When an anonymous event is followed by an identify
	c.Capture("app_started", nil)
	c.Identify("u1", map[string]any{"email": "a@b.c"})
	c.Capture("message_sent", map[string]any{"length": 3})

	// Then events carry the distinct id known at capture time
	events := drain(c)
	req.Len(events, 3)
	req.NotEqual("u1", events[0].DistinctID)
	req.NotEmpty(events[0].DistinctID)
	req.Equal(identifyEvent, events[1].Name)
	req.Equal(map[string]any{"$set": map[string]any{"email": "a@b.c"}}, events[1].Properties)
	req.Equal("u1", events[2].DistinctID)
	req.Equal(3, events[2].Properties["length"])
}

func TestClient_FullQueueDropsWithoutBlocking(t *testing.T) {
	req := require.New(t)
	c := NewClient(slog.Default(), nil, newStore(t), "key", 2)
	req.NoError(c.OptIn())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Capture("tick", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("capture blocked on a full queue")
	}
	req.Len(drain(c), 2)
}

func TestClient_OptOutDiscardsQueue(t *testing.T) {
	req := require.New(t)
	c := NewClient(slog.Default(), nil, newStore(t), "key", 8)
	req.NoError(c.OptIn())
	c.Capture("one", nil)
	c.Capture("two", nil)

	req.NoError(c.OptOut())

	req.Empty(drain(c))
}

func TestClient_Send(t *testing.T) {
	req := require.New(t)
	srv := resttest.NewServer(t)
	srv.JSON(fasthttp.MethodPost, "/batch/", fasthttp.StatusOK, map[string]int{"status": 1})
	c := NewClient(slog.Default(), srv.Client(slog.Default()), newStore(t), "phc_key", 8)
	req.NoError(c.OptIn())
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// When a batch is sent
	err := c.Send(context.Background(), []Event{
		{Name: "message_sent", DistinctID: "u1", Properties: map[string]any{"length": 3}, At: at},
	})

	// Then the sink receives the project key and the events
	req.NoError(err)
	requests := srv.Requests()
	req.Len(requests, 1)
	var body struct {
		APIKey string `json:"api_key"`
		Batch  []struct {
			Event      string         `json:"event"`
			DistinctID string         `json:"distinct_id"`
			Properties map[string]any `json:"properties"`
			Timestamp  string         `json:"timestamp"`
		} `json:"batch"`
	}
	req.NoError(json.Unmarshal(requests[0].Body, &body))
	req.Equal("phc_key", body.APIKey)
	req.Len(body.Batch, 1)
	req.Equal("message_sent", body.Batch[0].Event)
	req.Equal("u1", body.Batch[0].DistinctID)
	req.Equal(float64(3), body.Batch[0].Properties["length"])
	req.Equal("2025-03-01T10:00:00Z", body.Batch[0].Timestamp)
}

func TestClient_SendSkippedWhenOptedOut(t *testing.T) {
	req := require.New(t)
	srv := resttest.NewServer(t)
	c := NewClient(slog.Default(), srv.Client(slog.Default()), newStore(t), "phc_key", 8)

	err := c.Send(context.Background(), []Event{{Name: "x", DistinctID: "u1"}})

	req.NoError(err)
	req.Zero(srv.Calls(fasthttp.MethodPost, "/batch/"))
}

func TestClient_SendFailure(t *testing.T) {
	req := require.New(t)
	srv := resttest.NewServer(t)
	srv.JSON(fasthttp.MethodPost, "/batch/", fasthttp.StatusBadGateway, nil)
	c := NewClient(slog.Default(), srv.Client(slog.Default()), newStore(t), "phc_key", 8)
	req.NoError(c.OptIn())

	err := c.Send(context.Background(), []Event{{Name: "x", DistinctID: "u1"}})

	req.Error(err)
}
