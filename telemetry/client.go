// Package telemetry captures product events for a PostHog compatible sink.
// Nothing is sent unless the user opted in; the choice survives restarts.
package telemetry

import (
	"chat-panel/infrastructure/rest"
	"chat-panel/storage"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const identifyEvent = "$identify"

// Event is one captured fact, queued until the next flush.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
	At         time.Time
}

type Client struct {
	log     *slog.Logger
	rest    *rest.Client
	store   storage.ILocalStore
	apiKey  string
	events  chan Event
	optedIn atomic.Bool
	now     func() time.Time

	mu         sync.Mutex
	distinctID string
}

// NewClient restores the persisted consent. A nil rest client disables sending:
// events are still accepted and dropped.
func NewClient(log *slog.Logger, client *rest.Client, store storage.ILocalStore, apiKey string, queueSize int) *Client {
	c := &Client{
		log:        log,
		rest:       client,
		store:      store,
		apiKey:     apiKey,
		events:     make(chan Event, queueSize),
		now:        time.Now,
		distinctID: uuid.NewString(),
	}
	optedIn, decided, err := store.Consent()
	if err != nil {
		log.Warn("Telemetry consent unreadable, staying opted out", "error", err)
	}
	c.optedIn.Store(decided && optedIn)
	return c
}

// Enabled is false when no sink is configured.
func (c *Client) Enabled() bool { return c.rest != nil }

func (c *Client) OptedIn() bool { return c.optedIn.Load() }

func (c *Client) OptIn() error {
	if err := c.store.SetConsent(true); err != nil {
		return fmt.Errorf("persist telemetry consent: %w", err)
	}
	c.optedIn.Store(true)
	c.log.Info("Telemetry enabled")
	return nil
}

// OptOut also discards whatever is still queued.
func (c *Client) OptOut() error {
	if err := c.store.SetConsent(false); err != nil {
		return fmt.Errorf("persist telemetry consent: %w", err)
	}
	c.optedIn.Store(false)
	for {
		select {
		case <-c.events:
		default:
			c.log.Info("Telemetry disabled")
			return nil
		}
	}
}

// Identify ties the following events to userID.
func (c *Client) Identify(userID string, traits map[string]any) {
	c.mu.Lock()
	c.distinctID = userID
	c.mu.Unlock()
	c.enqueue(identifyEvent, map[string]any{"$set": maps.Clone(traits)})
}

func (c *Client) Capture(event string, properties map[string]any) {
	c.enqueue(event, maps.Clone(properties))
}

// Events is drained by the flushing worker.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) Backlog() (length, capacity int) { return len(c.events), cap(c.events) }

func (c *Client) enqueue(name string, properties map[string]any) {
	if !c.optedIn.Load() {
		return
	}
	c.mu.Lock()
	evt := Event{Name: name, DistinctID: c.distinctID, Properties: properties, At: c.now().UTC()}
	c.mu.Unlock()
	select {
	case c.events <- evt:
	default:
		c.log.Debug("Telemetry event lost", "event", name)
	}
}

type batchPayload struct {
	APIKey string         `json:"api_key"`
	Batch  []eventPayload `json:"batch"`
}

type eventPayload struct {
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Send posts one batch. Events captured before an opt-out are not sent.
func (c *Client) Send(ctx context.Context, batch []Event) error {
	if len(batch) == 0 || !c.Enabled() || !c.OptedIn() {
		return nil
	}
	payload := batchPayload{APIKey: c.apiKey, Batch: make([]eventPayload, 0, len(batch))}
	for _, evt := range batch {
		payload.Batch = append(payload.Batch, eventPayload{
			Event:      evt.Name,
			DistinctID: evt.DistinctID,
			Properties: evt.Properties,
			Timestamp:  evt.At.Format(time.RFC3339Nano),
		})
	}
	if _, err := c.rest.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/batch/",
		Body:   payload,
	}, nil); err != nil {
		return fmt.Errorf("send telemetry batch: %w", err)
	}
	c.log.Debug("Telemetry batch sent", "events", len(batch))
	return nil
}
