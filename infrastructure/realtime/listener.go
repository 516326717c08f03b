// Package realtime holds the standing subscription to row changes of a table,
// spoken over the backend's Phoenix channel websocket.
package realtime

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
)

// TokenSource returns the access token of the current session, or "" when logged out.
type TokenSource func() string

// Listener is a supervised worker: Run returns an error whenever the
// connection is lost so the supervisor reconnects it.
type Listener struct {
	log       *slog.Logger
	dialer    *websocket.Dialer
	endpoint  string
	topic     string
	table     string
	heartbeat time.Duration
	token     TokenSource
	onEvent   func(domain.Change)
	tokens    chan string

	ref     atomic.Uint64
	writeMu sync.Mutex
}

func NewListener(
	log *slog.Logger,
	baseURL, apiKey, table string,
	heartbeat time.Duration,
	token TokenSource,
	onEvent func(domain.Change),
) *Listener {
	return &Listener{
		log:       log,
		dialer:    websocket.DefaultDialer,
		endpoint:  Endpoint(baseURL, apiKey),
		topic:     "realtime:public:" + table,
		table:     table,
		heartbeat: heartbeat,
		token:     token,
		onEvent:   onEvent,
		tokens:    make(chan string, 1),
	}
}

// WithDialer swaps the websocket dialer, mostly for in-memory tests.
func (l *Listener) WithDialer(dialer *websocket.Dialer) *Listener {
	l.dialer = dialer
	return l
}

// Endpoint derives the websocket URL from the HTTP base URL.
func Endpoint(baseURL, apiKey string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	query := url.Values{"apikey": {apiKey}, "vsn": {"1.0.0"}}
	return base + "/realtime/v1/websocket?" + query.Encode()
}

// UpdateToken forwards a refreshed access token to the open channel.
// Only the latest token is kept when the channel is busy.
func (l *Listener) UpdateToken(token string) {
	select {
	case <-l.tokens:
	default:
	}
	select {
	case l.tokens <- token:
	default:
	}
}

func (l *Listener) Run(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: dial realtime: %v", errors.ErrTransport, err)
	}
	defer conn.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		// Unblocks ReadMessage.
		_ = conn.Close()
	}()

	joinRef, err := l.join(conn)
	if err != nil {
		return err
	}
	l.log.Debug("Join sent", "topic", l.topic, "ref", joinRef)

	var pendingHeartbeat atomic.Value
	pendingHeartbeat.Store("")
	go l.keepAlive(runCtx, conn, &pendingHeartbeat)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: realtime read: %v", errors.ErrTransport, err)
		}
		var frame envelope
		if err := json.Unmarshal(raw, &frame); err != nil {
			l.log.Warn("Dropping unreadable frame", "error", err)
			continue
		}
		ref := ""
		if frame.Ref != nil {
			ref = *frame.Ref
		}

		switch {
		case frame.Event == eventReply && ref == joinRef:
			var reply replyPayload
			_ = json.Unmarshal(frame.Payload, &reply)
			if reply.Status != "ok" {
				return fmt.Errorf("%w: join %s rejected: %s", errors.ErrTransport, l.topic, string(reply.Response))
			}
			l.log.Info("Realtime subscription ready", "table", l.table)
		case frame.Event == eventReply && frame.Topic == heartbeatTopic:
			pendingHeartbeat.CompareAndSwap(ref, "")
		case frame.Event == eventChanges && frame.Topic == l.topic:
			change, err := DecodeChange(frame.Payload)
			if err != nil {
				l.log.Warn("Dropping realtime change", "error", err)
				continue
			}
			l.onEvent(change)
		case (frame.Event == eventError || frame.Event == eventClose) && frame.Topic == l.topic:
			return fmt.Errorf("%w: channel %s closed by server (%s)", errors.ErrTransport, l.topic, frame.Event)
		case frame.Event == eventSystem:
			l.log.Debug("Realtime system message", "payload", string(frame.Payload))
		}
	}
}

func (l *Listener) join(conn *websocket.Conn) (string, error) {
	ref := l.nextRef()
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": l.table},
			},
		},
	}
	if token := l.token(); token != "" {
		payload["access_token"] = token
	}
	if err := l.send(conn, l.topic, eventJoin, payload, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// keepAlive sends heartbeats and token updates. A heartbeat still unanswered
// at the next tick means the connection is dead.
func (l *Listener) keepAlive(ctx context.Context, conn *websocket.Conn, pending *atomic.Value) {
	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case token := <-l.tokens:
			if err := l.send(conn, l.topic, eventToken, map[string]string{"access_token": token}, l.nextRef()); err != nil {
				l.log.Warn("Token push failed", "error", err)
			}
		case <-ticker.C:
			if last := pending.Load().(string); last != "" {
				l.log.Warn("Heartbeat timeout, closing realtime connection", "ref", last)
				_ = conn.Close()
				return
			}
			ref := l.nextRef()
			pending.Store(ref)
			if err := l.send(conn, heartbeatTopic, eventHeartbeat, map[string]any{}, ref); err != nil {
				l.log.Warn("Heartbeat failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (l *Listener) send(conn *websocket.Conn, topic, event string, payload any, ref string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := envelope{Topic: topic, Event: event, Payload: body, Ref: &ref}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("%w: realtime write: %v", errors.ErrTransport, err)
	}
	return nil
}

func (l *Listener) nextRef() string {
	return strconv.FormatUint(l.ref.Add(1), 10)
}
