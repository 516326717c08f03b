package realtime

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeChange(t *testing.T) {
	t.Run("should decode an insert", func(t *testing.T) {
		req := require.New(t)
		raw := `{"data":{"type":"INSERT","record":{"id":"m1","user_id":"u1","content":"hello","timestamp":"2025-05-12T10:00:00.123456+00:00"}}}`

		change, err := DecodeChange([]byte(raw))

		req.NoError(err)
		req.Equal(domain.ChangeInsert, change.Kind)
		req.Equal("m1", change.Row.ID)
		req.Equal("u1", change.Row.UserID)
		req.Equal("hello", change.Row.Content)
		req.Equal(time.Date(2025, 5, 12, 10, 0, 0, 123456000, time.UTC), change.Row.CreatedAt)
	})

	t.Run("should accept the eventType spelling and a zone-less timestamp", func(t *testing.T) {
		req := require.New(t)
		raw := `{"data":{"eventType":"UPDATE","record":{"id":"m1","user_id":"u1","content":"edited","timestamp":"2025-05-12 10:00:00"}}}`

		change, err := DecodeChange([]byte(raw))

		req.NoError(err)
		req.Equal(domain.ChangeUpdate, change.Kind)
		req.Equal(time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC), change.Row.CreatedAt)
	})

	t.Run("should decode a key-only delete", func(t *testing.T) {
		req := require.New(t)
		raw := `{"data":{"type":"DELETE","old_record":{"id":"m1"}}}`

		change, err := DecodeChange([]byte(raw))

		req.NoError(err)
		req.Equal(domain.ChangeDelete, change.Kind)
		req.Equal("m1", change.Row.ID)
		req.Empty(change.Row.UserID)
	})

	malformed := map[string]string{
		"not json":           `{"data":`,
		"unknown type":       `{"data":{"type":"TRUNCATE"}}`,
		"insert no record":   `{"data":{"type":"INSERT"}}`,
		"missing user":       `{"data":{"type":"INSERT","record":{"id":"m1","content":"x","timestamp":"2025-05-12T10:00:00Z"}}}`,
		"empty content":      `{"data":{"type":"INSERT","record":{"id":"m1","user_id":"u1","content":"","timestamp":"2025-05-12T10:00:00Z"}}}`,
		"bad timestamp":      `{"data":{"type":"INSERT","record":{"id":"m1","user_id":"u1","content":"x","timestamp":"yesterday"}}}`,
		"numeric id":         `{"data":{"type":"INSERT","record":{"id":42,"user_id":"u1","content":"x","timestamp":"2025-05-12T10:00:00Z"}}}`,
		"delete without key": `{"data":{"type":"DELETE","old_record":{}}}`,
		"oversized content": `{"data":{"type":"UPDATE","record":{"id":"m1","user_id":"u1","content":"` +
			strings.Repeat("a", 501) + `","timestamp":"2025-05-12T10:00:00Z"}}}`,
	}
	for name, raw := range malformed {
		t.Run("should reject "+name, func(t *testing.T) {
			req := require.New(t)
			_, err := DecodeChange([]byte(raw))
			req.ErrorIs(err, errors.ErrMalformedPayload)
		})
	}
}

func TestEndpoint(t *testing.T) {
	req := require.New(t)
	req.Equal("wss://abc.example.co/realtime/v1/websocket?apikey=key&vsn=1.0.0",
		Endpoint("https://abc.example.co/", "key"))
	req.Equal("ws://localhost:54321/realtime/v1/websocket?apikey=key&vsn=1.0.0",
		Endpoint("http://localhost:54321", "key"))
}
