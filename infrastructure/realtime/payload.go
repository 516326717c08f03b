package realtime

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Phoenix channel events the listener understands.
const (
	eventJoin      = "phx_join"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"
	eventToken     = "access_token"
	eventSystem    = "system"
	heartbeatTopic = "phoenix"
)

// envelope is one frame of the channel protocol.
type envelope struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changesPayload struct {
	Data changeData `json:"data"`
}

// changeData accepts both the "type" and the older "eventType" spelling.
type changeData struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// row mirrors the messages table.
type row struct {
	ID        string `json:"id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Content   string `json:"content" validate:"required,max=500"`
	Timestamp string `json:"timestamp" validate:"required"`
}

// oldRow is what a DELETE carries without replica identity full: the key, maybe more.
type oldRow struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"user_id"`
}

// DecodeChange validates a postgres_changes payload into a domain.Change.
// Every failure wraps errors.ErrMalformedPayload.
func DecodeChange(raw []byte) (domain.Change, error) {
	var payload changesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Change{}, malformed("envelope", err)
	}
	data := payload.Data
	kind := data.Type
	if kind == "" {
		kind = data.EventType
	}

	switch strings.ToUpper(kind) {
	case "INSERT":
		msg, err := decodeRow(data.Record)
		return domain.Change{Kind: domain.ChangeInsert, Row: msg}, err
	case "UPDATE":
		msg, err := decodeRow(data.Record)
		return domain.Change{Kind: domain.ChangeUpdate, Row: msg}, err
	case "DELETE":
		var old oldRow
		if err := json.Unmarshal(data.OldRecord, &old); err != nil {
			return domain.Change{}, malformed("old_record", err)
		}
		if err := validate.Struct(old); err != nil {
			return domain.Change{}, malformed("old_record", err)
		}
		return domain.Change{
			Kind: domain.ChangeDelete,
			Row:  domain.Message{ID: old.ID, UserID: old.UserID},
		}, nil
	default:
		return domain.Change{}, malformed("type", fmt.Errorf("unknown change %q", kind))
	}
}

func decodeRow(raw json.RawMessage) (domain.Message, error) {
	if len(raw) == 0 {
		return domain.Message{}, malformed("record", fmt.Errorf("missing"))
	}
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Message{}, malformed("record", err)
	}
	if err := validate.Struct(r); err != nil {
		return domain.Message{}, malformed("record", err)
	}
	createdAt, err := domain.ParseTimestamp(r.Timestamp)
	if err != nil {
		return domain.Message{}, malformed("record", err)
	}
	return domain.Message{
		ID:        r.ID,
		UserID:    r.UserID,
		Content:   r.Content,
		CreatedAt: createdAt,
	}, nil
}

func malformed(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", errors.ErrMalformedPayload, field, err)
}
