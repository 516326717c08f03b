//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/infrastructure/realtime"
	"chat-panel/infrastructure/rest"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/valyala/fasthttp"
)

const messagesTable = "messages"

type IMessageRepository interface {
	LoadRecent(ctx context.Context, limit int) ([]domain.Message, error)
	Insert(ctx context.Context, message domain.Message) (domain.Message, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// MessageRepository is the typed client of the shared messages table.
type MessageRepository struct {
	log       *slog.Logger
	client    *rest.Client
	token     realtime.TokenSource
	heartbeat time.Duration
}

func NewMessageRepository(log *slog.Logger, client *rest.Client, token realtime.TokenSource, heartbeat time.Duration) *MessageRepository {
	return &MessageRepository{log: log, client: client, token: token, heartbeat: heartbeat}
}

type messageRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (r messageRow) toDomain() (domain.Message, error) {
	createdAt, err := domain.ParseTimestamp(r.Timestamp)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{ID: r.ID, UserID: r.UserID, Content: r.Content, CreatedAt: createdAt}, nil
}

// LoadRecent fetches the newest messages, newest first.
// Rows the client cannot read are skipped.
func (m *MessageRepository) LoadRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	var rows []messageRow
	_, err := m.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodGet,
		Path:   "/rest/v1/" + messagesTable,
		Query: url.Values{
			"select": {"*"},
			"order":  {"timestamp.desc"},
			"limit":  {strconv.Itoa(limit)},
		},
		Bearer: m.token(),
	}, &rows)
	if err != nil {
		return nil, mapRowError(err)
	}
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toDomain()
		if err != nil {
			m.log.Warn("Skipping unreadable message row", "id", row.ID, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Insert stores a message under the id chosen by the caller and returns the stored row.
func (m *MessageRepository) Insert(ctx context.Context, message domain.Message) (domain.Message, error) {
	var rows []messageRow
	_, err := m.client.Do(ctx, rest.Request{
		Method:  fasthttp.MethodPost,
		Path:    "/rest/v1/" + messagesTable,
		Headers: map[string]string{"Prefer": "return=representation"},
		Bearer:  m.token(),
		Body: []messageRow{{
			ID:      message.ID,
			UserID:  message.UserID,
			Content: message.Content,
		}},
	}, &rows)
	if err != nil {
		return domain.Message{}, mapRowError(err)
	}
	if len(rows) == 0 {
		return domain.Message{}, fmt.Errorf("%w: insert of %s returned no row", errors.ErrTransport, message.ID)
	}
	stored, err := rows[0].toDomain()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	return stored, nil
}

// Update changes the content of an owned message.
// Row-level security hides other users' rows: zero rows touched means not allowed.
func (m *MessageRepository) Update(ctx context.Context, id, content string) error {
	var rows []messageRow
	_, err := m.client.Do(ctx, rest.Request{
		Method:  fasthttp.MethodPatch,
		Path:    "/rest/v1/" + messagesTable,
		Query:   url.Values{"id": {"eq." + id}},
		Headers: map[string]string{"Prefer": "return=representation"},
		Bearer:  m.token(),
		Body:    map[string]string{"content": content},
	}, &rows)
	if err != nil {
		return mapRowError(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: message %s", errors.ErrUnauthorized, id)
	}
	return nil
}

func (m *MessageRepository) Delete(ctx context.Context, id string) error {
	var rows []messageRow
	_, err := m.client.Do(ctx, rest.Request{
		Method:  fasthttp.MethodDelete,
		Path:    "/rest/v1/" + messagesTable,
		Query:   url.Values{"id": {"eq." + id}},
		Headers: map[string]string{"Prefer": "return=representation"},
		Bearer:  m.token(),
	}, &rows)
	if err != nil {
		return mapRowError(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: message %s", errors.ErrUnauthorized, id)
	}
	return nil
}

// Subscribe returns the worker holding the standing subscription to the table.
// Every change is delivered, self-originated ones included.
func (m *MessageRepository) Subscribe(onEvent func(domain.Change)) *realtime.Listener {
	return realtime.NewListener(m.log, m.client.BaseURL(), m.client.APIKey(),
		messagesTable, m.heartbeat, m.token, onEvent)
}

// mapRowError folds backend answers into the sentinel errors callers branch on.
func mapRowError(err error) error {
	status := rest.StatusOf(err)
	code := rest.CodeOf(err)
	switch {
	case status == 0:
		return err
	case status == fasthttp.StatusConflict || code == "23505":
		return fmt.Errorf("%w: %v", errors.ErrAlreadyTaken, err)
	case lo.Contains([]int{fasthttp.StatusUnauthorized, fasthttp.StatusForbidden}, status) || code == "42501":
		return fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
}
