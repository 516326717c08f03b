//go:generate go run go.uber.org/mock/mockgen -source=username.go -destination=../mocks/mock_username_repository.go -package=mocks
package repositories

import (
	"chat-panel/infrastructure/realtime"
	"chat-panel/infrastructure/rest"
	"context"
	"log/slog"
	"net/url"

	"github.com/valyala/fasthttp"
)

const usernamesTable = "usernames"

type IUsernameRepository interface {
	FindByUserID(ctx context.Context, userID string) (string, bool, error)
	ExistsByName(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, userID, username string) error
}

// UsernameRepository reads and writes the one-to-one user_id -> username table.
type UsernameRepository struct {
	log    *slog.Logger
	client *rest.Client
	token  realtime.TokenSource
}

func NewUsernameRepository(log *slog.Logger, client *rest.Client, token realtime.TokenSource) *UsernameRepository {
	return &UsernameRepository{log: log, client: client, token: token}
}

type usernameRow struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// FindByUserID returns false without error when the user has no username yet.
func (u *UsernameRepository) FindByUserID(ctx context.Context, userID string) (string, bool, error) {
	rows, err := u.find(ctx, "user_id", userID)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0].Username, true, nil
}

func (u *UsernameRepository) ExistsByName(ctx context.Context, username string) (bool, error) {
	rows, err := u.find(ctx, "username", username)
	return len(rows) > 0, err
}

// Create claims username for userID. A uniqueness violation maps to errors.ErrAlreadyTaken.
func (u *UsernameRepository) Create(ctx context.Context, userID, username string) error {
	_, err := u.client.Do(ctx, rest.Request{
		Method:  fasthttp.MethodPost,
		Path:    "/rest/v1/" + usernamesTable,
		Headers: map[string]string{"Prefer": "return=minimal"},
		Bearer:  u.token(),
		Body:    []usernameRow{{UserID: userID, Username: username}},
	}, nil)
	if err != nil {
		u.log.Debug("Username insert failed", "user_id", userID, "username", username, "error", err)
		return mapRowError(err)
	}
	return nil
}

func (u *UsernameRepository) find(ctx context.Context, column, value string) ([]usernameRow, error) {
	var rows []usernameRow
	_, err := u.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodGet,
		Path:   "/rest/v1/" + usernamesTable,
		Query: url.Values{
			"select": {"user_id,username"},
			column:   {"eq." + value},
			"limit":  {"1"},
		},
		Bearer: u.token(),
	}, &rows)
	if err != nil {
		return nil, mapRowError(err)
	}
	return rows, nil
}
