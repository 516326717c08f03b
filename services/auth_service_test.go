package services

import (
	"chat-panel/auth"
	"chat-panel/contract"
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/mocks"
	"chat-panel/session"
	"chat-panel/storage"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingTranscript struct {
	regates int
}

func (c *countingTranscript) Regate() { c.regates++ }

type authFixture struct {
	svc        *AuthService
	store      *session.Store
	transcript *countingTranscript
	provider  *mocks.MockIIdentityProvider
	usernames *mocks.MockIUsernameRepository
	notifier  *mocks.MockNotifier
	telemetry *mocks.MockTelemetry
	captcha   *auth.StaticCaptcha
}

func newAuthFixture(t *testing.T) authFixture {
	ctrl := gomock.NewController(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	provider := mocks.NewMockIIdentityProvider(ctrl)
	captcha := auth.NewStaticCaptcha("")
	store := session.NewStore(slog.Default(), provider, storage.NewLocalStore(db, slog.Default()), captcha)
	usernameRepo := mocks.NewMockIUsernameRepository(ctrl)
	usernames := NewUsernameService(slog.Default(), usernameRepo, store, time.Minute)
	notifier := mocks.NewMockNotifier(ctrl)
	telemetry := mocks.NewMockTelemetry(ctrl)
	transcript := &countingTranscript{}
	svc := NewAuthService(slog.Default(), store, usernames, transcript, notifier, telemetry, time.Second)
	return authFixture{svc: svc, store: store, transcript: transcript, provider: provider, usernames: usernameRepo, notifier: notifier, telemetry: telemetry, captcha: captcha}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	alice := domain.Session{
		AccessToken: "access", RefreshToken: "refresh",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      domain.Identity{ID: "u1", Email: "alice@example.com"},
	}

	t.Run("should identify and prompt for a username", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		f.captcha.Set("token")
		f.provider.EXPECT().SignInWithPassword(gomock.Any(), "alice@example.com", "hunter22", "token").Return(alice, nil)
		f.telemetry.EXPECT().Identify("u1", map[string]any{"email": "alice@example.com"})
		f.telemetry.EXPECT().Capture("logged_in", map[string]any{"method": "password"})
		f.usernames.EXPECT().FindByUserID(gomock.Any(), "u1").Return("", false, nil)
		var notices []contract.Notice
		f.notifier.EXPECT().Notify(gomock.Any()).Do(func(n contract.Notice) { notices = append(notices, n) }).Times(2)

		ok := f.svc.Login(ctx, "alice@example.com", "hunter22")

		req.True(ok)
		req.Equal("Logged in", notices[0].Title)
		req.Equal("You need a username", notices[1].Title)
	})

	t.Run("should not prompt when the user has a username", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		f.captcha.Set("token")
		f.provider.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
		f.telemetry.EXPECT().Identify(gomock.Any(), gomock.Any())
		f.telemetry.EXPECT().Capture(gomock.Any(), gomock.Any())
		f.usernames.EXPECT().FindByUserID(gomock.Any(), "u1").Return("alice", true, nil)
		f.notifier.EXPECT().Notify(gomock.Any()).Times(1)

		req.True(f.svc.Login(ctx, "alice@example.com", "hunter22"))
	})

	t.Run("should explain a missing captcha", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		f.provider.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.notifier.EXPECT().Notify(gomock.Any()).Do(func(n contract.Notice) {
			req.Equal("Captcha required", n.Title)
		})

		req.False(f.svc.Login(ctx, "alice@example.com", "hunter22"))
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("should warn when only the local session could be cleared", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		f.telemetry.EXPECT().Capture("logged_out", gomock.Any())
		f.provider.EXPECT().SignOut(gomock.Any(), gomock.Any()).Return(errors.ErrTransport)
		f.notifier.EXPECT().Notify(gomock.Any()).Do(func(n contract.Notice) {
			req.Equal(contract.NoticeWarning, n.Level)
			req.Equal("Logged out locally", n.Title)
		})

		f.svc.Logout(context.Background())
	})
}

func TestAuthService_SetTelemetry(t *testing.T) {
	t.Run("should forward the decision", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		f.telemetry.EXPECT().OptOut().Return(nil)
		f.notifier.EXPECT().Notify(gomock.Any())

		req.True(f.svc.SetTelemetry(false))
	})
}

func TestAuthService_ClaimUsername(t *testing.T) {
	ctx := context.Background()
	alice := domain.Session{
		AccessToken: "access", RefreshToken: "refresh",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      domain.Identity{ID: "u1", Email: "alice@example.com"},
	}

	t.Run("should re-render the transcript once the name is claimed", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		// Given a logged-in user without a username
		f.captcha.Set("token")
		f.provider.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
		req.NoError(f.store.Login(ctx, "alice@example.com", "hunter22", session.ModePassword))
		f.provider.EXPECT().GetUser(gomock.Any(), "access").Return(alice.User, nil)
		f.usernames.EXPECT().ExistsByName(gomock.Any(), "alice").Return(false, nil)
		f.usernames.EXPECT().Create(gomock.Any(), "u1", "alice").Return(nil)
		var notice contract.Notice
		f.notifier.EXPECT().Notify(gomock.Any()).Do(func(n contract.Notice) { notice = n })

		// When
		ok := f.svc.ClaimUsername(ctx, "alice")

		// Then entries rendered under the raw id are redrawn
		req.True(ok)
		req.Equal(1, f.transcript.regates)
		req.Equal("Username set", notice.Title)
	})

	t.Run("should leave the transcript alone when the claim fails", func(t *testing.T) {
		req := require.New(t)
		f := newAuthFixture(t)
		var notice contract.Notice
		f.notifier.EXPECT().Notify(gomock.Any()).Do(func(n contract.Notice) { notice = n })

		ok := f.svc.ClaimUsername(ctx, "a")

		req.False(ok)
		req.Zero(f.transcript.regates)
		req.Equal("Invalid input", notice.Title)
	})
}
