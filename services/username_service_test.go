package services

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/mocks"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newUsernameService(t *testing.T) (*UsernameService, *mocks.MockIUsernameRepository, *mocks.MockIdentitySource) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIUsernameRepository(ctrl)
	identity := mocks.NewMockIdentitySource(ctrl)
	return NewUsernameService(slog.Default(), repo, identity, 30*time.Second), repo, identity
}

func TestUsernameService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("should query once and memoize", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newUsernameService(t)
		repo.EXPECT().FindByUserID(gomock.Any(), "u1").Return("alice", true, nil).Times(1)

		req.Equal("alice", svc.Resolve(ctx, "u1"))
		req.Equal("alice", svc.Resolve(ctx, "u1"))

		name, ok := svc.Cached("u1")
		req.True(ok)
		req.Equal("alice", name)
	})

	t.Run("should share one query between concurrent misses", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newUsernameService(t)
		release := make(chan struct{})
		repo.EXPECT().FindByUserID(gomock.Any(), "u1").
			DoAndReturn(func(context.Context, string) (string, bool, error) {
				<-release
				return "alice", true, nil
			}).Times(1)

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = svc.Resolve(ctx, "u1")
			}(i)
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		for _, r := range results {
			req.Equal("alice", r)
		}
	})

	t.Run("should fall back to the id and retry after the negative TTL", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newUsernameService(t)
		now := time.Now()
		svc.now = func() time.Time { return now }
		gomock.InOrder(
			repo.EXPECT().FindByUserID(gomock.Any(), "u9").Return("", false, errors.ErrTransport),
			repo.EXPECT().FindByUserID(gomock.Any(), "u9").Return("", false, nil),
			repo.EXPECT().FindByUserID(gomock.Any(), "u9").Return("neo", true, nil),
		)

		// Failure: raw id, cached within the TTL
		req.Equal("u9", svc.Resolve(ctx, "u9"))
		req.Equal("u9", svc.Resolve(ctx, "u9"))

		// TTL elapsed: no username yet
		now = now.Add(31 * time.Second)
		_, ok := svc.Cached("u9")
		req.False(ok)
		req.Equal("u9", svc.Resolve(ctx, "u9"))

		// TTL elapsed again: the user picked a name, kept for good
		now = now.Add(31 * time.Second)
		req.Equal("neo", svc.Resolve(ctx, "u9"))
		now = now.Add(time.Hour)
		req.Equal("neo", svc.Resolve(ctx, "u9"))
	})
}

func TestUsernameService_Claim(t *testing.T) {
	ctx := context.Background()
	alice := domain.Identity{ID: "u1", Email: "alice@example.com"}

	t.Run("should validate locally without any call", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), gomock.Any()).Times(0)
		repo.EXPECT().ExistsByName(gomock.Any(), gomock.Any()).Times(0)

		for _, name := range []string{"ab", "this_name_is_way_too_long", "no spaces", "émile"} {
			req.ErrorIs(svc.Claim(ctx, name), errors.ErrValidation, name)
		}
	})

	t.Run("should require an authoritative login", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), false).Return(domain.Identity{}, false)
		repo.EXPECT().ExistsByName(gomock.Any(), gomock.Any()).Times(0)

		req.ErrorIs(svc.Claim(ctx, "alice"), errors.ErrUnauthorized)
	})

	t.Run("should refuse a taken name without inserting", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), false).Return(alice, true)
		repo.EXPECT().ExistsByName(gomock.Any(), "bob").Return(true, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req.ErrorIs(svc.Claim(ctx, "bob"), errors.ErrAlreadyTaken)
	})

	t.Run("should map an insert conflict to ErrAlreadyTaken", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), false).Return(alice, true)
		repo.EXPECT().ExistsByName(gomock.Any(), "bob").Return(false, nil)
		repo.EXPECT().Create(gomock.Any(), "u1", "bob").Return(errors.ErrAlreadyTaken)

		req.ErrorIs(svc.Claim(ctx, "bob"), errors.ErrAlreadyTaken)
	})

	t.Run("should map other failures to ErrTransport", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), false).Return(alice, true)
		repo.EXPECT().ExistsByName(gomock.Any(), "alice").Return(false, nil)
		repo.EXPECT().Create(gomock.Any(), "u1", "alice").Return(errors.ErrUnauthorized)

		err := svc.Claim(ctx, "alice")

		req.ErrorIs(err, errors.ErrTransport)
	})

	t.Run("should memoize the claimed name", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), false).Return(alice, true)
		identity.EXPECT().CurrentIdentity(gomock.Any(), true).Return(alice, true)
		repo.EXPECT().ExistsByName(gomock.Any(), "alice").Return(false, nil)
		repo.EXPECT().Create(gomock.Any(), "u1", "alice").Return(nil)
		repo.EXPECT().FindByUserID(gomock.Any(), gomock.Any()).Times(0)

		req.NoError(svc.Claim(ctx, "alice"))

		req.Equal("alice", svc.Resolve(ctx, "u1"))
		req.True(svc.HasUsername(ctx))
	})
}

func TestUsernameService_HasUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("should be false when logged out or on error", func(t *testing.T) {
		req := require.New(t)
		svc, repo, identity := newUsernameService(t)
		identity.EXPECT().CurrentIdentity(gomock.Any(), true).Return(domain.Identity{}, false)
		req.False(svc.HasUsername(ctx))

		identity.EXPECT().CurrentIdentity(gomock.Any(), true).Return(domain.Identity{ID: "u1"}, true)
		repo.EXPECT().FindByUserID(gomock.Any(), "u1").Return("", false, errors.ErrTransport)
		req.False(svc.HasUsername(ctx))
	})
}

func TestUsernameService_Color(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newUsernameService(t)
	req.Equal(svc.Color("alice"), svc.Color("alice"))
	req.Regexp(`^#[0-9a-f]{6}$`, svc.Color("alice"))
}
