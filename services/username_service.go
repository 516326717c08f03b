package services

import (
	"chat-panel/contract"
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cachedName is permanent when expires is zero.
type cachedName struct {
	display string
	expires time.Time
}

// UsernameService is the username directory: it resolves user ids to display
// names and lets the current user claim one.
// Resolutions are shared by the engine resolver goroutines and the UI.
type UsernameService struct {
	log      *slog.Logger
	repo     repositories.IUsernameRepository
	identity contract.IdentitySource
	ttl      time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	names map[string]cachedName
	group singleflight.Group
}

func NewUsernameService(log *slog.Logger, repo repositories.IUsernameRepository,
	identity contract.IdentitySource, negativeTTL time.Duration) *UsernameService {
	return &UsernameService{
		log:      log,
		repo:     repo,
		identity: identity,
		ttl:      negativeTTL,
		now:      time.Now,
		names:    make(map[string]cachedName),
	}
}

// Resolve returns the display name of userID, the raw id when it has none.
// Concurrent misses for one id share a single query. Found names are kept for
// the process lifetime; failures and absences only for the negative TTL.
func (s *UsernameService) Resolve(ctx context.Context, userID string) string {
	if display, ok := s.Cached(userID); ok {
		return display
	}
	v, _, _ := s.group.Do(userID, func() (any, error) {
		if display, ok := s.Cached(userID); ok {
			return display, nil
		}
		name, found, err := s.repo.FindByUserID(ctx, userID)
		switch {
		case err != nil:
			s.log.Warn("Error fetching username", "user_id", userID, "error", err)
			s.remember(userID, userID, false)
			return userID, nil
		case !found:
			s.remember(userID, userID, false)
			return userID, nil
		}
		s.remember(userID, name, true)
		return name, nil
	})
	return v.(string)
}

// Cached never blocks on the network. Fallbacks to the raw id count as cached
// until their negative TTL runs out.
func (s *UsernameService) Cached(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.names[userID]
	if !ok {
		return "", false
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		return "", false
	}
	return entry.display, true
}

func (s *UsernameService) Color(name string) string {
	return domain.UsernameColor(name)
}

// Claim gives the current user a username. It is validated locally before
// anything reaches the network.
func (s *UsernameService) Claim(ctx context.Context, username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	identity, ok := s.identity.CurrentIdentity(ctx, false)
	if !ok {
		return fmt.Errorf("%w: you must be logged in to set a username", errors.ErrUnauthorized)
	}
	taken, err := s.repo.ExistsByName(ctx, username)
	if err != nil {
		return asTransport(err)
	}
	if taken {
		return fmt.Errorf("%w: username %q", errors.ErrAlreadyTaken, username)
	}
	if err := s.repo.Create(ctx, identity.ID, username); err != nil {
		if stderrors.Is(err, errors.ErrAlreadyTaken) {
			return err
		}
		return asTransport(err)
	}
	s.remember(identity.ID, username, true)
	s.log.Info("Username claimed", "user_id", identity.ID, "username", username)
	return nil
}

// HasUsername is best effort: any failure reads as false.
func (s *UsernameService) HasUsername(ctx context.Context) bool {
	identity, ok := s.identity.CurrentIdentity(ctx, true)
	if !ok {
		return false
	}
	s.mu.RLock()
	entry, cached := s.names[identity.ID]
	s.mu.RUnlock()
	if cached && entry.expires.IsZero() {
		return true
	}
	name, found, err := s.repo.FindByUserID(ctx, identity.ID)
	if err != nil {
		s.log.Warn("Error checking username", "user_id", identity.ID, "error", err)
		return false
	}
	if found {
		s.remember(identity.ID, name, true)
	}
	return found
}

func (s *UsernameService) remember(userID, display string, found bool) {
	entry := cachedName{display: display}
	if !found {
		entry.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = entry
}

func asTransport(err error) error {
	if stderrors.Is(err, errors.ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", errors.ErrTransport, err)
}
