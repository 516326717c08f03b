// Package session owns the authenticated session: it wraps the identity
// provider, persists the session locally and tells listeners when the
// authentication state changes.
package session

import (
	"chat-panel/auth"
	"chat-panel/contract"
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/storage"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Mode int

const (
	ModePassword Mode = iota
	ModeMagicLink
)

type Reason int

const (
	SignedIn Reason = iota + 1
	SignedOut
	TokenRefreshed
)

func (r Reason) String() string {
	switch r {
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// Change is delivered to OnChange listeners, in order, from the dispatch worker.
// Generation increases by one with every change.
type Change struct {
	Authenticated bool
	Identity      domain.Identity
	Reason        Reason
	Generation    uint64
}

// Snapshot is a point-in-time view of the store.
type Snapshot struct {
	Authenticated bool
	Identity      domain.Identity
	Generation    uint64
}

type Store struct {
	log      *slog.Logger
	provider auth.IIdentityProvider
	local    storage.ILocalStore
	captcha  contract.Captcha
	now      func() time.Time

	mu         sync.RWMutex
	session    *domain.Session
	generation uint64

	listenersMu sync.Mutex
	listeners   map[int]func(Change)
	nextID      int

	queueMu sync.Mutex
	queue   []Change
	wake    chan struct{}
}

func NewStore(log *slog.Logger, provider auth.IIdentityProvider, local storage.ILocalStore, captcha contract.Captcha) *Store {
	return &Store{
		log:       log,
		provider:  provider,
		local:     local,
		captcha:   captcha,
		now:       time.Now,
		listeners: make(map[int]func(Change)),
		wake:      make(chan struct{}, 1),
	}
}

// Init restores the persisted session without notifying anyone.
// An expired session is refreshed once; a rejected refresh forgets it.
func (s *Store) Init(ctx context.Context) error {
	session, ok, err := s.local.LoadSession()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil
	}
	if session.Expired(s.now()) {
		if session.RefreshToken == "" {
			return s.local.ClearSession()
		}
		refreshed, err := s.provider.Refresh(ctx, session.RefreshToken)
		switch {
		case stderrors.Is(err, errors.ErrAuthRejected):
			s.log.Info("Persisted session rejected, starting logged out")
			return s.local.ClearSession()
		case err != nil:
			// Keep it: GetSession retries once the network is back.
			s.log.Warn("Unable to refresh persisted session", "error", err)
		default:
			session = refreshed
			s.persist(session)
		}
	}
	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()
	s.log.Info("Session restored", "user_id", session.User.ID)
	return nil
}

// GetSession returns the cached session, refreshing it first when expired.
// Transport failures are logged and reported as no session.
func (s *Store) GetSession(ctx context.Context) (domain.Session, bool) {
	s.mu.RLock()
	current := s.session
	s.mu.RUnlock()
	if current == nil {
		return domain.Session{}, false
	}
	if !current.Expired(s.now()) {
		return *current, true
	}
	if current.RefreshToken == "" {
		s.clear()
		return domain.Session{}, false
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("Expired session could not be refreshed", "error", err)
		return domain.Session{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// CurrentIdentity answers "who is logged in".
// fast=true reads memory only: cheap and never blocks, but it trusts local
// state that the local environment can tamper with. Use it for display and
// echo filtering, never to authorize.
// fast=false revalidates the token with the identity provider; a rejection
// signs the user out.
func (s *Store) CurrentIdentity(ctx context.Context, fast bool) (domain.Identity, bool) {
	if fast {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.session == nil {
			return domain.Identity{}, false
		}
		return s.session.User, true
	}
	session, ok := s.GetSession(ctx)
	if !ok {
		return domain.Identity{}, false
	}
	identity, err := s.provider.GetUser(ctx, session.AccessToken)
	switch {
	case stderrors.Is(err, errors.ErrAuthRejected):
		s.log.Info("Session rejected by the identity provider", "user_id", session.User.ID)
		s.clear()
		return domain.Identity{}, false
	case err != nil:
		s.log.Warn("Unable to verify identity", "error", err)
		return domain.Identity{}, false
	}
	return identity, true
}

// AccessToken is the bearer of the current session, "" when logged out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Generation: s.generation}
	if s.session != nil {
		snap.Authenticated = true
		snap.Identity = s.session.User
	}
	return snap
}

// OnChange registers fn for every future change. Registering does not fire:
// callers read Snapshot once at startup.
func (s *Store) OnChange(fn func(Change)) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// Login starts a session.
// ModePassword signs in with secret as password and emits SignedIn.
// ModeMagicLink sends a one-time link; secret, when set, is the username
// stored as user metadata. No session exists until VerifyOTP.
func (s *Store) Login(ctx context.Context, email, secret string, mode Mode) error {
	request := auth.LoginRequest{Email: email}
	if mode == ModePassword {
		request.Password = secret
		if secret == "" {
			return fmt.Errorf("%w: password required", errors.ErrValidation)
		}
	}
	if err := auth.ValidateLogin(request); err != nil {
		return err
	}
	token, err := s.captchaToken()
	if err != nil {
		return err
	}
	defer s.captcha.Reset()

	if mode == ModeMagicLink {
		if err := s.provider.SendMagicLink(ctx, email, secret, token); err != nil {
			return err
		}
		s.log.Info("Magic link sent", "email", email)
		return nil
	}
	session, err := s.provider.SignInWithPassword(ctx, email, secret, token)
	if err != nil {
		return err
	}
	s.set(session, SignedIn)
	return nil
}

// VerifyOTP completes a magic-link login with the code received by email.
func (s *Store) VerifyOTP(ctx context.Context, email, code string) error {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email}); err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("%w: code required", errors.ErrValidation)
	}
	session, err := s.provider.VerifyOTP(ctx, email, code)
	if err != nil {
		return err
	}
	s.set(session, SignedIn)
	return nil
}

// SignUp creates an account. It reports true when the backend confirmed the
// account at once and a session started; false means an email confirmation is pending.
func (s *Store) SignUp(ctx context.Context, email, password, username string) (bool, error) {
	if err := auth.ValidateSignUp(auth.SignUpRequest{Email: email, Password: password, Username: username}); err != nil {
		return false, err
	}
	token, err := s.captchaToken()
	if err != nil {
		return false, err
	}
	defer s.captcha.Reset()

	session, ok, err := s.provider.SignUp(ctx, email, password, username, token)
	if err != nil || !ok {
		return false, err
	}
	s.set(session, SignedIn)
	return true, nil
}

// Logout always asks the server to invalidate the session, then forgets it
// locally whatever the answer. The server error, if any, is returned.
// Listeners hear SignedOut only when a session existed.
func (s *Store) Logout(ctx context.Context) error {
	err := s.provider.SignOut(ctx, s.AccessToken())
	if err != nil {
		s.log.Warn("Server logout failed, clearing local session anyway", "error", err)
	}
	s.clear()
	return err
}

// Refresh exchanges the refresh token for a new session and emits TokenRefreshed.
// A rejected refresh token signs the user out.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	current := s.session
	s.mu.RUnlock()
	if current == nil || current.RefreshToken == "" {
		return fmt.Errorf("%w: no session to refresh", errors.ErrUnauthorized)
	}
	session, err := s.provider.Refresh(ctx, current.RefreshToken)
	if stderrors.Is(err, errors.ErrAuthRejected) {
		s.clear()
		return err
	}
	if err != nil {
		return err
	}
	s.set(session, TokenRefreshed)
	return nil
}

// Run is the dispatch worker delivering changes to listeners in order.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
		for _, change := range s.drain() {
			s.dispatch(change)
		}
	}
}

func (s *Store) captchaToken() (string, error) {
	token := s.captcha.Token()
	if token == "" {
		return "", errors.ErrCaptchaMissing
	}
	return token, nil
}

func (s *Store) set(session domain.Session, reason Reason) {
	s.persist(session)
	s.mu.Lock()
	s.session = &session
	s.generation++
	change := Change{Authenticated: true, Identity: session.User, Reason: reason, Generation: s.generation}
	s.enqueue(change)
	s.mu.Unlock()
	s.log.Info("Session changed", "reason", reason, "user_id", session.User.ID)
}

// clear forgets the session; without one it changes nothing.
func (s *Store) clear() {
	if err := s.local.ClearSession(); err != nil {
		s.log.Warn("Unable to clear persisted session", "error", err)
	}
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.session = nil
	s.generation++
	s.enqueue(Change{Reason: SignedOut, Generation: s.generation})
	s.mu.Unlock()
	s.log.Info("Session changed", "reason", SignedOut)
}

func (s *Store) persist(session domain.Session) {
	if err := s.local.SaveSession(session); err != nil {
		s.log.Warn("Unable to persist session", "error", err)
	}
}

// enqueue is called with mu held so queue order matches generation order.
func (s *Store) enqueue(change Change) {
	s.queueMu.Lock()
	s.queue = append(s.queue, change)
	s.queueMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) drain() []Change {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	changes := s.queue
	s.queue = nil
	return changes
}

func (s *Store) dispatch(change Change) {
	s.listenersMu.Lock()
	listeners := make([]func(Change), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}
