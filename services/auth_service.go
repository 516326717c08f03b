package services

import (
	"chat-panel/contract"
	"chat-panel/session"
	"context"
	"log/slog"
	"time"
)

// Transcript re-renders every entry from the current session and name cache.
type Transcript interface {
	Regate()
}

// AuthService drives the login flows from the command line and the
// follow-ups of a successful login: identify for telemetry, ask for a username.
type AuthService struct {
	log            *slog.Logger
	sessions       *session.Store
	usernames      *UsernameService
	transcript     Transcript
	notifier       contract.Notifier
	telemetry      contract.Telemetry
	noticeDuration time.Duration
}

func NewAuthService(log *slog.Logger, sessions *session.Store, usernames *UsernameService,
	transcript Transcript, notifier contract.Notifier, telemetry contract.Telemetry, noticeDuration time.Duration) *AuthService {
	return &AuthService{
		log:            log,
		sessions:       sessions,
		usernames:      usernames,
		transcript:     transcript,
		notifier:       notifier,
		telemetry:      telemetry,
		noticeDuration: noticeDuration,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) bool {
	if err := s.sessions.Login(ctx, email, password, session.ModePassword); err != nil {
		s.fail(err)
		return false
	}
	s.loggedIn(ctx, "password")
	return true
}

// SendMagicLink mails a one-time code; username, when set, is stored as metadata.
func (s *AuthService) SendMagicLink(ctx context.Context, email, username string) bool {
	if err := s.sessions.Login(ctx, email, username, session.ModeMagicLink); err != nil {
		s.fail(err)
		return false
	}
	s.notifier.Notify(info("Check your email",
		"A login link was sent. Type /verify <email> <code> with the code it contains.", s.noticeDuration))
	return true
}

func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) bool {
	if err := s.sessions.VerifyOTP(ctx, email, code); err != nil {
		s.fail(err)
		return false
	}
	s.loggedIn(ctx, "magic_link")
	return true
}

func (s *AuthService) SignUp(ctx context.Context, email, password, username string) bool {
	started, err := s.sessions.SignUp(ctx, email, password, username)
	if err != nil {
		s.fail(err)
		return false
	}
	s.telemetry.Capture("signed_up", nil)
	if !started {
		s.notifier.Notify(info("Confirm your email", "Follow the link we sent you, then log in.", s.noticeDuration))
		return true
	}
	if username != "" {
		if err := s.usernames.Claim(ctx, username); err != nil {
			s.fail(err)
		}
	}
	s.loggedIn(ctx, "sign_up")
	return true
}

// Logout always ends the local session; a server failure is only a warning.
func (s *AuthService) Logout(ctx context.Context) {
	s.telemetry.Capture("logged_out", nil)
	if err := s.sessions.Logout(ctx); err != nil {
		notice := NoticeFor(err, s.noticeDuration)
		notice.Level = contract.NoticeWarning
		notice.Title = "Logged out locally"
		s.notifier.Notify(notice)
		return
	}
	s.notifier.Notify(success("Logged out", "See you soon", s.noticeDuration))
}

func (s *AuthService) ClaimUsername(ctx context.Context, username string) bool {
	if err := s.usernames.Claim(ctx, username); err != nil {
		s.fail(err)
		return false
	}
	// Entries rendered under the raw id pick up the new name.
	s.transcript.Regate()
	s.notifier.Notify(success("Username set", "You are now "+username, s.noticeDuration))
	return true
}

// SetTelemetry records the opt-in decision.
func (s *AuthService) SetTelemetry(optIn bool) bool {
	var err error
	if optIn {
		err = s.telemetry.OptIn()
	} else {
		err = s.telemetry.OptOut()
	}
	if err != nil {
		s.fail(err)
		return false
	}
	state := "disabled"
	if optIn {
		state = "enabled"
	}
	s.notifier.Notify(info("Telemetry", "Anonymous usage analytics "+state, s.noticeDuration))
	return true
}

// CheckUsername prompts a logged-in user without a username to pick one.
func (s *AuthService) CheckUsername(ctx context.Context) {
	if !s.sessions.Snapshot().Authenticated {
		return
	}
	if s.usernames.HasUsername(ctx) {
		return
	}
	s.notifier.Notify(info("You need a username", "Pick one with /name <username>", s.noticeDuration))
}

func (s *AuthService) loggedIn(ctx context.Context, method string) {
	snapshot := s.sessions.Snapshot()
	s.telemetry.Identify(snapshot.Identity.ID, map[string]any{"email": snapshot.Identity.Email})
	s.telemetry.Capture("logged_in", map[string]any{"method": method})
	s.notifier.Notify(success("Logged in", snapshot.Identity.Email, s.noticeDuration))
	s.CheckUsername(ctx)
}

func (s *AuthService) fail(err error) {
	s.log.Debug("Authentication flow failed", "error", err)
	s.notifier.Notify(NoticeFor(err, s.noticeDuration))
}
