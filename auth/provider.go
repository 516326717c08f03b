//go:generate go run go.uber.org/mock/mockgen -source=provider.go -destination=../mocks/mock_identity_provider.go -package=mocks
package auth

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/infrastructure/rest"
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
)

// IIdentityProvider is the managed authentication service.
// Every sign-in flavour carries the captcha token of the anti-automation widget.
type IIdentityProvider interface {
	SignUp(ctx context.Context, email, password, username, captchaToken string) (domain.Session, bool, error)
	SignInWithPassword(ctx context.Context, email, password, captchaToken string) (domain.Session, error)
	SendMagicLink(ctx context.Context, email, username, captchaToken string) error
	VerifyOTP(ctx context.Context, email, code string) (domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
	GetUser(ctx context.Context, accessToken string) (domain.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Provider struct {
	client      *rest.Client
	redirectURL string
	now         func() time.Time
}

func NewProvider(client *rest.Client, redirectURL string) *Provider {
	return &Provider{client: client, redirectURL: redirectURL, now: time.Now}
}

type security struct {
	CaptchaToken string `json:"captcha_token,omitempty"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         userPayload `json:"user"`
}

func (p *Provider) SignUp(ctx context.Context, email, password, username, captchaToken string) (domain.Session, bool, error) {
	body := map[string]any{
		"email":                email,
		"password":             password,
		"gotrue_meta_security": security{CaptchaToken: captchaToken},
	}
	if username != "" {
		body["data"] = map[string]string{"username": username}
	}
	var payload sessionPayload
	if _, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/v1/signup",
		Query:  p.redirect(),
		Body:   body,
	}, &payload); err != nil {
		return domain.Session{}, false, mapAuthError(err)
	}
	if payload.AccessToken == "" {
		// Email confirmation pending: no session yet.
		return domain.Session{}, false, nil
	}
	session, err := p.toSession(payload)
	return session, err == nil, err
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password, captchaToken string) (domain.Session, error) {
	return p.token(ctx, "password", map[string]any{
		"email":                email,
		"password":             password,
		"gotrue_meta_security": security{CaptchaToken: captchaToken},
	})
}

func (p *Provider) SendMagicLink(ctx context.Context, email, username, captchaToken string) error {
	body := map[string]any{
		"email":                email,
		"create_user":          true,
		"gotrue_meta_security": security{CaptchaToken: captchaToken},
	}
	if username != "" {
		body["data"] = map[string]string{"username": username}
	}
	_, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/v1/otp",
		Query:  p.redirect(),
		Body:   body,
	}, nil)
	return mapAuthError(err)
}

func (p *Provider) VerifyOTP(ctx context.Context, email, code string) (domain.Session, error) {
	var payload sessionPayload
	if _, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/v1/verify",
		Body:   map[string]string{"type": "email", "email": email, "token": code},
	}, &payload); err != nil {
		return domain.Session{}, mapAuthError(err)
	}
	return p.toSession(payload)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	return p.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (domain.Identity, error) {
	var user userPayload
	if _, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodGet,
		Path:   "/auth/v1/user",
		Bearer: accessToken,
	}, &user); err != nil {
		return domain.Identity{}, mapAuthError(err)
	}
	if user.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: user without id", errors.ErrAuthRejected)
	}
	return domain.Identity{ID: user.ID, Email: user.Email}, nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/v1/logout",
		Bearer: accessToken,
	}, nil)
	return mapAuthError(err)
}

func (p *Provider) token(ctx context.Context, grant string, body map[string]any) (domain.Session, error) {
	var payload sessionPayload
	if _, err := p.client.Do(ctx, rest.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/v1/token",
		Query:  url.Values{"grant_type": {grant}},
		Body:   body,
	}, &payload); err != nil {
		return domain.Session{}, mapAuthError(err)
	}
	return p.toSession(payload)
}

func (p *Provider) redirect() url.Values {
	if p.redirectURL == "" {
		return nil
	}
	return url.Values{"redirect_to": {p.redirectURL}}
}

// toSession fills what the payload leaves out from the token claims.
func (p *Provider) toSession(payload sessionPayload) (domain.Session, error) {
	if payload.AccessToken == "" {
		return domain.Session{}, fmt.Errorf("%w: no access token in answer", errors.ErrAuthRejected)
	}
	session := domain.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		User:         domain.Identity{ID: payload.User.ID, Email: payload.User.Email},
	}
	switch {
	case payload.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(payload.ExpiresAt, 0).UTC()
	case payload.ExpiresIn > 0:
		session.ExpiresAt = p.now().Add(time.Duration(payload.ExpiresIn) * time.Second).UTC()
	}
	if session.User.ID == "" || session.ExpiresAt.IsZero() {
		claims, err := ParseClaims(payload.AccessToken)
		if err != nil {
			return domain.Session{}, fmt.Errorf("%w: %v", errors.ErrAuthRejected, err)
		}
		if session.User.ID == "" {
			session.User = domain.Identity{ID: claims.Subject, Email: claims.Email}
		}
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
	}
	return session, nil
}

// mapAuthError keeps transport failures as they are and turns client-side
// rejections (bad credentials, failed captcha, expired link) into ErrAuthRejected.
func mapAuthError(err error) error {
	if err == nil {
		return nil
	}
	var backendErr *rest.Error
	if !stderrors.As(err, &backendErr) {
		return err
	}
	if backendErr.Status >= 400 && backendErr.Status < 500 {
		return fmt.Errorf("%w: %s", errors.ErrAuthRejected, backendErr.Message)
	}
	return fmt.Errorf("%w: %v", errors.ErrTransport, backendErr)
}
