//go:generate go run go.uber.org/mock/mockgen -source=actions.go -destination=../mocks/mock_actions.go -package=mocks
package ui

import (
	"chat-panel/search"
	"context"
)

// Actions is what the composer can trigger. Every method may block on the
// network, so the model only calls them from tea commands. Failures are
// reported through notices, never returned to the model.
type Actions interface {
	Send(ctx context.Context, content string) bool
	Edit(ctx context.Context, shortID, content string) bool
	Delete(ctx context.Context, shortID string) bool
	Login(ctx context.Context, email, password string) bool
	SendMagicLink(ctx context.Context, email, username string) bool
	VerifyOTP(ctx context.Context, email, code string) bool
	SignUp(ctx context.Context, email, password, username string) bool
	Logout(ctx context.Context)
	ClaimUsername(ctx context.Context, username string) bool
	SetTelemetry(optIn bool) bool
	SetCaptcha(token string)
	Search(ctx context.Context, query search.Query) []search.Hit
	// Whoami is read on every frame and must not block.
	Whoami() string
}
