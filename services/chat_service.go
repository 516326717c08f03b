package services

import (
	"chat-panel/contract"
	"chat-panel/projection"
	"context"
	"log/slog"
	"time"
)

// ChatService is the edge between user commands and the engine: every
// failure becomes a notice, nothing is fatal.
type ChatService struct {
	log            *slog.Logger
	engine         *projection.Engine
	notifier       contract.Notifier
	telemetry      contract.Telemetry
	noticeDuration time.Duration
}

func NewChatService(log *slog.Logger, engine *projection.Engine, notifier contract.Notifier,
	telemetry contract.Telemetry, noticeDuration time.Duration) *ChatService {
	return &ChatService{
		log:            log,
		engine:         engine,
		notifier:       notifier,
		telemetry:      telemetry,
		noticeDuration: noticeDuration,
	}
}

// Send posts content and reports whether it was accepted.
func (s *ChatService) Send(ctx context.Context, content string) bool {
	if err := s.engine.Post(ctx, content); err != nil {
		s.fail("Send failed", err)
		return false
	}
	s.telemetry.Capture("message_sent", map[string]any{"length": len([]rune(content))})
	return true
}

// Edit targets a message by the short id shown in the transcript.
func (s *ChatService) Edit(ctx context.Context, shortID, content string) bool {
	id, err := s.engine.Lookup(ctx, shortID)
	if err == nil {
		err = s.engine.Edit(ctx, id, content)
	}
	if err != nil {
		s.fail("Edit failed", err)
		return false
	}
	s.telemetry.Capture("message_edited", nil)
	return true
}

func (s *ChatService) Delete(ctx context.Context, shortID string) bool {
	id, err := s.engine.Lookup(ctx, shortID)
	if err == nil {
		err = s.engine.Remove(ctx, id)
	}
	if err != nil {
		s.fail("Delete failed", err)
		return false
	}
	s.notifier.Notify(success("Deleted", "Message deleted", s.noticeDuration))
	s.telemetry.Capture("message_deleted", nil)
	return true
}

func (s *ChatService) fail(msg string, err error) {
	s.log.Debug(msg, "error", err)
	s.notifier.Notify(NoticeFor(err, s.noticeDuration))
}
