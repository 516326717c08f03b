package projection

import (
	"chat-panel/contract"
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Engine reconciles the bulk load, local writes and realtime changes into one
// Timeline and keeps every view in step with it.
// All state below ops is owned by the Run loop: every mutation is a closure
// queued on ops, so handlers never interleave.
type Engine struct {
	log      *slog.Logger
	repo     repositories.IMessageRepository
	identity contract.IdentitySource
	names    contract.NameResolver
	views    []contract.TranscriptView
	limit    int
	newID    func() string

	ops      chan func()
	done     chan struct{}
	stopOnce sync.Once

	ctx         context.Context
	timeline    *Timeline
	loaded      bool
	heldInserts []domain.Message
	heldChanges map[string]domain.Change
	heldOrder   []string
	resolving   map[string]struct{}
}

func NewEngine(
	log *slog.Logger,
	repo repositories.IMessageRepository,
	identity contract.IdentitySource,
	names contract.NameResolver,
	limit, bufferSize int,
	views ...contract.TranscriptView,
) *Engine {
	return &Engine{
		log:         log,
		repo:        repo,
		identity:    identity,
		names:       names,
		views:       views,
		limit:       limit,
		newID:       func() string { return uuid.NewString() },
		ops:         make(chan func(), bufferSize),
		done:        make(chan struct{}),
		ctx:         context.Background(),
		timeline:    NewTimeline(),
		heldChanges: make(map[string]domain.Change),
		resolving:   make(map[string]struct{}),
	}
}

// Run executes queued mutations until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			e.stopOnce.Do(func() { close(e.done) })
			return nil
		case op := <-e.ops:
			op()
		}
	}
}

// Load performs the single bulk fetch. Realtime changes received before it
// lands are held and replayed on top of it. A failed fetch still releases
// them so the transcript goes live.
func (e *Engine) Load(ctx context.Context) error {
	messages, err := e.repo.LoadRecent(ctx, e.limit)
	if err != nil {
		e.log.Warn("Initial load failed", "error", err)
	}
	if doErr := e.do(ctx, func() { e.applyLoad(messages) }); doErr != nil {
		return doErr
	}
	return err
}

// Backlog reports how many mutations wait for the loop.
func (e *Engine) Backlog() (length, capacity int) {
	return len(e.ops), cap(e.ops)
}

// HandleChange is the realtime callback. It never blocks past shutdown.
func (e *Engine) HandleChange(change domain.Change) {
	e.post(func() { e.applyChange(change) })
}

// Regate re-renders every entry so ownership affordances follow the session.
func (e *Engine) Regate() {
	e.post(func() {
		for _, msg := range e.timeline.Messages() {
			e.render(msg)
		}
	})
}

// Post sends a new message and shows it as soon as the store accepted it.
func (e *Engine) Post(ctx context.Context, content string) error {
	cmd := domain.PostMessageCommand{Content: domain.NormalizeContent(content)}
	if err := cmd.Validate(); err != nil {
		return err
	}
	identity, ok := e.identity.CurrentIdentity(ctx, true)
	if !ok {
		return fmt.Errorf("%w: log in to send messages", errors.ErrUnauthorized)
	}
	stored, err := e.repo.Insert(ctx, domain.Message{
		ID:      e.newID(),
		UserID:  identity.ID,
		Content: cmd.Content,
	})
	if err != nil {
		return err
	}
	return e.do(ctx, func() {
		if e.timeline.Insert(stored) != Ignored {
			e.render(stored)
		}
	})
}

// Edit changes the content of one of the current user's messages.
func (e *Engine) Edit(ctx context.Context, id, content string) error {
	cmd := domain.EditMessageCommand{ID: id, Content: domain.NormalizeContent(content)}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if _, err := e.owned(ctx, id); err != nil {
		return err
	}
	if err := e.repo.Update(ctx, id, cmd.Content); err != nil {
		return err
	}
	return e.do(ctx, func() {
		current, ok := e.timeline.Get(id)
		if !ok {
			return
		}
		current.Content = cmd.Content
		if e.timeline.Update(current) != Ignored {
			e.render(current)
		}
	})
}

// Remove deletes one of the current user's messages.
func (e *Engine) Remove(ctx context.Context, id string) error {
	cmd := domain.DeleteMessageCommand{ID: id}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if _, err := e.owned(ctx, id); err != nil {
		return err
	}
	if err := e.repo.Delete(ctx, id); err != nil {
		return err
	}
	return e.do(ctx, func() {
		if e.timeline.Delete(id) == Removed {
			e.remove(id)
		}
	})
}

// Lookup expands the short id shown next to a message into its full id.
func (e *Engine) Lookup(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "#")
	if prefix == "" {
		return "", fmt.Errorf("%w: message id required", errors.ErrValidation)
	}
	var matches []string
	if err := e.do(ctx, func() {
		for _, msg := range e.timeline.Messages() {
			if strings.HasPrefix(msg.ID, prefix) {
				matches = append(matches, msg.ID)
			}
		}
	}); err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no message #%s", errors.ErrValidation, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: #%s matches %d messages", errors.ErrValidation, prefix, len(matches))
	}
}

// Entries returns the transcript as views see it.
func (e *Engine) Entries(ctx context.Context) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := e.do(ctx, func() {
		entries = lo.Map(e.timeline.Messages(), func(msg domain.Message, _ int) domain.Entry {
			return e.entryFor(msg)
		})
	})
	return entries, err
}

// owned is the client-side pre-check; the backend enforces it again.
func (e *Engine) owned(ctx context.Context, id string) (domain.Message, error) {
	identity, ok := e.identity.CurrentIdentity(ctx, true)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: log in to change messages", errors.ErrUnauthorized)
	}
	var (
		msg     domain.Message
		present bool
	)
	if err := e.do(ctx, func() { msg, present = e.timeline.Get(id) }); err != nil {
		return domain.Message{}, err
	}
	if !present {
		return domain.Message{}, fmt.Errorf("%w: no message %s", errors.ErrValidation, id)
	}
	if !msg.OwnedBy(identity) {
		return domain.Message{}, fmt.Errorf("%w: message %s belongs to someone else", errors.ErrUnauthorized, id)
	}
	return msg, nil
}

func (e *Engine) applyLoad(messages []domain.Message) {
	for _, id := range e.timeline.Load(messages) {
		msg, _ := e.timeline.Get(id)
		e.render(msg)
	}
	e.loaded = true
	for _, msg := range e.heldInserts {
		e.apply(domain.Change{Kind: domain.ChangeInsert, Row: msg})
	}
	for _, id := range e.heldOrder {
		e.apply(e.heldChanges[id])
	}
	e.log.Info("Transcript loaded", "messages", len(messages),
		"held_inserts", len(e.heldInserts), "held_changes", len(e.heldOrder))
	e.heldInserts = nil
	e.heldChanges = make(map[string]domain.Change)
	e.heldOrder = nil
}

func (e *Engine) applyChange(change domain.Change) {
	author := change.Row.UserID
	if author == "" {
		if current, ok := e.timeline.Get(change.Row.ID); ok {
			author = current.UserID
		}
	}
	// Read synchronously on the loop: nothing runs between this read and the compare.
	if identity, ok := e.identity.CurrentIdentity(e.ctx, true); ok && author != "" && author == identity.ID {
		e.log.Debug("Self echo dropped", "kind", change.Kind, "id", change.Row.ID)
		return
	}
	if !e.loaded {
		e.hold(change)
		return
	}
	e.apply(change)
}

func (e *Engine) hold(change domain.Change) {
	if change.Kind == domain.ChangeInsert {
		e.heldInserts = append(e.heldInserts, change.Row)
		return
	}
	if _, ok := e.heldChanges[change.Row.ID]; !ok {
		e.heldOrder = append(e.heldOrder, change.Row.ID)
	}
	e.heldChanges[change.Row.ID] = change
}

func (e *Engine) apply(change domain.Change) {
	id := change.Row.ID
	switch change.Kind {
	case domain.ChangeInsert:
		if e.timeline.Insert(change.Row) == Ignored {
			e.log.Debug("Insert for removed message ignored", "id", id)
			return
		}
		msg, _ := e.timeline.Get(id)
		e.render(msg)
	case domain.ChangeUpdate:
		if e.timeline.Update(change.Row) == Ignored {
			e.log.Debug("Update for unknown message ignored", "id", id)
			return
		}
		msg, _ := e.timeline.Get(id)
		e.render(msg)
	case domain.ChangeDelete:
		if e.timeline.Delete(id) == Ignored {
			e.log.Debug("Delete for unknown message ignored", "id", id)
			return
		}
		e.remove(id)
	}
}

func (e *Engine) entryFor(msg domain.Message) domain.Entry {
	display, ok := e.names.Cached(msg.UserID)
	if !ok {
		display = msg.UserID
		e.resolve(msg.UserID)
	}
	return e.entryWithName(msg, display)
}

func (e *Engine) entryWithName(msg domain.Message, display string) domain.Entry {
	identity, _ := e.identity.CurrentIdentity(e.ctx, true)
	return domain.Entry{
		Message:     msg,
		DisplayName: display,
		Color:       e.names.Color(display),
		Owned:       msg.OwnedBy(identity),
	}
}

// resolve starts at most one lookup per author; its result re-renders that author's entries.
func (e *Engine) resolve(userID string) {
	if userID == "" {
		return
	}
	if _, ok := e.resolving[userID]; ok {
		return
	}
	e.resolving[userID] = struct{}{}
	ctx := e.ctx
	go func() {
		display := e.names.Resolve(ctx, userID)
		e.post(func() {
			delete(e.resolving, userID)
			for _, msg := range e.timeline.Messages() {
				if msg.UserID == userID {
					e.renderEntry(e.entryWithName(msg, display))
				}
			}
		})
	}()
}

func (e *Engine) render(msg domain.Message) {
	e.renderEntry(e.entryFor(msg))
}

func (e *Engine) renderEntry(entry domain.Entry) {
	for _, view := range e.views {
		view.Render(entry)
	}
}

func (e *Engine) remove(id string) {
	for _, view := range e.views {
		view.Remove(id)
	}
}

// do runs fn on the loop and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case e.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return context.Canceled
	}
}

// post queues fn without waiting.
func (e *Engine) post(fn func()) {
	select {
	case e.ops <- fn:
	case <-e.done:
	}
}
