package projection

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"chat-panel/mocks"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeIdentity struct {
	mu       sync.Mutex
	identity domain.Identity
	ok       bool
}

func (f *fakeIdentity) CurrentIdentity(context.Context, bool) (domain.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.ok
}

func (f *fakeIdentity) set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = domain.Identity{ID: id}
	f.ok = id != ""
}

type fakeNames struct {
	mu       sync.Mutex
	names    map[string]string
	cache    map[string]string
	resolves map[string]int
	gate     chan struct{}
}

func newFakeNames(names map[string]string) *fakeNames {
	return &fakeNames{names: names, cache: map[string]string{}, resolves: map[string]int{}}
}

func (f *fakeNames) Resolve(_ context.Context, userID string) string {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves[userID]++
	name, ok := f.names[userID]
	if !ok {
		name = userID
	}
	f.cache[userID] = name
	return name
}

func (f *fakeNames) Cached(userID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.cache[userID]
	return name, ok
}

func (f *fakeNames) Color(name string) string {
	return domain.UsernameColor(name)
}

func (f *fakeNames) resolveCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves[userID]
}

// fakeView is an upsert-by-id document, like the real ones.
type fakeView struct {
	mu      sync.Mutex
	order   []string
	entries map[string]domain.Entry
	renders int
}

func newFakeView() *fakeView {
	return &fakeView{entries: map[string]domain.Entry{}}
}

func (v *fakeView) Render(entry domain.Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.entries[entry.ID]; !ok {
		v.order = append(v.order, entry.ID)
	}
	v.entries[entry.ID] = entry
	v.renders++
}

func (v *fakeView) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.entries, id)
	for i, current := range v.order {
		if current == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

func (v *fakeView) snapshot() []domain.Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Entry, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.entries[id])
	}
	return out
}

type engineFixture struct {
	engine   *Engine
	repo     *mocks.MockIMessageRepository
	identity *fakeIdentity
	names    *fakeNames
	view     *fakeView
	ctx      context.Context
}

func newEngineFixture(t *testing.T, self string) engineFixture {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIMessageRepository(ctrl)
	identity := &fakeIdentity{}
	identity.set(self)
	names := newFakeNames(map[string]string{"u1": "alice", "u2": "bob"})
	view := newFakeView()
	engine := NewEngine(slog.Default(), repo, identity, names, 50, 64, view)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = engine.Run(ctx) }()
	return engineFixture{engine: engine, repo: repo, identity: identity, names: names, view: view, ctx: ctx}
}

func (f engineFixture) load(t *testing.T, rows ...domain.Message) {
	f.repo.EXPECT().LoadRecent(gomock.Any(), 50).Return(rows, nil).Times(1)
	require.NoError(t, f.engine.Load(f.ctx))
}

// flush waits for every change queued so far.
func (f engineFixture) flush(t *testing.T) {
	require.NoError(t, f.engine.do(f.ctx, func() {}))
}

func TestEngine_LoadThenUpdate(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	at := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)

	// Given a bulk load containing "a"
	f.load(t, msg("a", "u2", "hi", at))

	// When an UPDATE for "a" arrives
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("a", "u2", "hi there", at)})
	f.flush(t)

	// Then one node shows the new content
	entries := f.view.snapshot()
	req.Len(entries, 1)
	req.Equal("hi there", entries[0].Content)
}

func TestEngine_OptimisticInsertThenEcho(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.engine.newID = func() string { return "x1" }
	at := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)
	f.load(t)
	f.repo.EXPECT().
		Insert(gomock.Any(), domain.Message{ID: "x1", UserID: "u1", Content: "hello"}).
		Return(msg("x1", "u1", "hello", at), nil)

	// When the local user posts then the echo arrives
	req.NoError(f.engine.Post(f.ctx, "  hello "))
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeInsert, Row: msg("x1", "u1", "hello", at)})
	f.flush(t)

	// Then one node
	entries := f.view.snapshot()
	req.Len(entries, 1)
	req.Equal("hello", entries[0].Content)
	req.True(entries[0].Owned)
}

func TestEngine_DoubleInsert(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	at := time.Now().UTC()
	f.load(t)

	change := domain.Change{Kind: domain.ChangeInsert, Row: msg("m1", "u2", "hey", at)}
	f.engine.HandleChange(change)
	f.engine.HandleChange(change)
	f.flush(t)

	req.Len(f.view.snapshot(), 1)
}

func TestEngine_UnknownIDs(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.load(t, msg("a", "u2", "hi", time.Now().UTC()))

	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("ghost", "u2", "boo", time.Now().UTC())})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeDelete, Row: domain.Message{ID: "ghost"}})
	f.flush(t)

	entries := f.view.snapshot()
	req.Len(entries, 1)
	req.Equal("a", entries[0].ID)
}

func TestEngine_DeleteIsFinal(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	at := time.Now().UTC()
	f.load(t, msg("a", "u2", "hi", at))

	f.engine.HandleChange(domain.Change{Kind: domain.ChangeDelete, Row: domain.Message{ID: "a"}})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeInsert, Row: msg("a", "u2", "hi", at)})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("a", "u2", "again", at)})
	f.flush(t)

	req.Empty(f.view.snapshot())
}

func TestEngine_SelfEchoOfKeyOnlyDelete(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	at := time.Now().UTC()
	f.load(t, msg("mine", "u1", "hi", at))

	// The author comes from the rendered entry: the echo is dropped
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeDelete, Row: domain.Message{ID: "mine"}})
	f.flush(t)

	req.Len(f.view.snapshot(), 1)
}

func TestEngine_HeldBeforeLoad(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	at := time.Now().UTC()

	// Given changes racing ahead of the bulk load
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("a", "u2", "edited", at)})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("a", "u2", "edited twice", at)})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeUpdate, Row: msg("z", "u2", "not loaded", at)})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeDelete, Row: domain.Message{ID: "b"}})
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeInsert, Row: msg("c", "u2", "new", at.Add(time.Second))})
	f.flush(t)
	req.Empty(f.view.snapshot(), "nothing is shown before the load")

	// When the load lands
	f.load(t, msg("b", "u2", "bye", at.Add(-time.Second)), msg("a", "u2", "hi", at.Add(-2*time.Second)))

	// Then held changes apply on top, latest wins, unknown ids are discarded
	entries := f.view.snapshot()
	req.Len(entries, 2)
	req.Equal("a", entries[0].ID)
	req.Equal("edited twice", entries[0].Content)
	req.Equal("c", entries[1].ID)
}

func TestEngine_LoadFailureStillGoesLive(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.engine.HandleChange(domain.Change{Kind: domain.ChangeInsert, Row: msg("c", "u2", "new", time.Now().UTC())})
	f.repo.EXPECT().LoadRecent(gomock.Any(), 50).Return(nil, errors.ErrTransport)

	err := f.engine.Load(f.ctx)

	req.ErrorIs(err, errors.ErrTransport)
	req.Len(f.view.snapshot(), 1)
}

func TestEngine_Validation(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.load(t, msg("theirs", "u2", "hi", time.Now().UTC()))
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)
	f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	req.ErrorIs(f.engine.Post(f.ctx, strings.Repeat("a", 501)), errors.ErrValidation)
	req.ErrorIs(f.engine.Post(f.ctx, "   "), errors.ErrValidation)
	req.ErrorIs(f.engine.Edit(f.ctx, "theirs", "mine now"), errors.ErrUnauthorized)
	req.ErrorIs(f.engine.Remove(f.ctx, "theirs"), errors.ErrUnauthorized)
	req.ErrorIs(f.engine.Edit(f.ctx, "ghost", "x"), errors.ErrValidation)

	f.identity.set("")
	req.ErrorIs(f.engine.Post(f.ctx, "hello"), errors.ErrUnauthorized)
}

func TestEngine_Post_CountsCharacters(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.load(t)
	content := strings.Repeat("é", 500)
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			m.CreatedAt = time.Now().UTC()
			return m, nil
		})

	req.NoError(f.engine.Post(f.ctx, content))
	req.Len(f.view.snapshot(), 1)
}

func TestEngine_StoreFailureLeavesViewUntouched(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.load(t, msg("mine", "u1", "hi", time.Now().UTC()))
	f.repo.EXPECT().Update(gomock.Any(), "mine", "edited").Return(errors.ErrUnauthorized)
	f.repo.EXPECT().Delete(gomock.Any(), "mine").Return(errors.ErrTransport)

	req.ErrorIs(f.engine.Edit(f.ctx, "mine", "edited"), errors.ErrUnauthorized)
	req.ErrorIs(f.engine.Remove(f.ctx, "mine"), errors.ErrTransport)

	entries := f.view.snapshot()
	req.Len(entries, 1)
	req.Equal("hi", entries[0].Content)
}

func TestEngine_EditAndRemoveOwn(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.load(t, msg("mine-1234", "u1", "hi", time.Now().UTC()))
	f.repo.EXPECT().Update(gomock.Any(), "mine-1234", "edited").Return(nil)
	f.repo.EXPECT().Delete(gomock.Any(), "mine-1234").Return(nil)

	id, err := f.engine.Lookup(f.ctx, "#mine")
	req.NoError(err)
	req.Equal("mine-1234", id)

	req.NoError(f.engine.Edit(f.ctx, id, "edited"))
	req.Equal("edited", f.view.snapshot()[0].Content)

	req.NoError(f.engine.Remove(f.ctx, id))
	req.Empty(f.view.snapshot())
}

func TestEngine_NamesResolvedOncePerAuthor(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "u1")
	f.names.gate = make(chan struct{})
	at := time.Now().UTC()

	// Given two messages by an unresolved author
	f.load(t, msg("b", "u2", "two", at.Add(time.Second)), msg("a", "u2", "one", at))

	// Then the raw id is shown first
	for _, entry := range f.view.snapshot() {
		req.Equal("u2", entry.DisplayName)
	}

	// When the lookup completes
	close(f.names.gate)

	// Then both entries show the name, after a single lookup
	req.Eventually(func() bool {
		for _, entry := range f.view.snapshot() {
			if entry.DisplayName != "bob" {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	req.Equal(1, f.names.resolveCount("u2"))
	req.Equal(domain.UsernameColor("bob"), f.view.snapshot()[0].Color)
}

func TestEngine_RegateOnSessionChange(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t, "")
	f.load(t, msg("a", "u1", "hi", time.Now().UTC()))
	req.False(f.view.snapshot()[0].Owned)

	f.identity.set("u1")
	f.engine.Regate()
	f.flush(t)

	req.True(f.view.snapshot()[0].Owned)
}

// Causal lifecycles (insert, updates, optional delete) interleaved at random,
// some events delivered twice in a row, with the bulk load landing anywhere:
// the view must end equal to the reference map.
func TestEngine_RandomCausalSequences(t *testing.T) {
	for seed := int64(1); seed <= 40; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			req := require.New(t)
			rng := rand.New(rand.NewSource(seed))
			f := newEngineFixture(t, "self")
			at := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)

			lifecycles := make([][]domain.Change, 1+rng.Intn(12))
			reference := map[string]string{}
			for i := range lifecycles {
				id := fmt.Sprintf("m%02d", i)
				author := []string{"u1", "u2"}[rng.Intn(2)]
				content := fmt.Sprintf("%s v0", id)
				events := []domain.Change{{Kind: domain.ChangeInsert, Row: msg(id, author, content, at)}}
				for v := 1; v <= rng.Intn(4); v++ {
					content = fmt.Sprintf("%s v%d", id, v)
					events = append(events, domain.Change{Kind: domain.ChangeUpdate, Row: msg(id, author, content, at)})
				}
				reference[id] = content
				if rng.Intn(3) == 0 {
					events = append(events, domain.Change{Kind: domain.ChangeDelete, Row: domain.Message{ID: id}})
					delete(reference, id)
				}
				lifecycles[i] = events
			}

			var stream []domain.Change
			for {
				var pending []int
				for i, events := range lifecycles {
					if len(events) > 0 {
						pending = append(pending, i)
					}
				}
				if len(pending) == 0 {
					break
				}
				pick := pending[rng.Intn(len(pending))]
				stream = append(stream, lifecycles[pick][0])
				if rng.Intn(5) == 0 {
					stream = append(stream, lifecycles[pick][0])
				}
				lifecycles[pick] = lifecycles[pick][1:]
			}

			loadAt := rng.Intn(len(stream) + 1)
			for i, change := range stream {
				if i == loadAt {
					f.load(t)
				}
				f.engine.HandleChange(change)
			}
			if loadAt == len(stream) {
				f.load(t)
			}
			f.flush(t)

			got := map[string]string{}
			for _, entry := range f.view.snapshot() {
				got[entry.ID] = entry.Content
			}
			req.Equal(reference, got)
		})
	}
}
