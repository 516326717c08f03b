// Package projection builds the local transcript from the bulk load,
// local writes and realtime changes.
// Handles ordering, deduplication and tombstones.
// Does not talk to the network or draw anything itself.
package projection

import (
	"chat-panel/domain"
	"sort"
)

// Outcome tells the caller what a timeline operation did, and so what views must do.
type Outcome int

const (
	Ignored Outcome = iota
	Appended
	Patched
	Removed
)

// Timeline is the view model: messages keyed by id, in arrival order.
// Ids go Absent -> Rendered -> Removed and never come back once removed.
// Not safe for concurrent use: the engine loop owns it.
type Timeline struct {
	order    []string
	messages map[string]domain.Message
	removed  map[string]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{
		messages: make(map[string]domain.Message),
		removed:  make(map[string]struct{}),
	}
}

// Insert appends an unseen message, or patches it in place when already present.
func (t *Timeline) Insert(msg domain.Message) Outcome {
	if t.IsRemoved(msg.ID) {
		return Ignored
	}
	if _, ok := t.messages[msg.ID]; ok {
		return t.patch(msg)
	}
	t.messages[msg.ID] = msg
	t.order = append(t.order, msg.ID)
	return Appended
}

// Update patches a present message. Unknown and removed ids are ignored.
func (t *Timeline) Update(msg domain.Message) Outcome {
	if _, ok := t.messages[msg.ID]; !ok {
		return Ignored
	}
	return t.patch(msg)
}

// Delete removes a present message and tombstones its id.
func (t *Timeline) Delete(id string) Outcome {
	if _, ok := t.messages[id]; !ok {
		return Ignored
	}
	delete(t.messages, id)
	t.removed[id] = struct{}{}
	for i, current := range t.order {
		if current == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return Removed
}

// Load inserts a newest-first bulk fetch in chronological order.
// It returns the ids appended or patched, in that order.
func (t *Timeline) Load(newestFirst []domain.Message) []string {
	chronological := make([]domain.Message, len(newestFirst))
	copy(chronological, newestFirst)
	sort.SliceStable(chronological, func(i, j int) bool {
		return chronological[i].CreatedAt.Before(chronological[j].CreatedAt)
	})
	touched := make([]string, 0, len(chronological))
	for _, msg := range chronological {
		if t.Insert(msg) != Ignored {
			touched = append(touched, msg.ID)
		}
	}
	return touched
}

func (t *Timeline) Get(id string) (domain.Message, bool) {
	msg, ok := t.messages[id]
	return msg, ok
}

func (t *Timeline) IsRemoved(id string) bool {
	_, ok := t.removed[id]
	return ok
}

// Messages returns the timeline in arrival order.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.messages[id])
	}
	return out
}

func (t *Timeline) Len() int {
	return len(t.order)
}

// patch keeps the author: only content and timestamp change after insert.
func (t *Timeline) patch(msg domain.Message) Outcome {
	current := t.messages[msg.ID]
	current.Content = msg.Content
	if !msg.CreatedAt.IsZero() {
		current.CreatedAt = msg.CreatedAt
	}
	if current.UserID == "" {
		current.UserID = msg.UserID
	}
	t.messages[msg.ID] = current
	return Patched
}
