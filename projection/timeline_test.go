package projection

import (
	"chat-panel/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func msg(id, user, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, UserID: user, Content: content, CreatedAt: at}
}

func TestTimeline_Insert(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	at := time.Now().UTC()

	// When the same id is inserted twice
	req.Equal(Appended, timeline.Insert(msg("a", "u1", "hi", at)))
	req.Equal(Patched, timeline.Insert(msg("a", "u1", "hi again", at)))

	// Then one message holds the latest content
	req.Equal(1, timeline.Len())
	got, ok := timeline.Get("a")
	req.True(ok)
	req.Equal("hi again", got.Content)
}

func TestTimeline_ArrivalOrder(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	at := time.Now().UTC()

	// Given out of order timestamps
	timeline.Insert(msg("late", "u1", "b", at.Add(time.Minute)))
	timeline.Insert(msg("early", "u1", "a", at))

	// Then arrival order is kept, no re-sort
	messages := timeline.Messages()
	req.Equal("late", messages[0].ID)
	req.Equal("early", messages[1].ID)
}

func TestTimeline_UpdateDelete(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	at := time.Now().UTC()

	req.Equal(Ignored, timeline.Update(msg("ghost", "u1", "x", at)), "update of unseen id is a no-op")
	req.Equal(Ignored, timeline.Delete("ghost"), "delete of unseen id is a no-op")

	timeline.Insert(msg("a", "u1", "hi", at))
	req.Equal(Patched, timeline.Update(msg("a", "", "hi there", time.Time{})))
	got, _ := timeline.Get("a")
	req.Equal("hi there", got.Content)
	req.Equal("u1", got.UserID, "author survives a key-less update")
	req.Equal(at, got.CreatedAt)

	req.Equal(Removed, timeline.Delete("a"))
	req.True(timeline.IsRemoved("a"))
	req.Zero(timeline.Len())

	// A removed id never comes back
	req.Equal(Ignored, timeline.Insert(msg("a", "u1", "zombie", at)))
	req.Equal(Ignored, timeline.Update(msg("a", "u1", "zombie", at)))
	req.Equal(Ignored, timeline.Delete("a"))
	req.Zero(timeline.Len())
}

func TestTimeline_Load(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	at := time.Now().UTC()

	// Given a newest-first fetch
	touched := timeline.Load([]domain.Message{
		msg("c", "u1", "3", at.Add(2*time.Second)),
		msg("b", "u2", "2", at.Add(time.Second)),
		msg("a", "u1", "1", at),
	})

	// Then it is laid out chronologically
	req.Equal([]string{"a", "b", "c"}, touched)
	ids := make([]string, 0)
	for _, m := range timeline.Messages() {
		ids = append(ids, m.ID)
	}
	req.Equal([]string{"a", "b", "c"}, ids)
}
