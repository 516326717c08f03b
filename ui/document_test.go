package ui

import (
	"chat-panel/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type upperMasker struct{}

func (upperMasker) Mask(content string) string {
	return strings.ReplaceAll(content, "badger", "******")
}

func newTestDocument(masker Masker) *Document {
	doc := NewDocument(masker)
	doc.loc = time.UTC
	doc.now = func() time.Time { return today }
	return doc
}

func testEntry(id, name, content string, at time.Time, owned bool) domain.Entry {
	return domain.Entry{
		Message:     domain.Message{ID: id, UserID: "u-" + name, Content: content, CreatedAt: at},
		DisplayName: name,
		Color:       "#aabbcc",
		Owned:       owned,
	}
}

func TestDocument_RenderUpsertsById(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	// Given a message rendered under the raw author id
	entry := testEntry("a1b2c3d4e5", "", "hi", today.Add(-time.Hour), false)
	entry.UserID = "u1"
	doc.Render(entry)
	req.Contains(doc.View(0), "u1: hi")

	// When the same id is rendered with the resolved name and new content
	entry.DisplayName = "alice"
	entry.Content = "hi there"
	doc.Render(entry)

	// Then the node is patched in place
	req.Equal(1, doc.Len())
	view := doc.View(0)
	req.Contains(view, "alice: hi there")
	req.NotContains(view, "u1: hi")
}

func TestDocument_OrderAndRemove(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	doc.Render(testEntry("m1", "alice", "first", today.Add(-2*time.Minute), false))
	doc.Render(testEntry("m2", "bob", "second", today.Add(-time.Minute), false))
	doc.Render(testEntry("m3", "carol", "third", today.Add(-time.Minute), false))

	// Then nodes read in arrival order
	lines := strings.Split(doc.View(0), "\n")
	req.Len(lines, 3)
	req.Contains(lines[0], "first")
	req.Contains(lines[1], "second")
	req.Contains(lines[2], "third")

	// When a node is removed
	doc.Remove("m2")
	doc.Remove("unknown")

	// Then it disappears and unknown ids are ignored
	req.Equal(2, doc.Len())
	req.NotContains(doc.View(0), "second")
}

func TestDocument_KeepsArrivalOrderOverTimestamps(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	// Given a message stamped later arriving before an earlier one
	late := testEntry("a", "alice", "arrived first", today.Add(-time.Minute), false)
	doc.Render(late)
	doc.Render(testEntry("b", "bob", "arrived second", today.Add(-2*time.Minute), false))

	// Then it is not re-positioned
	lines := strings.Split(doc.View(0), "\n")
	req.Contains(lines[0], "arrived first")
	req.Contains(lines[1], "arrived second")

	// When an update moves its timestamp after every other node
	late.CreatedAt = today
	late.Content = "edited"
	doc.Render(late)

	// Then it is patched where it stands
	lines = strings.Split(doc.View(0), "\n")
	req.Contains(lines[0], "edited")
	req.Contains(lines[1], "arrived second")
}

func TestDocument_AffordancesOnlyWhenOwned(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	doc.Render(testEntry("0123456789abcdef", "alice", "mine", today, true))
	doc.Render(testEntry("fedcba9876543210", "bob", "theirs", today, false))

	view := doc.View(0)
	req.Contains(view, "#01234567 edit/delete")
	req.NotContains(view, "#fedcba98")
}

func TestDocument_MasksAtRenderTime(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(upperMasker{})

	doc.Render(testEntry("m1", "alice", "the badger is here", today, false))

	req.Contains(doc.View(0), "the ****** is here")
}

func TestDocument_Timestamps(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	req.Equal("17:05", doc.formatStamp(time.Date(2025, 3, 1, 17, 5, 0, 0, time.UTC)))
	req.Equal("Feb 28 23:59", doc.formatStamp(time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)))
	req.Equal("--:--", doc.formatStamp(time.Time{}))
}

func TestDocument_ChangedSignal(t *testing.T) {
	req := require.New(t)
	doc := newTestDocument(nil)

	// Given several updates before anyone listens
	doc.Render(testEntry("m1", "alice", "one", today, false))
	doc.Render(testEntry("m2", "alice", "two", today, false))

	// Then exactly one pending signal is kept
	select {
	case <-doc.Changed():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-doc.Changed():
		t.Fatal("signals must coalesce")
	default:
	}
	req.Equal(2, doc.Len())
}

func TestDocument_EmptyView(t *testing.T) {
	req := require.New(t)
	req.Contains(newTestDocument(nil).View(40), "No messages yet.")
}
