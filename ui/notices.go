package ui

import (
	"chat-panel/contract"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const defaultNoticeDuration = 5 * time.Second

type queuedNotice struct {
	notice  contract.Notice
	expires time.Time
}

// Notices is the transient notice queue shown above the composer.
type Notices struct {
	mu      sync.Mutex
	items   []queuedNotice
	now     func() time.Time
	changed chan struct{}
}

func NewNotices() *Notices {
	return &Notices{now: time.Now, changed: make(chan struct{}, 1)}
}

// Notify never blocks: services call it from any goroutine.
func (n *Notices) Notify(notice contract.Notice) {
	duration := notice.Duration
	if duration <= 0 {
		duration = defaultNoticeDuration
	}
	n.mu.Lock()
	n.items = append(n.items, queuedNotice{notice: notice, expires: n.now().Add(duration)})
	n.mu.Unlock()
	select {
	case n.changed <- struct{}{}:
	default:
	}
}

// Active drops expired notices and returns the others, oldest first.
func (n *Notices) Active() []contract.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	kept := n.items[:0]
	for _, item := range n.items {
		if item.expires.After(now) {
			kept = append(kept, item)
		}
	}
	n.items = kept
	active := make([]contract.Notice, 0, len(kept))
	for _, item := range kept {
		active = append(active, item.notice)
	}
	return active
}

// NextExpiry is the zero time when nothing is pending.
func (n *Notices) NextExpiry() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	var next time.Time
	for _, item := range n.items {
		if next.IsZero() || item.expires.Before(next) {
			next = item.expires
		}
	}
	return next
}

func (n *Notices) Changed() <-chan struct{} { return n.changed }

var noticeStyles = map[contract.NoticeLevel]lipgloss.Style{
	contract.NoticeInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")),
	contract.NoticeSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
	contract.NoticeWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")),
	contract.NoticeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true),
}

func renderNotice(notice contract.Notice) string {
	text := notice.Title
	if notice.Message != "" {
		text += ": " + notice.Message
	}
	return noticeStyles[notice.Level].Render(text)
}
