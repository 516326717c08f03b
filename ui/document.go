package ui

import (
	"chat-panel/domain"
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Masker hides filtered words at render time; the stored content is untouched.
type Masker interface {
	Mask(content string) string
}

type passthrough struct{}

func (passthrough) Mask(content string) string { return content }

// node is the rendered form of one message. Sub-elements are patched in
// place when the same id is rendered again; seq is fixed at first render.
type node struct {
	id      string
	seq     uint64
	name    string
	color   string
	stamp   string
	content string
	owned   bool
}

// Document is the transcript view read by the bubbletea goroutine and
// written by the engine loop.
type Document struct {
	mu      sync.RWMutex
	nodes   map[string]*node
	seq     uint64
	masker  Masker
	loc     *time.Location
	now     func() time.Time
	changed chan struct{}
}

func NewDocument(masker Masker) *Document {
	if masker == nil {
		masker = passthrough{}
	}
	return &Document{
		nodes:   make(map[string]*node),
		masker:  masker,
		loc:     time.Local,
		now:     time.Now,
		changed: make(chan struct{}, 1),
	}
}

// Render upserts the node keyed by entry.ID.
func (d *Document) Render(entry domain.Entry) {
	d.mu.Lock()
	n, ok := d.nodes[entry.ID]
	if !ok {
		d.seq++
		n = &node{id: entry.ID, seq: d.seq}
		d.nodes[entry.ID] = n
	}
	n.name = entry.DisplayName
	if n.name == "" {
		n.name = entry.UserID
	}
	n.color = entry.Color
	n.stamp = d.formatStamp(entry.CreatedAt)
	n.content = d.masker.Mask(entry.Content)
	n.owned = entry.Owned
	d.mu.Unlock()
	d.signal()
}

func (d *Document) Remove(id string) {
	d.mu.Lock()
	_, ok := d.nodes[id]
	delete(d.nodes, id)
	d.mu.Unlock()
	if ok {
		d.signal()
	}
}

func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

// Changed fires at least once after any number of updates.
func (d *Document) Changed() <-chan struct{} { return d.changed }

var (
	stampStyle      = lipgloss.NewStyle().Faint(true)
	affordanceStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	emptyStyle      = lipgloss.NewStyle().Faint(true).Italic(true)
)

// View lays nodes out in first-render order, wrapped to width. A later
// timestamp never moves a node: the transcript keeps arrival order.
func (d *Document) View(width int) string {
	d.mu.RLock()
	nodes := make([]node, 0, len(d.nodes))
	for _, n := range d.nodes {
		nodes = append(nodes, *n)
	}
	d.mu.RUnlock()

	if len(nodes) == 0 {
		return emptyStyle.Render("No messages yet.")
	}
	slices.SortFunc(nodes, func(a, b node) int {
		return cmp.Compare(a.seq, b.seq)
	})

	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, renderNode(n, width))
	}
	return strings.Join(lines, "\n")
}

func renderNode(n node, width int) string {
	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(n.color)).Render(n.name)
	line := stampStyle.Render(n.stamp) + " " + name + ": " + n.content
	if n.owned {
		line += " " + affordanceStyle.Render("#"+domain.ShortID(n.id)+" edit/delete")
	}
	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

// formatStamp shows the time of day for today's messages and the date otherwise.
func (d *Document) formatStamp(at time.Time) string {
	if at.IsZero() {
		return "--:--"
	}
	local := at.In(d.loc)
	now := d.now().In(d.loc)
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 02 15:04")
}

func (d *Document) signal() {
	select {
	case d.changed <- struct{}{}:
	default:
	}
}
