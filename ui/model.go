// Package ui is the terminal presentation of the chat panel: a transcript
// document fed by the engine, a notice queue fed by the services, and the
// bubbletea model tying them to the composer.
package ui

import (
	"chat-panel/contract"
	"chat-panel/domain"
	"chat-panel/search"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	noticeLines = 3
	// header, notices, status line, composer and help.
	chromeLines = 1 + noticeLines + 1 + 1 + 1
)

type documentChangedMsg struct{}

type noticesChangedMsg struct{}

type noticeExpiredMsg struct{}

// readyMsg ends the loading overlay.
type readyMsg struct{}

type searchResultsMsg struct {
	query search.Query
	hits  []search.Hit
}

type Model struct {
	ctx     context.Context
	actions Actions
	doc     *Document
	notices *Notices
	ready   <-chan struct{}
	keys    KeyMap

	viewport viewport.Model
	input    textinput.Model
	help     help.Model

	width   int
	height  int
	loading bool

	results      []search.Hit
	resultsQuery search.Query
	showResults  bool

	status      string
	statusLevel slog.Level
	statusAt    time.Time
}

// NewModel shows the loading overlay until ready is closed. A nil ready
// channel starts without overlay.
func NewModel(ctx context.Context, actions Actions, doc *Document, notices *Notices, ready <-chan struct{}) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Write a message or /help"
	input.Focus()

	return Model{
		ctx:      ctx,
		actions:  actions,
		doc:      doc,
		notices:  notices,
		ready:    ready,
		keys:     DefaultKeyMap,
		viewport: viewport.New(0, 0),
		input:    input,
		help:     help.New(),
		loading:  ready != nil,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		listenForSignal(m.doc.Changed(), documentChangedMsg{}),
		listenForSignal(m.notices.Changed(), noticesChangedMsg{}),
		waitForReady(m.ready),
	)
}

// listenForSignal blocks until the channel fires, then delivers msg.
// The handler of msg must listen again.
func listenForSignal(channel <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-channel; !ok {
			return nil
		}
		return msg
	}
}

func waitForReady(ready <-chan struct{}) tea.Cmd {
	if ready == nil {
		return nil
	}
	return func() tea.Msg {
		<-ready
		return readyMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case documentChangedMsg:
		m.refreshTranscript()
		return m, listenForSignal(m.doc.Changed(), documentChangedMsg{})

	case noticesChangedMsg:
		return m, tea.Batch(
			listenForSignal(m.notices.Changed(), noticesChangedMsg{}),
			m.scheduleNoticeExpiry(),
		)

	case noticeExpiredMsg:
		m.notices.Active()
		return m, m.scheduleNoticeExpiry()

	case readyMsg:
		m.loading = false
		m.refreshTranscript()
		return m, nil

	case searchResultsMsg:
		if len(msg.hits) == 0 {
			m.notices.Notify(contract.Notice{
				Level:   contract.NoticeInfo,
				Title:   "No match",
				Message: msg.query.Terms,
			})
			return m, nil
		}
		m.results = msg.hits
		m.resultsQuery = msg.query
		m.showResults = true
		return m, nil

	case logRecordMsg:
		m.status = msg.Summary
		m.statusLevel = msg.Level
		m.statusAt = time.Now()
		at := m.statusAt
		return m, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{at: at}
		})

	case logRecordFadeMsg:
		if msg.at.Equal(m.statusAt) {
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.ClearResults):
		m.showResults = false
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.LineUp(max(1, m.viewport.Height))
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.LineDown(max(1, m.viewport.Height))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	cmd, isCommand := parseCommand(line)
	if !isCommand {
		return m, m.act(func(ctx context.Context) { m.actions.Send(ctx, line) })
	}
	return m.dispatch(cmd, line)
}

func (m Model) dispatch(cmd command, line string) (tea.Model, tea.Cmd) {
	var err error
	switch cmd.name {
	case "login":
		if err = cmd.arity(2, 2); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.Login(ctx, cmd.arg(0), cmd.arg(1)) })
		}
	case "magic":
		if err = cmd.arity(1, 2); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.SendMagicLink(ctx, cmd.arg(0), cmd.arg(1)) })
		}
	case "verify":
		if err = cmd.arity(2, 2); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.VerifyOTP(ctx, cmd.arg(0), cmd.arg(1)) })
		}
	case "signup":
		if err = cmd.arity(2, 3); err == nil {
			return m, m.act(func(ctx context.Context) {
				m.actions.SignUp(ctx, cmd.arg(0), cmd.arg(1), cmd.arg(2))
			})
		}
	case "logout":
		if err = cmd.arity(0, 0); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.Logout(ctx) })
		}
	case "name":
		if err = cmd.arity(1, 1); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.ClaimUsername(ctx, cmd.arg(0)) })
		}
	case "edit":
		if err = cmd.arity(2, -1); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.Edit(ctx, cmd.arg(0), cmd.rest) })
		}
	case "delete":
		if err = cmd.arity(1, 1); err == nil {
			return m, m.act(func(ctx context.Context) { m.actions.Delete(ctx, cmd.arg(0)) })
		}
	case "find":
		query := search.NewQuery(line)
		if query.Empty() {
			err = fmt.Errorf("usage: %s", cmd.usage())
			break
		}
		ctx := m.ctx
		return m, func() tea.Msg {
			return searchResultsMsg{query: query, hits: m.actions.Search(ctx, query)}
		}
	case "telemetry":
		if err = cmd.arity(1, 1); err == nil {
			switch strings.ToLower(cmd.arg(0)) {
			case "on":
				return m, m.act(func(context.Context) { m.actions.SetTelemetry(true) })
			case "off":
				return m, m.act(func(context.Context) { m.actions.SetTelemetry(false) })
			}
			err = fmt.Errorf("usage: %s", cmd.usage())
		}
	case "captcha":
		if err = cmd.arity(1, 1); err == nil {
			m.actions.SetCaptcha(cmd.arg(0))
			m.notices.Notify(contract.Notice{Level: contract.NoticeInfo, Title: "Captcha token set"})
			return m, nil
		}
	case "help":
		m.notices.Notify(contract.Notice{
			Level:    contract.NoticeInfo,
			Title:    "Commands",
			Message:  helpText(),
			Duration: 3 * defaultNoticeDuration,
		})
		return m, nil
	case "quit":
		return m, tea.Quit
	default:
		err = fmt.Errorf("unknown command /%s, try /help", cmd.name)
	}
	m.notices.Notify(contract.Notice{Level: contract.NoticeWarning, Title: "Invalid command", Message: err.Error()})
	return m, nil
}

// act runs fn off the bubbletea goroutine; outcomes come back as notices.
func (m Model) act(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(1, height-chromeLines)
	m.input.Width = max(1, width-len(m.input.Prompt)-1)
	m.help.Width = width
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.doc.View(m.width))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) scheduleNoticeExpiry() tea.Cmd {
	next := m.notices.NextExpiry()
	if next.IsZero() {
		return nil
	}
	return tea.Tick(time.Until(next)+10*time.Millisecond, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7"))
	subtleStyle   = lipgloss.NewStyle().Faint(true)
	overlayStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3)
	resultsTitle  = lipgloss.NewStyle().Bold(true).Underline(true)
	statusWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	statusError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

func (m Model) View() string {
	if m.width == 0 {
		return "Starting..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderNotices(),
		m.renderStatus(),
		m.input.View(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	who := m.actions.Whoami()
	if who == "" {
		return titleStyle.Render("chat-panel") + subtleStyle.Render(" · not logged in · /login /magic /signup /help")
	}
	return titleStyle.Render("chat-panel") + subtleStyle.Render(" · logged in as ") + who
}

func (m Model) renderBody() string {
	height := m.viewport.Height
	switch {
	case m.loading:
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			overlayStyle.Render("Loading transcript..."))
	case m.showResults:
		return lipgloss.NewStyle().Height(height).MaxHeight(height).Render(m.renderResults())
	default:
		return m.viewport.View()
	}
}

func (m Model) renderResults() string {
	title := fmt.Sprintf("Results for %q (%d)", m.resultsQuery.Terms, len(m.results))
	if m.resultsQuery.Author != "" {
		title += " by " + m.resultsQuery.Author
	}
	lines := []string{resultsTitle.Render(title)}
	for _, hit := range m.results {
		lines = append(lines, fmt.Sprintf("%s %s: %s %s",
			stampStyle.Render(m.doc.formatStamp(hit.CreatedAt)),
			hit.Author,
			m.doc.masker.Mask(hit.Content),
			subtleStyle.Render("#"+domain.ShortID(hit.ID)),
		))
	}
	lines = append(lines, subtleStyle.Render("esc to close"))
	return strings.Join(lines, "\n")
}

func (m Model) renderNotices() string {
	active := m.notices.Active()
	if len(active) > noticeLines {
		active = active[len(active)-noticeLines:]
	}
	lines := make([]string, 0, len(active))
	for _, notice := range active {
		lines = append(lines, renderNotice(notice))
	}
	return lipgloss.NewStyle().Width(m.width).Height(noticeLines).MaxHeight(noticeLines).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	style := statusWarning
	if m.statusLevel >= slog.LevelError {
		style = statusError
	}
	return style.MaxWidth(m.width).Render(m.status)
}
