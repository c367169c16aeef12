// Package tui renders the article feed in the terminal. The model never
// blocks: every controller call runs inside a tea.Cmd and reports back with
// a message, and the view is rebuilt from controller snapshots.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// itemLines is the number of rows an article occupies.
	itemLines = 3
	// chromeLines covers the header and the footer.
	chromeLines = 5
)

// Feed is the controller surface the view drives.
type Feed interface {
	feed.Loader
	Refresh(ctx context.Context) (bool, error)
	Snapshot() feed.Snapshot
	ScrollToTop()
}

// ScrollTopMsg asks the view to jump to the first article. The command wires
// the controller's scroll-to-top capability to send it.
type ScrollTopMsg struct{}

// feedDoneMsg reports a finished LoadMore or Refresh.
type feedDoneMsg struct {
	op      string
	started bool
	err     error
}

// openedMsg reports the result of opening an article.
type openedMsg struct {
	url string
	err error
}

// Options configures the model.
type Options struct {
	// BottomThreshold and TopThreshold are in articles (rows of the list).
	BottomThreshold int
	TopThreshold    int

	// Open launches a URL; defaults to OpenURL.
	Open func(url string) error
}

// Model is the bubbletea model of the feed view.
type Model struct {
	ctx     context.Context
	feed    Feed
	trigger *feed.Trigger
	open    func(string) error
	logger  zerolog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	snap   feed.Snapshot
	cursor int
	offset int
	width  int
	height int
	notice string
}

// New creates the feed view for f. ctx bounds every controller call.
func New(ctx context.Context, f Feed, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	open := opts.Open
	if open == nil {
		open = OpenURL
	}

	return Model{
		ctx:     ctx,
		feed:    f,
		trigger: feed.NewTrigger(f, opts.BottomThreshold, opts.TopThreshold),
		open:    open,
		logger:  log.With().Str("component", "tui").Logger(),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: s,
		snap:    f.Snapshot(),
		height:  chromeLines + itemLines*5,
	}
}

// Init starts the spinner and issues the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.observe())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sync()
		cmds = append(cmds, m.observe())

	case tea.KeyMsg:
		m.sync()
		return m.handleKey(msg)

	case feedDoneMsg:
		m.sync()
		switch {
		case msg.err != nil && !errors.Is(msg.err, feed.ErrClosed):
			m.logger.Debug().Err(msg.err).Str("op", msg.op).Msg("Feed operation failed")
		case msg.op == "refresh" && msg.started:
			m.cursor, m.offset = 0, 0
			m.notice = ""
			cmds = append(cmds, m.observe())
		case msg.op == "load_more" && msg.started:
			// A short viewport may still be near the bottom after a page.
			cmds = append(cmds, m.observe())
		}

	case ScrollTopMsg:
		m.cursor, m.offset = 0, 0
		m.sync()
		cmds = append(cmds, m.observe())

	case openedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Could not open %s: %v", msg.url, msg.err)
		} else {
			m.notice = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.sync()
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m.moveTo(m.cursor - 1)

	case key.Matches(msg, m.keys.Down):
		return m.moveTo(m.cursor + 1)

	case key.Matches(msg, m.keys.PageUp):
		return m.moveTo(m.cursor - m.visibleItems())

	case key.Matches(msg, m.keys.PageDown):
		return m.moveTo(m.cursor + m.visibleItems())

	case key.Matches(msg, m.keys.ScrollToTop):
		f := m.feed
		return m, func() tea.Msg {
			f.ScrollToTop()
			return nil
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.Open):
		if m.cursor < len(m.snap.Items) {
			return m, m.openArticle(m.snap.Items[m.cursor].URL)
		}
	}

	return m, nil
}

// moveTo selects index i, scrolls it into view and reports the new position
// to the trigger.
func (m Model) moveTo(i int) (tea.Model, tea.Cmd) {
	n := len(m.snap.Items)
	if n == 0 {
		return m, m.observe()
	}

	m.cursor = min(max(i, 0), n-1)

	visible := m.visibleItems()
	switch {
	case m.cursor < m.offset:
		m.offset = m.cursor
	case m.cursor >= m.offset+visible:
		m.offset = m.cursor - visible + 1
	}

	return m, m.observe()
}

// position is the scroll position in articles.
func (m Model) position() feed.ScrollPosition {
	return feed.ScrollPosition{
		Offset:         m.offset,
		ViewportHeight: m.visibleItems(),
		ContentHeight:  len(m.snap.Items),
	}
}

// observe reports the current position to the trigger off the UI goroutine.
func (m Model) observe() tea.Cmd {
	ctx, trigger, pos := m.ctx, m.trigger, m.position()
	return func() tea.Msg {
		started, err := trigger.Observe(ctx, pos)
		if !started && err == nil {
			return nil
		}
		return feedDoneMsg{op: "load_more", started: started, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	if m.snap.IsLoading {
		return nil
	}
	ctx, f := m.ctx, m.feed
	return func() tea.Msg {
		started, err := f.Refresh(ctx)
		return feedDoneMsg{op: "refresh", started: started, err: err}
	}
}

func (m Model) openArticle(url string) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

// sync takes a fresh snapshot and updates key availability.
func (m *Model) sync() {
	m.snap = m.feed.Snapshot()
	if n := len(m.snap.Items); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.offset = min(m.offset, m.cursor)
	m.keys.ScrollToTop.SetEnabled(m.snap.ShowScrollToTop)
	m.keys.Refresh.SetEnabled(!m.snap.IsLoading)
}

func (m Model) visibleItems() int {
	return max((m.height-chromeLines)/itemLines, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.body())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) header() string {
	title := titleStyle.Render("Astronews")

	var status string
	switch {
	case m.snap.IsRefreshing:
		status = m.spinner.View() + " Refreshing..."
	case len(m.snap.Items) > 0:
		status = fmt.Sprintf("%d of %d", len(m.snap.Items), m.snap.Total)
	}
	if status == "" {
		return title
	}
	return title + "  " + countStyle.Render(status)
}

func (m Model) body() string {
	items := m.snap.Items

	if len(items) == 0 {
		switch {
		case m.snap.IsLoading:
			return m.spinner.View() + " Loading articles...\n"
		case m.snap.Error != "":
			return errorStyle.Render("Error: "+m.snap.Error) + "\n" +
				noticeStyle.Render("Press r to try again.") + "\n"
		default:
			return noticeStyle.Render("No news articles found.") + "\n"
		}
	}

	var b strings.Builder
	end := min(m.offset+m.visibleItems(), len(items))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderItem(items[i], i == m.cursor))
	}

	switch {
	case m.snap.IsLoadingMore:
		b.WriteString(m.spinner.View() + " Loading more articles...\n")
	case m.snap.Error != "":
		b.WriteString(errorStyle.Render("Error: "+m.snap.Error) + "\n")
	case !m.snap.HasMore && end == len(items):
		b.WriteString(noticeStyle.Render("You've reached the end of the articles") + "\n")
	}

	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}

	return b.String()
}

func (m Model) renderItem(a feed.Article, selected bool) string {
	style, marker := itemTitleStyle, "  "
	if selected {
		style, marker = selectedTitleStyle, "> "
	}

	title := a.Title
	if w := m.width - 4; w > 10 && len(title) > w {
		title = title[:w-3] + "..."
	}

	meta := []string{}
	if a.Source != "" {
		meta = append(meta, a.Source)
	}
	if !a.PublishedAt.IsZero() {
		meta = append(meta, a.PublishedAt.Local().Format("2006-01-02 15:04"))
	}

	return marker + style.Render(title) + "\n" +
		"  " + metaStyle.Render(strings.Join(meta, " · ")) + "\n\n"
}
