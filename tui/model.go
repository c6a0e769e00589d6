package tui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type viewMode int

const (
	viewList viewMode = iota
	viewInspect
)

type sortMode int

const (
	sortChronological sortMode = iota
	sortDuration
)

// Model is the Bubble Tea model for the memcached-relay TUI.
type Model struct {
	target string
	client *http.Client
	resp   *http.Response
	reader *bufio.Reader

	events      []Event
	cursor      int // index into displayRows
	follow      bool
	width       int
	height      int
	err         error
	view        viewMode
	displayRows []int // indices into events, post filter/search/sort

	searchMode   bool
	searchQuery  string
	searchCursor int
	filterMode   bool
	filterQuery  string
	filterCursor int
	sortMode     sortMode

	inspectScroll int

	statusMsg string
}

// eventMsg carries one decoded Event read from the SSE stream.
type eventMsg struct{ Event Event }

// errMsg carries an error from the HTTP connection or stream.
type errMsg struct{ Err error }

// connectedMsg is sent after successfully opening the SSE stream.
type connectedMsg struct {
	resp   *http.Response
	reader *bufio.Reader
}

// New creates a new Model targeting the given memcached-relay web server address.
func New(target string) Model {
	return Model{
		target: target,
		client: &http.Client{},
		follow: true,
	}
}

// Init opens the SSE connection to /api/events.
func (m Model) Init() tea.Cmd {
	return connect(m.client, m.target)
}

func connect(client *http.Client, target string) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, strings.TrimRight(target, "/")+"/api/events", nil)
		if err != nil {
			return errMsg{Err: fmt.Errorf("build request: %w", err)}
		}
		resp, err := client.Do(req)
		if err != nil {
			return errMsg{Err: fmt.Errorf("connect %s: %w", target, err)}
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return errMsg{Err: fmt.Errorf("connect %s: status %d", target, resp.StatusCode)}
		}
		return connectedMsg{resp: resp, reader: bufio.NewReader(resp.Body)}
	}
}

// recvEvent reads lines from the SSE stream until a "data: " line carrying
// an Event payload, then returns it. Comment lines and blank keepalive
// lines are skipped silently.
func recvEvent(reader *bufio.Reader) tea.Cmd {
	return func() tea.Msg {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return errMsg{Err: err}
			}
			line = strings.TrimRight(line, "\r\n")
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(line[len("data: "):]), &ev); err != nil {
				continue
			}
			return eventMsg{Event: ev}
		}
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.resp = msg.resp
		m.reader = msg.reader
		return m, recvEvent(msg.reader)

	case eventMsg:
		m.events = append(m.events, msg.Event)
		if m.view != viewList {
			return m, recvEvent(m.reader)
		}
		m.displayRows = m.rebuildDisplayRows()
		if m.follow {
			m.cursor = max(len(m.displayRows)-1, 0)
		}
		return m, recvEvent(m.reader)

	case errMsg:
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewInspect:
			return m.updateInspect(msg)
		case viewList:
			return m.updateList(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	if m.err != nil {
		return friendlyError(m.err, m.width)
	}

	if len(m.events) == 0 {
		return "Waiting for events..."
	}

	switch m.view {
	case viewInspect:
		return m.renderInspector()
	case viewList:
	}

	var footer string
	switch {
	case m.searchMode:
		footer = "  / " + renderInputWithCursor(m.searchQuery, m.searchCursor)
	case m.filterMode:
		footer = "  filter: " + renderInputWithCursor(m.filterQuery, m.filterCursor)
	default:
		items := []string{
			"q: quit", "j/k: navigate",
			"enter: inspect", "c/C: copy",
			"/: search", "f: filter", "s: sort", "w/W: export",
		}
		footer = wrapFooterItems(items, m.width)
		if m.filterQuery != "" {
			footer += "\n  " + fmt.Sprintf("[filter: %s]", describeFilter(m.filterQuery))
		}
		if m.searchQuery != "" || m.filterQuery != "" {
			footer += "  esc: clear"
		}
		if m.sortMode == sortDuration {
			footer += "  [sorted: duration]"
		}
		if m.statusMsg != "" {
			footer += "\n  " + m.statusMsg
		}
	}

	footerLines := strings.Count(footer, "\n") + 1
	listHeight := m.listHeight(footerLines)

	return strings.Join([]string{
		m.renderList(listHeight),
		m.renderPreview(),
		footer,
	}, "\n")
}

func (m Model) listHeight(footerLines int) int {
	// 12 = header border (1) + preview box (~8-9 lines) + footer (1) + padding.
	extra := max(footerLines-1, 0)
	return max(m.height-12-extra, 3)
}

func (m Model) rebuildDisplayRows() []int {
	conds := parseFilter(m.filterQuery)
	searchLower := strings.ToLower(m.searchQuery)

	var rows []int
	for i, ev := range m.events {
		if len(conds) > 0 && !matchAllConditions(ev, conds) {
			continue
		}
		if searchLower != "" && !strings.Contains(strings.ToLower(ev.Key), searchLower) {
			continue
		}
		rows = append(rows, i)
	}

	if m.sortMode == sortDuration {
		sort.SliceStable(rows, func(a, b int) bool {
			return m.events[rows[a]].Duration() > m.events[rows[b]].Duration()
		})
	}
	return rows
}

// cursorEvent returns the Event at the cursor, or the zero value if out of range.
func (m Model) cursorEvent() (Event, bool) {
	if m.cursor < 0 || m.cursor >= len(m.displayRows) {
		return Event{}, false
	}
	return m.events[m.displayRows[m.cursor]], true
}

func (m Model) closeStream() {
	if m.resp != nil {
		_ = m.resp.Body.Close()
	}
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchMode {
		return m.updateSearch(msg)
	}
	if m.filterMode {
		return m.updateFilter(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.closeStream()
		return m, tea.Quit
	case "enter":
		if len(m.displayRows) > 0 {
			m.view = viewInspect
			m.inspectScroll = 0
		}
		return m, nil
	case "c", "C":
		return m.copyKey(msg.String() == "C"), nil
	case "/":
		m.searchMode = true
		m.searchQuery = ""
		m.searchCursor = 0
		return m, nil
	case "f":
		m.filterMode = true
		m.filterQuery = ""
		m.filterCursor = 0
		return m, nil
	case "s":
		return m.toggleSort(), nil
	case "w", "W":
		return m.export(msg.String() == "W"), nil
	case "esc":
		return m.clearFilter(), nil
	case "j", "down":
		return m.navigateCursor(msg.String()), nil
	case "k", "up":
		return m.navigateCursor(msg.String()), nil
	case "ctrl+d", "pgdown":
		return m.pageScroll(msg.String()), nil
	case "ctrl+u", "pgup":
		return m.pageScroll(msg.String()), nil
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		return m, nil
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.displayRows = m.rebuildDisplayRows()
		m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
		return m, nil
	case "backspace":
		if m.searchCursor > 0 {
			runes := []rune(m.searchQuery)
			m.searchQuery = string(runes[:m.searchCursor-1]) + string(runes[m.searchCursor:])
			m.searchCursor--
			m.displayRows = m.rebuildDisplayRows()
			m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
		}
		return m, nil
	case "ctrl+c":
		m.closeStream()
		return m, tea.Quit
	case "left":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil
	case "right":
		if m.searchCursor < len([]rune(m.searchQuery)) {
			m.searchCursor++
		}
		return m, nil
	case "up", "down":
		return m.navigateCursor(msg.String()), nil
	}

	r := msg.Runes
	if len(r) == 0 {
		return m, nil
	}

	runes := []rune(m.searchQuery)
	m.searchQuery = string(runes[:m.searchCursor]) + string(r) + string(runes[m.searchCursor:])
	m.searchCursor += len(r)
	m.displayRows = m.rebuildDisplayRows()
	m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterMode = false
		return m, nil
	case "esc":
		m.filterMode = false
		m.filterQuery = ""
		m.displayRows = m.rebuildDisplayRows()
		m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
		return m, nil
	case "backspace":
		if m.filterCursor > 0 {
			runes := []rune(m.filterQuery)
			m.filterQuery = string(runes[:m.filterCursor-1]) + string(runes[m.filterCursor:])
			m.filterCursor--
			m.displayRows = m.rebuildDisplayRows()
			m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
		}
		return m, nil
	case "ctrl+c":
		m.closeStream()
		return m, tea.Quit
	case "left":
		if m.filterCursor > 0 {
			m.filterCursor--
		}
		return m, nil
	case "right":
		if m.filterCursor < len([]rune(m.filterQuery)) {
			m.filterCursor++
		}
		return m, nil
	case "up", "down":
		return m.navigateCursor(msg.String()), nil
	}

	r := msg.Runes
	if len(r) == 0 {
		return m, nil
	}

	runes := []rune(m.filterQuery)
	m.filterQuery = string(runes[:m.filterCursor]) + string(r) + string(runes[m.filterCursor:])
	m.filterCursor += len(r)
	m.displayRows = m.rebuildDisplayRows()
	m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
	return m, nil
}

func (m Model) pageScroll(key string) Model {
	half := max(m.listHeight(1)/2, 1)
	switch key {
	case "ctrl+d", "pgdown":
		m.cursor = min(m.cursor+half, max(len(m.displayRows)-1, 0))
		if len(m.displayRows) > 0 && m.cursor == len(m.displayRows)-1 {
			m.follow = true
		}
	case "ctrl+u", "pgup":
		m.cursor = max(m.cursor-half, 0)
		m.follow = false
	}
	return m
}

func (m Model) navigateCursor(key string) Model {
	switch key {
	case "up":
		if m.cursor > 0 {
			m.cursor--
			m.follow = false
		}
	case "down":
		if len(m.displayRows) > 0 && m.cursor < len(m.displayRows)-1 {
			m.cursor++
		}
		if len(m.displayRows) > 0 && m.cursor == len(m.displayRows)-1 {
			m.follow = true
		}
	}
	return m
}

// copyKey copies a replayable command line for the cursor event to the
// clipboard, e.g. "get user:42". withEvent copies the full event as JSON
// instead.
func (m Model) copyKey(withEvent bool) Model {
	ev, ok := m.cursorEvent()
	if !ok || ev.Key == "" {
		return m
	}
	text := replayCommand(ev)
	if withEvent {
		if b, err := json.Marshal(ev); err == nil {
			text = string(b)
		}
	}
	_ = copyToSystemClipboard(context.Background(), text)
	return m
}

func (m Model) toggleSort() Model {
	switch m.sortMode {
	case sortChronological:
		m.sortMode = sortDuration
		m.follow = false
	case sortDuration:
		m.sortMode = sortChronological
	}
	m.displayRows = m.rebuildDisplayRows()
	m.cursor = 0
	return m
}

// export writes the currently filtered/searched events to a file in JSON
// (w) or Markdown (W) form and reports the resulting path in the footer.
func (m Model) export(markdown bool) Model {
	format := exportJSON
	if markdown {
		format = exportMarkdown
	}
	path, err := writeExport(m.events, m.filterQuery, m.searchQuery, format, "")
	if err != nil {
		m.statusMsg = "export failed: " + err.Error()
		return m
	}
	m.statusMsg = "exported to " + path
	return m
}

func (m Model) clearFilter() Model {
	changed := false
	if m.searchQuery != "" {
		m.searchQuery = ""
		changed = true
	}
	if m.filterQuery != "" {
		m.filterQuery = ""
		changed = true
	}
	if changed {
		m.displayRows = m.rebuildDisplayRows()
		m.cursor = min(m.cursor, max(len(m.displayRows)-1, 0))
	}
	return m
}
