package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halvorsen/memcached-relay/highlight"
)

func (m Model) updateInspect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.closeStream()
		return m, tea.Quit
	case "q":
		m.view = viewList
		m.displayRows = m.rebuildDisplayRows()
		if m.follow {
			m.cursor = max(len(m.displayRows)-1, 0)
		}
		return m, nil
	case "c":
		ev, ok := m.cursorEvent()
		if !ok || ev.Key == "" {
			return m, nil
		}
		_ = copyToSystemClipboard(context.Background(), replayCommand(ev))
		return m, nil
	case "C":
		return m.copyKey(true), nil
	case "j", "down":
		maxScroll := max(len(m.inspectLines())-m.inspectVisibleRows(), 0)
		if m.inspectScroll < maxScroll {
			m.inspectScroll++
		}
		return m, nil
	case "k", "up":
		if m.inspectScroll > 0 {
			m.inspectScroll--
		}
		return m, nil
	}
	return m, nil
}

func (m Model) inspectLines() []string {
	ev, ok := m.cursorEvent()
	if !ok {
		return nil
	}

	var lines []string
	lines = append(lines, "ID:       "+ev.ID)
	lines = append(lines, "Protocol: "+ev.Protocol)
	lines = append(lines, "Op:       "+highlight.Command(ev.Op, ""))

	if ev.Key != "" {
		lines = append(lines, "Key:")
		lines = append(lines, "  "+highlight.Raw(ev.Key))
	}
	if ev.KeyCount > 1 {
		lines = append(lines, fmt.Sprintf("Keys:     %d", ev.KeyCount))
	}
	if ev.Quiet {
		lines = append(lines, fmt.Sprintf("Quiet:    burst of %d frames", ev.BurstSize))
	}

	lines = append(lines, "Duration: "+formatDuration(ev.Duration()))
	lines = append(lines, "Time:     "+formatTimeFull(ev.Time()))
	lines = append(lines, fmt.Sprintf("Bytes:    %d request / %d response", ev.RequestBytes, ev.ResponseBytes))

	if ev.NoReply {
		lines = append(lines, "NoReply:  true")
	}
	if ev.HotKey {
		lines = append(lines, "Hot key:  true")
	}
	if ev.Error != "" {
		lines = append(lines, "Error:    "+ev.Error)
	}

	return lines
}

func (m Model) inspectVisibleRows() int {
	return max(m.height-2, 3) // -2 for top/bottom border
}

func (m Model) renderInspector() string {
	innerWidth := max(m.width-4, 20)
	visibleRows := m.inspectVisibleRows()

	lines := m.inspectLines()
	if lines == nil {
		return ""
	}

	maxScroll := max(len(lines)-visibleRows, 0)
	if m.inspectScroll > maxScroll {
		m.inspectScroll = maxScroll
	}

	end := min(m.inspectScroll+visibleRows, len(lines))
	visible := lines[m.inspectScroll:end]
	content := strings.Join(visible, "\n")

	borderColor := lipgloss.Color("240")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(innerWidth).
		BorderForeground(borderColor).
		Render(content)

	boxLines := strings.Split(box, "\n")
	if len(boxLines) > 0 {
		borderFg := lipgloss.NewStyle().Foreground(borderColor)
		titleStyle := lipgloss.NewStyle().Bold(true)
		title := " Inspector "
		dashes := max(innerWidth-len([]rune(title)), 0)
		boxLines[0] = borderFg.Render("╭") +
			titleStyle.Render(title) +
			borderFg.Render(strings.Repeat("─", dashes)+"╮")
	}

	if n := len(boxLines); n > 0 {
		borderFg := lipgloss.NewStyle().Foreground(borderColor)
		help := " q: back  j/k: scroll  c: copy command  C: copy event json "
		dashes := max(innerWidth-len([]rune(help)), 0)
		boxLines[n-1] = borderFg.Render("╰") +
			lipgloss.NewStyle().Faint(true).Render(help) +
			borderFg.Render(strings.Repeat("─", dashes)+"╯")
	}

	return strings.Join(boxLines, "\n")
}
