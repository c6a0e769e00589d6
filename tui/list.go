package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/halvorsen/memcached-relay/highlight"
)

func eventStatus(ev Event) string {
	if ev.Error != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("E")
	}
	if ev.HotKey {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("HOT")
	}
	if ev.NoReply {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Render("NR")
	}
	return ""
}

// Column widths.
const (
	colMarker   = 2 // "▶ " or "  "
	colOp       = 9
	colDuration = 10
	colTime     = 12
	colStatus   = 4
)

func (m Model) renderList(maxRows int) string {
	innerWidth := max(m.width-4, 20)
	colKey := max(innerWidth-colMarker-colOp-colDuration-colTime-colStatus-4, 10)

	var title string
	if m.searchQuery != "" || m.filterQuery != "" {
		title = fmt.Sprintf(" memcached-relay (%d/%d events) ", len(m.displayRows), len(m.events))
	} else {
		title = fmt.Sprintf(" memcached-relay (%d events) ", len(m.events))
	}
	if m.sortMode == sortDuration {
		title += "[slow] "
	}

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(innerWidth)

	dataRows := max(maxRows-1, 1) // -1 for header row

	start := 0
	if len(m.displayRows) > dataRows {
		start = max(m.cursor-dataRows/2, 0)
		if start+dataRows > len(m.displayRows) {
			start = len(m.displayRows) - dataRows
		}
	}
	end := min(start+dataRows, len(m.displayRows))

	header := fmt.Sprintf("  %-*s %-*s %*s %*s %-*s",
		colOp, "Op",
		colKey, "Key",
		colDuration, "Duration",
		colTime, "Time",
		colStatus, "",
	)

	rows := []string{lipgloss.NewStyle().Bold(true).Render(header)}
	for i := start; i < end; i++ {
		rows = append(rows, m.renderEventRow(i, i == m.cursor, colKey))
	}

	borderColor := lipgloss.Color("240")
	border = border.BorderForeground(borderColor)
	content := strings.Join(rows, "\n")

	box := border.Render(content)
	lines := strings.Split(box, "\n")
	if len(lines) > 0 {
		borderFg := lipgloss.NewStyle().Foreground(borderColor)
		titleStyle := lipgloss.NewStyle().Bold(true)
		dashes := max(innerWidth-len([]rune(title)), 0)
		lines[0] = borderFg.Render("╭") +
			titleStyle.Render(title) +
			borderFg.Render(strings.Repeat("─", dashes)+"╮")
		box = strings.Join(lines, "\n")
	}

	return box
}

func (m Model) renderEventRow(drIdx int, isCursor bool, colKey int) string {
	ev := m.events[m.displayRows[drIdx]]
	marker := "  "
	if isCursor {
		marker = "▶ "
	}

	op := ev.Op
	dur := formatDuration(ev.Duration())
	t := formatTime(ev.Time())

	key := truncate(ev.Key, colKey)
	if key == "" {
		key = "-"
	}

	status := eventStatus(ev)

	row := fmt.Sprintf("%s%-*s %-*s %*s %*s",
		marker,
		colOp, op,
		colKey, key,
		colDuration, dur,
		colTime, t,
	) + " " + status
	if isCursor {
		row = lipgloss.NewStyle().Bold(true).Render(row)
	}
	return row
}

func (m Model) renderPreview() string {
	innerWidth := max(m.width-4, 20)

	ev, ok := m.cursorEvent()
	if !ok {
		return ""
	}

	var lines []string
	lines = append(lines, "Op:       "+highlight.Command(ev.Op, ""))

	if ev.Key != "" {
		maxKeyLen := max(innerWidth-10, 20) // 10 = len("Key:      ")
		lines = append(lines, "Key:      "+truncate(ev.Key, maxKeyLen))
	}

	if ev.KeyCount > 1 {
		lines = append(lines, fmt.Sprintf("Keys:     %d", ev.KeyCount))
	}

	lines = append(lines, "Duration: "+formatDuration(ev.Duration()))
	lines = append(lines, fmt.Sprintf("Bytes:    %d req / %d resp", ev.RequestBytes, ev.ResponseBytes))

	if ev.Quiet {
		lines = append(lines, fmt.Sprintf("Quiet:    burst of %d", ev.BurstSize))
	}
	if ev.NoReply {
		lines = append(lines, "NoReply:  true")
	}
	if ev.Error != "" {
		lines = append(lines, "Error:    "+ev.Error)
	}

	content := strings.Join(lines, "\n")

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(innerWidth).
		BorderForeground(lipgloss.Color("240"))

	return border.Render(content)
}
