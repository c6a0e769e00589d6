package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type exportFormat int

const (
	exportJSON exportFormat = iota
	exportMarkdown
)

func (f exportFormat) ext() string {
	if f == exportMarkdown {
		return "md"
	}
	return "json"
}

type exportEvent struct {
	Time          string  `json:"time"`
	Protocol      string  `json:"protocol"`
	Op            string  `json:"op"`
	Key           string  `json:"key"`
	KeyCount      int     `json:"key_count"`
	DurationMs    float64 `json:"duration_ms"`
	RequestBytes  int     `json:"request_bytes"`
	ResponseBytes int     `json:"response_bytes"`
	HotKey        bool    `json:"hot_key"`
	NoReply       bool    `json:"no_reply"`
	Error         string  `json:"error"`
}

type exportData struct {
	Captured int    `json:"captured"`
	Exported int    `json:"exported"`
	Filter   string `json:"filter"`
	Search   string `json:"search"`
	Period   struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
	Events []exportEvent `json:"events"`
}

// filteredEvents returns the subset of events matching filter and search.
func filteredEvents(events []Event, filterQuery, searchQuery string) []Event {
	conds := parseFilter(filterQuery)
	searchLower := strings.ToLower(searchQuery)

	result := make([]Event, 0, len(events))
	for _, ev := range events {
		if len(conds) > 0 && !matchAllConditions(ev, conds) {
			continue
		}
		if searchLower != "" && !strings.Contains(strings.ToLower(ev.Key), searchLower) {
			continue
		}
		result = append(result, ev)
	}
	return result
}

func buildExportData(allEvents []Event, filterQuery, searchQuery string) exportData {
	exported := filteredEvents(allEvents, filterQuery, searchQuery)

	var d exportData
	d.Captured = len(allEvents)
	d.Exported = len(exported)
	d.Filter = filterQuery
	d.Search = searchQuery

	if len(exported) > 0 {
		//nolint:gosmopolitan // export uses local time
		d.Period.Start = exported[0].Time().In(time.Local).Format("15:04:05")
		//nolint:gosmopolitan // export uses local time
		d.Period.End = exported[len(exported)-1].Time().In(time.Local).Format("15:04:05")
	}

	d.Events = make([]exportEvent, 0, len(exported))
	for _, ev := range exported {
		//nolint:gosmopolitan // export uses local time
		ts := ev.Time().In(time.Local)
		d.Events = append(d.Events, exportEvent{
			Time:          ts.Format("15:04:05.000"),
			Protocol:      ev.Protocol,
			Op:            ev.Op,
			Key:           ev.Key,
			KeyCount:      ev.KeyCount,
			DurationMs:    ev.DurationMs,
			RequestBytes:  ev.RequestBytes,
			ResponseBytes: ev.ResponseBytes,
			HotKey:        ev.HotKey,
			NoReply:       ev.NoReply,
			Error:         ev.Error,
		})
	}

	return d
}

func renderJSON(allEvents []Event, filterQuery, searchQuery string) (string, error) {
	d := buildExportData(allEvents, filterQuery, searchQuery)
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}
	return string(b) + "\n", nil
}

func renderMarkdown(allEvents []Event, filterQuery, searchQuery string) string {
	d := buildExportData(allEvents, filterQuery, searchQuery)

	var sb strings.Builder
	sb.WriteString("# memcached-relay export\n\n")

	fmt.Fprintf(&sb, "- Captured: %d events\n", d.Captured)
	exportLine := fmt.Sprintf("- Exported: %d events", d.Exported)
	if d.Filter != "" || d.Search != "" {
		var parts []string
		if d.Filter != "" {
			parts = append(parts, "filter: "+d.Filter)
		}
		if d.Search != "" {
			parts = append(parts, "search: "+d.Search)
		}
		exportLine += " (" + strings.Join(parts, ", ") + ")"
	}
	sb.WriteString(exportLine + "\n")
	if d.Period.Start != "" {
		fmt.Fprintf(&sb, "- Period: %s — %s\n", d.Period.Start, d.Period.End)
	}

	sb.WriteString("\n## Events\n\n")
	sb.WriteString("| # | Time | Proto | Op | Key | Duration | Bytes | Error |\n")
	sb.WriteString("|---|------|-------|----|----|----------|-------|-------|\n")
	for i, ev := range d.Events {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s | %d/%d | %s |\n",
			i+1, ev.Time, ev.Protocol, ev.Op,
			escapeMarkdownPipe(ev.Key),
			formatDurationMs(ev.DurationMs),
			ev.RequestBytes, ev.ResponseBytes,
			escapeMarkdownPipe(ev.Error),
		)
	}

	return sb.String()
}

func formatDurationMs(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%.0fµs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.1fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// writeExport writes filtered events to a file and returns the path.
// dir specifies the output directory; if empty, the current directory is used.
func writeExport(allEvents []Event, filterQuery, searchQuery string, format exportFormat, dir string) (string, error) {
	var content string
	var err error

	switch format {
	case exportJSON:
		content, err = renderJSON(allEvents, filterQuery, searchQuery)
		if err != nil {
			return "", err
		}
	case exportMarkdown:
		content = renderMarkdown(allEvents, filterQuery, searchQuery)
	}

	filename := fmt.Sprintf("memcached-relay-%s.%s",
		time.Now().Format("20060102-150405"), format.ext())
	if dir != "" {
		filename = filepath.Join(dir, filename)
	}

	if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return filename, nil
}
