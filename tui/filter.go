package tui

import (
	"regexp"
	"strings"
	"time"
)

type filterKind int

const (
	filterText     filterKind = iota // plain text substring match against the key
	filterDuration                   // d>100ms, d<10ms
	filterError                      // "error" keyword
	filterOp                         // op:get, op:set, etc.
	filterHotKey                     // "hot" keyword
	filterProtocol                   // proto:binary, proto:text
)

type durationOp int

const (
	durGT durationOp = iota // >
	durLT                   // <
)

type filterCondition struct {
	kind filterKind

	// filterText
	text string

	// filterDuration
	durOp    durationOp
	durValue time.Duration

	// filterOp
	opPattern string

	// filterProtocol
	protoPattern string
}

var reDuration = regexp.MustCompile(`^d([><])(\d+(?:\.\d+)?)(us|µs|ms|s|m)$`)

func parseFilter(input string) []filterCondition {
	tokens := strings.Fields(input)
	conds := make([]filterCondition, 0, len(tokens))

	for _, tok := range tokens {
		if c, ok := parseDuration(tok); ok {
			conds = append(conds, c)
			continue
		}
		switch strings.ToLower(tok) {
		case "error":
			conds = append(conds, filterCondition{kind: filterError})
			continue
		case "hot":
			conds = append(conds, filterCondition{kind: filterHotKey})
			continue
		}
		if c, ok := parseOp(tok); ok {
			conds = append(conds, c)
			continue
		}
		if c, ok := parseProtocol(tok); ok {
			conds = append(conds, c)
			continue
		}
		// Fallback: plain text match against the key.
		conds = append(conds, filterCondition{
			kind: filterText,
			text: strings.ToLower(tok),
		})
	}
	return conds
}

func parseDuration(tok string) (filterCondition, bool) {
	m := reDuration.FindStringSubmatch(tok)
	if m == nil {
		return filterCondition{}, false
	}
	op := durGT
	if m[1] == "<" {
		op = durLT
	}
	unit := m[3]
	raw := m[2] + unitSuffix(unit)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return filterCondition{}, false
	}
	return filterCondition{
		kind:     filterDuration,
		durOp:    op,
		durValue: d,
	}, true
}

func unitSuffix(unit string) string {
	switch unit {
	case "us", "µs":
		return "us"
	case "ms":
		return "ms"
	case "s":
		return "s"
	case "m":
		return "m"
	}
	return "ms"
}

func parseOp(tok string) (filterCondition, bool) {
	lower := strings.ToLower(tok)
	if !strings.HasPrefix(lower, "op:") {
		return filterCondition{}, false
	}
	pattern := lower[3:]
	if pattern == "" {
		return filterCondition{}, false
	}
	return filterCondition{
		kind:      filterOp,
		opPattern: pattern,
	}, true
}

func parseProtocol(tok string) (filterCondition, bool) {
	lower := strings.ToLower(tok)
	if !strings.HasPrefix(lower, "proto:") {
		return filterCondition{}, false
	}
	pattern := lower[len("proto:"):]
	if pattern == "" {
		return filterCondition{}, false
	}
	return filterCondition{
		kind:         filterProtocol,
		protoPattern: pattern,
	}, true
}

func (c filterCondition) matchesEvent(ev Event) bool {
	switch c.kind {
	case filterText:
		return strings.Contains(strings.ToLower(ev.Key), c.text)
	case filterDuration:
		dur := ev.Duration()
		switch c.durOp {
		case durGT:
			return dur > c.durValue
		case durLT:
			return dur < c.durValue
		}
	case filterError:
		return ev.Error != ""
	case filterOp:
		return strings.EqualFold(ev.Op, c.opPattern)
	case filterHotKey:
		return ev.HotKey
	case filterProtocol:
		return strings.EqualFold(ev.Protocol, c.protoPattern)
	}
	return false
}

func matchAllConditions(ev Event, conds []filterCondition) bool {
	for _, c := range conds {
		if !c.matchesEvent(ev) {
			return false
		}
	}
	return true
}

func describeFilter(input string) string {
	conds := parseFilter(input)
	if len(conds) == 0 {
		return input
	}
	var parts []string
	for _, c := range conds {
		switch c.kind {
		case filterText:
			parts = append(parts, "text:"+c.text)
		case filterDuration:
			op := ">"
			if c.durOp == durLT {
				op = "<"
			}
			parts = append(parts, "d"+op+c.durValue.String())
		case filterError:
			parts = append(parts, "error")
		case filterOp:
			parts = append(parts, "op:"+c.opPattern)
		case filterHotKey:
			parts = append(parts, "hot")
		case filterProtocol:
			parts = append(parts, "proto:"+c.protoPattern)
		}
	}
	return strings.Join(parts, " ")
}

// wrapFooterItems arranges items into lines that fit within the given width.
// Each line starts with "  " and items are separated by "  ".
func wrapFooterItems(items []string, width int) string {
	if width <= 0 {
		return "  " + strings.Join(items, "  ")
	}

	const prefix = "  "
	const sep = "  "

	var lines []string
	line := prefix

	for _, item := range items {
		switch {
		case line == prefix:
			line += item
		case len(line)+len(sep)+len(item) <= width:
			line += sep + item
		default:
			lines = append(lines, line)
			line = prefix + item
		}
	}
	if line != prefix {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
