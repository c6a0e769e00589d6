// Package highlight renders captured commands and stats output with ANSI
// terminal styling for the tap TUI.
package highlight

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
)

func init() {
	lexer = lexers.Fallback
	formatter = formatters.Get("terminal256")
	style = styles.Get("monokai")
}

var (
	opStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
)

// Command returns a rendered "op key" pair with the opcode/verb bolded and
// the key tinted, so a stream of tapped commands reads clearly in a
// terminal.
func Command(op, key string) string {
	if op == "" {
		return key
	}
	if key == "" {
		return opStyle.Render(op)
	}
	return opStyle.Render(op) + " " + keyStyle.Render(key)
}

// Raw returns s with generic ANSI terminal syntax highlighting applied via
// chroma's fallback lexer, for payload previews that aren't a recognized
// language. On error or empty input, the original string is returned
// unchanged.
func Raw(s string) string {
	if s == "" {
		return s
	}

	iterator, err := lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}

	return strings.TrimRight(buf.String(), "\n")
}

var (
	statLineRe = regexp.MustCompile(`(?m)^STAT\s+(\S+)\s+(.+)$`)

	nameStyle  = lipgloss.NewStyle().Bold(true)
	valueStyle = lipgloss.NewStyle().Faint(true)
)

// Stats returns the backend's "stats" command response with ANSI
// highlighting applied: each STAT line's name is bold and its value is
// dim, so an operator can scan the names down the left column.
func Stats(s string) string {
	if s == "" {
		return s
	}

	return statLineRe.ReplaceAllStringFunc(s, func(line string) string {
		m := statLineRe.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		return "STAT " + nameStyle.Render(m[1]) + " " + valueStyle.Render(m[2])
	})
}
