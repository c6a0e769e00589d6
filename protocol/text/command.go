// Package text parses one CRLF-terminated memcached text protocol command
// line into a tagged record discriminated by its verb.
package text

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the variant held by a Command.
type Kind int

const (
	// KindStorage covers set, cas, add, replace, append, prepend.
	KindStorage Kind = iota
	// KindRetrieval covers get, gets.
	KindRetrieval
	// KindDeleteTouch covers delete, touch.
	KindDeleteTouch
	// KindIncrDecr covers incr, decr.
	KindIncrDecr
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindRetrieval:
		return "retrieval"
	case KindDeleteTouch:
		return "delete_touch"
	case KindIncrDecr:
		return "incr_decr"
	}
	return "unknown"
}

var storageVerbs = map[string]bool{
	"set": true, "cas": true, "add": true, "replace": true,
	"append": true, "prepend": true,
}

var retrievalVerbs = map[string]bool{"get": true, "gets": true}

var deleteTouchVerbs = map[string]bool{"delete": true, "touch": true}

var incrDecrVerbs = map[string]bool{"incr": true, "decr": true}

// Command is a tagged union over the four recognized text-protocol command
// families. Only the fields relevant to Kind are populated.
type Command struct {
	Raw     []byte // the full line, including trailing CRLF
	Command string // the verb, e.g. "set", "get", "delete"
	Kind    Kind

	// KindStorage (Key and NoReply are also set for KindDeleteTouch and
	// KindIncrDecr)
	Key     string
	Bytes   uint32
	NoReply bool

	// KindRetrieval
	Keys []string

	// KindIncrDecr
	Value uint64
}

// UnknownCommandError reports a verb that is not in any recognized family.
type UnknownCommandError struct {
	Verb string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("text: unknown command %q", e.Verb)
}

// MalformedHeaderError reports a header line missing or with a non-numeric
// positional token the command's family requires.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("text: malformed header: %s", e.Reason)
}

// ParseRequestLine parses one header line (including its trailing CRLF)
// into a Command. It strips trailing whitespace, splits on single spaces,
// and dispatches on the first token.
func ParseRequestLine(line []byte) (Command, error) {
	trimmed := strings.TrimRight(string(line), " \t\r\n")
	tokens := strings.Split(trimmed, " ")
	if len(tokens) == 0 || tokens[0] == "" {
		return Command{}, &MalformedHeaderError{Reason: "empty command line"}
	}

	verb := tokens[0]
	noreply := len(tokens) > 0 && tokens[len(tokens)-1] == "noreply"

	cmd := Command{Raw: line, Command: verb}

	switch {
	case storageVerbs[verb]:
		cmd.Kind = KindStorage
		if len(tokens) < 5 {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s requires at least 5 tokens, got %d", verb, len(tokens)),
			}
		}
		cmd.Key = tokens[1]
		bytes, err := strconv.ParseUint(tokens[4], 10, 32)
		if err != nil {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s: non-numeric bytes token %q", verb, tokens[4]),
			}
		}
		cmd.Bytes = uint32(bytes)
		cmd.NoReply = noreply

	case retrievalVerbs[verb]:
		cmd.Kind = KindRetrieval
		if len(tokens) < 2 {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s requires at least one key", verb),
			}
		}
		cmd.Keys = tokens[1:]

	case deleteTouchVerbs[verb]:
		cmd.Kind = KindDeleteTouch
		if len(tokens) < 2 {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s requires a key", verb),
			}
		}
		cmd.Key = tokens[1]
		cmd.NoReply = noreply

	case incrDecrVerbs[verb]:
		cmd.Kind = KindIncrDecr
		if len(tokens) < 3 {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s requires a key and a value", verb),
			}
		}
		cmd.Key = tokens[1]
		value, err := strconv.ParseUint(tokens[2], 10, 64)
		if err != nil {
			return Command{}, &MalformedHeaderError{
				Reason: fmt.Sprintf("%s: non-numeric value token %q", verb, tokens[2]),
			}
		}
		cmd.Value = value
		cmd.NoReply = noreply

	default:
		return Command{}, &UnknownCommandError{Verb: verb}
	}

	return cmd, nil
}

// ValueHeader is a parsed "VALUE <key> <flags> <bytes>" response line.
type ValueHeader struct {
	Key   string
	Flags uint32
	Bytes uint32
}

// EndLine is the literal terminator of a multi-VALUE retrieval response.
const EndLine = "END\r\n"

// ParseValueLine parses a retrieval response's "VALUE ..." header line.
// bytes is the 4th whitespace-separated token.
func ParseValueLine(line []byte) (ValueHeader, error) {
	trimmed := strings.TrimRight(string(line), "\r\n")
	tokens := strings.Split(trimmed, " ")
	if len(tokens) < 4 || tokens[0] != "VALUE" {
		return ValueHeader{}, &MalformedHeaderError{Reason: fmt.Sprintf("malformed VALUE line %q", trimmed)}
	}
	flags, err := strconv.ParseUint(tokens[2], 10, 32)
	if err != nil {
		return ValueHeader{}, &MalformedHeaderError{Reason: fmt.Sprintf("VALUE: non-numeric flags token %q", tokens[2])}
	}
	size, err := strconv.ParseUint(tokens[3], 10, 32)
	if err != nil {
		return ValueHeader{}, &MalformedHeaderError{Reason: fmt.Sprintf("VALUE: non-numeric bytes token %q", tokens[3])}
	}
	return ValueHeader{Key: tokens[1], Flags: uint32(flags), Bytes: uint32(size)}, nil
}
