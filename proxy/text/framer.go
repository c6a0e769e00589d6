// Package text relays the memcached text protocol between a client and one
// backend connection, forwarding bytes verbatim and consulting only parsed
// command fields to find request/response unit boundaries.
package text

import (
	"bufio"
	"fmt"
	"io"
	"time"

	protocoltext "github.com/halvorsen/memcached-relay/protocol/text"
)

// requestUnit is one parsed command line, plus its payload block when the
// command is a storage command.
type requestUnit struct {
	line    []byte
	cmd     protocoltext.Command
	payload []byte // data block + trailing CRLF, only for KindStorage
}

func (u requestUnit) rawBytes() int {
	return len(u.line) + len(u.payload)
}

// readRequestUnit reads one command line from r, and for storage commands
// also reads the declared-length payload block that follows it.
func readRequestUnit(r *bufio.Reader) (requestUnit, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return requestUnit{}, fmt.Errorf("text: read command line: %w", err)
	}

	cmd, err := protocoltext.ParseRequestLine(line)
	if err != nil {
		return requestUnit{}, err
	}

	unit := requestUnit{line: line, cmd: cmd}
	if cmd.Kind == protocoltext.KindStorage {
		payload := make([]byte, int(cmd.Bytes)+2) // +2 for trailing CRLF
		if _, err := io.ReadFull(r, payload); err != nil {
			return requestUnit{}, fmt.Errorf("text: read payload: %w", err)
		}
		unit.payload = payload
	}
	return unit, nil
}

func writeRequestUnit(w io.Writer, unit requestUnit) error {
	if _, err := w.Write(unit.line); err != nil {
		return fmt.Errorf("text: write command line: %w", err)
	}
	if len(unit.payload) > 0 {
		if _, err := w.Write(unit.payload); err != nil {
			return fmt.Errorf("text: write payload: %w", err)
		}
	}
	return nil
}

// responseUnit is the backend's reply to a requestUnit: either a single
// status line, or for retrieval commands a run of VALUE blocks terminated
// by the END line.
type responseUnit struct {
	lines [][]byte
	bytes int
}

// readResponseUnit reads the backend's response to cmd. Retrieval commands
// read VALUE/data blocks until the END line; every other command family
// reads exactly one status line.
func readResponseUnit(r *bufio.Reader, cmd protocoltext.Command) (responseUnit, error) {
	var unit responseUnit

	if cmd.Kind != protocoltext.KindRetrieval {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return responseUnit{}, fmt.Errorf("text: read response line: %w", err)
		}
		unit.lines = append(unit.lines, line)
		unit.bytes += len(line)
		return unit, nil
	}

	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return responseUnit{}, fmt.Errorf("text: read response line: %w", err)
		}
		unit.lines = append(unit.lines, line)
		unit.bytes += len(line)

		if string(line) == protocoltext.EndLine {
			return unit, nil
		}

		vh, err := protocoltext.ParseValueLine(line)
		if err != nil {
			return responseUnit{}, err
		}
		data := make([]byte, int(vh.Bytes)+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return responseUnit{}, fmt.Errorf("text: read value block: %w", err)
		}
		unit.lines = append(unit.lines, data)
		unit.bytes += len(data)
	}
}

func writeResponseUnit(w io.Writer, unit responseUnit) error {
	for _, line := range unit.lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("text: write response: %w", err)
		}
	}
	return nil
}

// relayCycleResult mirrors the binary framer's cycle summary for the text
// protocol's command/response shape.
type relayCycleResult struct {
	op            string
	key           string
	keyCount      int
	noReply       bool
	requestBytes  int
	responseBytes int
	duration      time.Duration
}

// relayCycle reads one command (and payload, if any) from clientR, forwards
// it to backendW, then — unless the command was sent with noreply, in which
// case the backend never sends a reply and trying to read one would wedge
// the cycle waiting on bytes that will never arrive — reads the matching
// response from backendR and forwards it to clientW.
func relayCycle(clientR *bufio.Reader, clientW io.Writer, backendR *bufio.Reader, backendW io.Writer) (relayCycleResult, error) {
	start := time.Now()

	reqUnit, err := readRequestUnit(clientR)
	if err != nil {
		return relayCycleResult{}, err
	}
	if err := writeRequestUnit(backendW, reqUnit); err != nil {
		return relayCycleResult{}, err
	}

	result := relayCycleResult{
		op:           reqUnit.cmd.Command,
		key:          reqUnit.cmd.Key,
		keyCount:     1,
		noReply:      reqUnit.cmd.NoReply,
		requestBytes: reqUnit.rawBytes(),
	}
	if reqUnit.cmd.Kind == protocoltext.KindRetrieval {
		result.key = firstOrEmpty(reqUnit.cmd.Keys)
		result.keyCount = len(reqUnit.cmd.Keys)
	}

	if reqUnit.cmd.NoReply {
		result.duration = time.Since(start)
		return result, nil
	}

	respUnit, err := readResponseUnit(backendR, reqUnit.cmd)
	if err != nil {
		return relayCycleResult{}, err
	}
	if err := writeResponseUnit(clientW, respUnit); err != nil {
		return relayCycleResult{}, err
	}

	result.responseBytes = respUnit.bytes
	result.duration = time.Since(start)
	return result, nil
}

func firstOrEmpty(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
