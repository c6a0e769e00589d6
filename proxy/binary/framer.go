// Package binary relays the memcached binary protocol between a client and
// one backend connection, forwarding bytes verbatim and consulting only
// decoded header fields to find request/response unit boundaries.
package binary

import (
	"fmt"
	"io"
	"time"

	protocolbinary "github.com/halvorsen/memcached-relay/protocol/binary"
)

// frame is one decoded 24-byte header plus its body, with the header's raw
// bytes preserved so the unit can be forwarded byte-exact.
type frame struct {
	header protocolbinary.RequestHeader
	body   []byte
}

// requestUnit is zero or more quiet-opcode request frames followed by one
// terminal (non-quiet) frame that closes the burst, per the protocol's
// quiet/pipelining convention: a client may send any number of quiet
// commands (whose successful completion produces no response) before a
// non-quiet command — typically an explicit NO-OP — that flushes the burst
// and receives the matching response.
type requestUnit struct {
	frames   []frame
	rawBytes int
}

// terminal returns the unit's closing frame.
func (u requestUnit) terminal() frame {
	return u.frames[len(u.frames)-1]
}

func (u requestUnit) quiet() bool {
	return len(u.frames) > 1
}

// readRequestUnit reads one 24-byte header at a time from r, reads its
// body, and keeps folding frames into the unit as long as each one's
// opcode is a quiet variant. The first non-quiet frame closes the unit.
func readRequestUnit(r io.Reader) (requestUnit, error) {
	var unit requestUnit
	for {
		f, err := readFrame(r)
		if err != nil {
			return requestUnit{}, err
		}
		unit.frames = append(unit.frames, f)
		unit.rawBytes += protocolbinary.HeaderLen + len(f.body)

		if !protocolbinary.IsQuiet(f.header.Opcode) {
			return unit, nil
		}
	}
}

func readFrame(r io.Reader) (frame, error) {
	var hdr [protocolbinary.HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, fmt.Errorf("binary: read header: %w", err)
	}
	h, err := protocolbinary.DecodeRequest(hdr[:])
	if err != nil {
		return frame{}, err
	}
	body := make([]byte, h.TotalBodyLength)
	if len(body) > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return frame{}, fmt.Errorf("binary: read body: %w", err)
		}
	}
	return frame{header: h, body: body}, nil
}

// responseFrame mirrors frame for decoded response headers.
type responseFrame struct {
	header protocolbinary.ResponseHeader
	body   []byte
}

// responseUnit is the set of response frames produced by a requestUnit: any
// responses the backend sends for quiet commands in the burst, followed by
// the response to the unit's terminal (non-quiet) frame.
type responseUnit struct {
	frames   []responseFrame
	rawBytes int
}

// readResponseUnit reads response frames from r, forwarding is left to the
// caller; it keeps folding frames into the unit as long as each one's
// opcode is a quiet variant, and the first non-quiet frame (the response to
// the burst's closing command) closes the unit.
func readResponseUnit(r io.Reader) (responseUnit, error) {
	var unit responseUnit
	for {
		f, err := readResponseFrame(r)
		if err != nil {
			return responseUnit{}, err
		}
		unit.frames = append(unit.frames, f)
		unit.rawBytes += protocolbinary.HeaderLen + len(f.body)

		if !protocolbinary.IsQuiet(f.header.Opcode) {
			return unit, nil
		}
	}
}

func readResponseFrame(r io.Reader) (responseFrame, error) {
	var hdr [protocolbinary.HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return responseFrame{}, fmt.Errorf("binary: read response header: %w", err)
	}
	h, err := protocolbinary.DecodeResponse(hdr[:])
	if err != nil {
		return responseFrame{}, err
	}
	body := make([]byte, h.TotalBodyLength)
	if len(body) > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return responseFrame{}, fmt.Errorf("binary: read response body: %w", err)
		}
	}
	return responseFrame{header: h, body: body}, nil
}

// writeRequestUnit writes every frame in a requestUnit to w verbatim, in order.
func writeRequestUnit(w io.Writer, unit requestUnit) error {
	for _, f := range unit.frames {
		if err := writeFrame(w, f); err != nil {
			return err
		}
	}
	return nil
}

func writeFrame(w io.Writer, f frame) error {
	if _, err := w.Write(f.header.Raw[:]); err != nil {
		return fmt.Errorf("binary: write header: %w", err)
	}
	if len(f.body) > 0 {
		if _, err := w.Write(f.body); err != nil {
			return fmt.Errorf("binary: write body: %w", err)
		}
	}
	return nil
}

func writeResponseUnit(w io.Writer, unit responseUnit) error {
	for _, f := range unit.frames {
		if _, err := w.Write(f.header.Raw[:]); err != nil {
			return fmt.Errorf("binary: write response header: %w", err)
		}
		if len(f.body) > 0 {
			if _, err := w.Write(f.body); err != nil {
				return fmt.Errorf("binary: write response body: %w", err)
			}
		}
	}
	return nil
}

// relayCycleResult describes one completed request/response cycle, enough
// to populate a proxy.Event without a second, interpretive pass over the
// payload bytes.
type relayCycleResult struct {
	op            string
	key           string
	quiet         bool
	burstSize     int
	requestBytes  int
	responseBytes int
	duration      time.Duration
}

// relayCycle reads one request unit from clientR, forwards it to backendW,
// reads the matching response unit from backendR, and forwards it to
// clientW. It returns an error wrapping io.EOF when the client closes its
// connection between cycles, which is the normal end of a session.
func relayCycle(clientR io.Reader, clientW io.Writer, backendR io.Reader, backendW io.Writer) (relayCycleResult, error) {
	start := time.Now()

	reqUnit, err := readRequestUnit(clientR)
	if err != nil {
		return relayCycleResult{}, err
	}
	if err := writeRequestUnit(backendW, reqUnit); err != nil {
		return relayCycleResult{}, err
	}

	term := reqUnit.terminal()
	respUnit, err := readResponseUnit(backendR)
	if err != nil {
		return relayCycleResult{}, err
	}
	if err := writeResponseUnit(clientW, respUnit); err != nil {
		return relayCycleResult{}, err
	}

	first := reqUnit.frames[0]
	key := first.header.Key(first.body)

	return relayCycleResult{
		op:            protocolbinary.OpName(term.header.Opcode),
		key:           string(key),
		quiet:         reqUnit.quiet(),
		burstSize:     len(reqUnit.frames),
		requestBytes:  reqUnit.rawBytes,
		responseBytes: respUnit.rawBytes,
		duration:      time.Since(start),
	}, nil
}
