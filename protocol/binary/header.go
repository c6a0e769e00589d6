// Package binary decodes the memcached binary protocol's fixed 24-byte
// header. Decoding is pure and retains the original bytes: the framer
// forwards those bytes verbatim and only consults the parsed fields to
// find unit boundaries.
package binary

import (
	"encoding/binary"
	"fmt"
)

// HeaderLen is the fixed size of a binary protocol header.
const HeaderLen = 24

// Magic byte values distinguishing request and response headers.
const (
	MagicRequest  = 0x80
	MagicResponse = 0x81
)

// NoOp is the sentinel opcode that terminates a quiet-command burst.
const NoOp = 0x0a

// QuietOps is the set of opcodes whose successful responses are suppressed,
// allowing a client (or server) to pipeline many of them before an explicit
// NoOp flushes the burst.
var QuietOps = map[byte]bool{
	0x09: true, 0x0d: true, 0x11: true, 0x12: true, 0x13: true,
	0x14: true, 0x15: true, 0x16: true, 0x17: true, 0x18: true,
	0x19: true, 0x1a: true, 0x1e: true, 0x32: true, 0x34: true,
	0x36: true, 0x38: true, 0x3a: true, 0x3c: true,
}

// IsQuiet reports whether opcode is a quiet variant per QuietOps.
func IsQuiet(opcode byte) bool {
	return QuietOps[opcode]
}

// OpName returns a short mnemonic for a known opcode, or a hex fallback.
func OpName(opcode byte) string {
	if name, ok := opcodeNames[opcode]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", opcode)
}

var opcodeNames = map[byte]string{
	0x00: "GET", 0x01: "SET", 0x02: "ADD", 0x03: "REPLACE", 0x04: "DELETE",
	0x05: "INCREMENT", 0x06: "DECREMENT", 0x07: "QUIT", 0x08: "FLUSH",
	0x09: "GETQ", 0x0a: "NOOP", 0x0b: "VERSION", 0x0c: "GETK", 0x0d: "GETKQ",
	0x0e: "APPEND", 0x0f: "PREPEND", 0x10: "STAT", 0x11: "SETQ", 0x12: "ADDQ",
	0x13: "REPLACEQ", 0x14: "DELETEQ", 0x15: "INCREMENTQ", 0x16: "DECREMENTQ",
	0x17: "QUITQ", 0x18: "FLUSHQ", 0x19: "APPENDQ", 0x1a: "PREPENDQ",
	0x1c: "TOUCH", 0x1d: "GAT", 0x1e: "GATQ",
}

// RequestHeader is the decoded, immutable form of a 24-byte binary protocol
// request header. Raw carries the exact bytes it was decoded from.
type RequestHeader struct {
	Raw             [HeaderLen]byte
	Magic           byte
	Opcode          byte
	KeyLength       uint16
	ExtraLength     byte
	DataType        byte
	VBucketID       uint16
	TotalBodyLength uint32
	Opaque          uint32
	CAS             uint64
}

// ResponseHeader is the decoded, immutable form of a 24-byte binary protocol
// response header. Its layout matches RequestHeader except offset 6, which
// carries Status instead of VBucketID.
type ResponseHeader struct {
	Raw             [HeaderLen]byte
	Magic           byte
	Opcode          byte
	KeyLength       uint16
	ExtraLength     byte
	DataType        byte
	Status          uint16
	TotalBodyLength uint32
	Opaque          uint32
	CAS             uint64
}

// MalformedHeaderError reports a header that does not conform to the fixed
// 24-byte layout.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("binary: malformed header: %s", e.Reason)
}

// DecodeRequest unpacks a 24-byte request header. It does not validate
// Magic or Opcode beyond what callers need (the framer only consults
// Opcode and TotalBodyLength); callers that want to validate Magic
// defensively may still forward the raw bytes unchanged afterward.
func DecodeRequest(buf []byte) (RequestHeader, error) {
	if len(buf) != HeaderLen {
		return RequestHeader{}, &MalformedHeaderError{
			Reason: fmt.Sprintf("want %d bytes, got %d", HeaderLen, len(buf)),
		}
	}
	var h RequestHeader
	copy(h.Raw[:], buf)
	h.Magic = buf[0]
	h.Opcode = buf[1]
	h.KeyLength = binary.BigEndian.Uint16(buf[2:4])
	h.ExtraLength = buf[4]
	h.DataType = buf[5]
	h.VBucketID = binary.BigEndian.Uint16(buf[6:8])
	h.TotalBodyLength = binary.BigEndian.Uint32(buf[8:12])
	h.Opaque = binary.BigEndian.Uint32(buf[12:16])
	h.CAS = binary.BigEndian.Uint64(buf[16:24])
	return h, nil
}

// Key extracts the key bytes from a request body, given the header that
// describes it. The key follows the extras and precedes the value, per the
// fixed extras-key-value body layout. It returns nil if the body is too
// short to contain the declared key (a malformed/truncated unit).
func (h RequestHeader) Key(body []byte) []byte {
	start := int(h.ExtraLength)
	end := start + int(h.KeyLength)
	if end > len(body) || start < 0 {
		return nil
	}
	return body[start:end]
}

// DecodeResponse unpacks a 24-byte response header.
func DecodeResponse(buf []byte) (ResponseHeader, error) {
	if len(buf) != HeaderLen {
		return ResponseHeader{}, &MalformedHeaderError{
			Reason: fmt.Sprintf("want %d bytes, got %d", HeaderLen, len(buf)),
		}
	}
	var h ResponseHeader
	copy(h.Raw[:], buf)
	h.Magic = buf[0]
	h.Opcode = buf[1]
	h.KeyLength = binary.BigEndian.Uint16(buf[2:4])
	h.ExtraLength = buf[4]
	h.DataType = buf[5]
	h.Status = binary.BigEndian.Uint16(buf[6:8])
	h.TotalBodyLength = binary.BigEndian.Uint32(buf[8:12])
	h.Opaque = binary.BigEndian.Uint32(buf[12:16])
	h.CAS = binary.BigEndian.Uint64(buf[16:24])
	return h, nil
}
