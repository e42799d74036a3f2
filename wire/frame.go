// File: wire/frame.go
// Package wire implements the fixed binary header shared by the send and
// handshake paths: header_size(u16 LE) | type(u8) | reserved(u8) |
// data_size(u64 LE), followed by exactly data_size payload bytes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on protocol/frame_codec.go's header-writer/header-reader split
// and its payload-size ceiling, adapted from WebSocket framing to the
// fixed 12-byte header this protocol actually uses.

package wire

import (
	"encoding/binary"
	"fmt"
)

// Type identifies the content that follows a Header.
type Type uint8

const (
	// TypeProtocolHandshake marks the handshake exchange performed before
	// any RegularPayload frame is sent on a session.
	TypeProtocolHandshake Type = 0x00
	// TypeRegularPayload marks a published payload frame.
	TypeRegularPayload Type = 0x01
)

// HeaderSize is the wire size of Header as emitted by Encode.
const HeaderSize = 2 + 1 + 1 + 8

// MaxPayloadSize bounds data_size. publisher.Send rejects a payload larger
// than this with an api.KindFrameTooLarge error; Decode does not check it.
const MaxPayloadSize = 64 * 1024 * 1024 // 64 MiB

// Header is the fixed frame header. HeaderSize field (on the wire) is
// authoritative: a reader must skip exactly that many bytes regardless of
// how many fields it recognizes, so future header fields can be added
// without breaking older readers.
type Header struct {
	HeaderSize uint16
	Type       Type
	Reserved   uint8
	DataSize   uint64
}

// Encode writes h into dst[:HeaderSize]. dst must have length >= HeaderSize.
func Encode(dst []byte, h Header) {
	binary.LittleEndian.PutUint16(dst[0:2], h.HeaderSize)
	dst[2] = byte(h.Type)
	dst[3] = h.Reserved
	binary.LittleEndian.PutUint64(dst[4:12], h.DataSize)
}

// Decode parses a Header from the front of raw. It validates that the
// wire's own declared header_size is at least HeaderSize (the set of
// fields this reader knows about); any extra trailing header bytes are
// reported via the returned skip count so the caller can discard them
// before reading the payload.
//
// Decode does not itself enforce MaxPayloadSize; callers that are about to
// allocate a payload buffer must do so explicitly.
func Decode(raw []byte) (h Header, skip int, err error) {
	if len(raw) < HeaderSize {
		return Header{}, 0, fmt.Errorf("wire: short header: need %d bytes, have %d", HeaderSize, len(raw))
	}
	h.HeaderSize = binary.LittleEndian.Uint16(raw[0:2])
	h.Type = Type(raw[2])
	h.Reserved = raw[3]
	h.DataSize = binary.LittleEndian.Uint64(raw[4:12])

	if h.HeaderSize < HeaderSize {
		return Header{}, 0, fmt.Errorf("wire: header_size %d smaller than known header fields (%d)", h.HeaderSize, HeaderSize)
	}
	return h, int(h.HeaderSize), nil
}
