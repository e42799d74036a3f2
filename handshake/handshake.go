// Package handshake implements the minimal liveness exchange a
// PublisherSession performs with its peer before it is considered Running.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The original tcp_pubsub sources retrieved for this port do not include
// publisher_session.cpp, so the exact on-wire handshake is this port's own
// design rather than a translation: the server writes one empty
// TypeProtocolHandshake frame and then blocks reading a single ACK byte from
// the client. No deadline is applied, matching the "no timeouts at this
// layer" stance the rest of the protocol takes — a peer that never
// acknowledges simply leaves its session stuck in Handshaking until the
// publisher is cancelled or the connection is closed out from under it.
package handshake

import (
	"io"

	"github.com/tsingakbar/tcp-pubsub/api"
	"github.com/tsingakbar/tcp-pubsub/wire"
)

// AckByte is the single byte a client writes back to acknowledge the
// handshake frame. Its value carries no meaning beyond "present".
const AckByte = 0x06

// Perform writes the handshake frame to w and then blocks reading the ACK
// byte from r. It returns a *api.Error with KindHandshakeFailure on any I/O
// or protocol violation.
func Perform(r io.Reader, w io.Writer) error {
	hdr := make([]byte, wire.HeaderSize)
	wire.Encode(hdr, wire.Header{
		HeaderSize: wire.HeaderSize,
		Type:       wire.TypeProtocolHandshake,
		DataSize:   0,
	})
	if _, err := w.Write(hdr); err != nil {
		return api.Wrap(api.KindHandshakeFailure, "write handshake frame", err)
	}

	ack := make([]byte, 1)
	if _, err := io.ReadFull(r, ack); err != nil {
		return api.Wrap(api.KindHandshakeFailure, "read handshake ack", err)
	}
	if ack[0] != AckByte {
		return api.NewError(api.KindHandshakeFailure, "unexpected handshake ack byte").
			WithContext("got", ack[0]).WithContext("want", AckByte)
	}
	return nil
}

// Ack writes the client-side acknowledgement after reading and discarding
// one handshake frame from r. Intended for test peers and for any future
// subscriber-side implementation exercising this protocol.
func Ack(r io.Reader, w io.Writer) error {
	hdr := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return api.Wrap(api.KindHandshakeFailure, "read handshake frame", err)
	}
	h, skip, err := wire.Decode(hdr)
	if err != nil {
		return api.Wrap(api.KindHandshakeFailure, "decode handshake frame", err)
	}
	if extra := skip - wire.HeaderSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return api.Wrap(api.KindHandshakeFailure, "discard extra handshake header bytes", err)
		}
	}
	if h.DataSize > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.DataSize)); err != nil {
			return api.Wrap(api.KindHandshakeFailure, "discard handshake payload", err)
		}
	}
	if h.Type != wire.TypeProtocolHandshake {
		return api.NewError(api.KindHandshakeFailure, "unexpected frame type before ack")
	}
	if _, err := w.Write([]byte{AckByte}); err != nil {
		return api.Wrap(api.KindHandshakeFailure, "write handshake ack", err)
	}
	return nil
}
