// Package smsbox implements the bearerbox-side connection handler for
// smsbox clients: the length-prefixed Msg framing over TCP, per-connection
// heartbeat/load tracking and IP admission, and an in-process "thread
// mode" that exchanges the same Msg values without any wire encoding.
package smsbox

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// MaxFrameLen bounds a single framed message, guarding against a corrupt
// or hostile length prefix driving an unbounded allocation.
const MaxFrameLen = 1 << 20

// WriteFramed packs m with the internal/msg codec and writes it as a
// 4-byte big-endian length prefix followed by the packed bytes.
func WriteFramed(w io.Writer, m *msg.Msg) error {
	data, err := msg.Pack(m)
	if err != nil {
		return fmt.Errorf("smsbox: pack: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("smsbox: write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("smsbox: write frame body: %w", err)
	}
	return nil
}

// ReadFramed reads one length-prefixed Msg from r.
func ReadFramed(r io.Reader) (*msg.Msg, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameLen {
		return nil, fmt.Errorf("smsbox: frame length %d exceeds max %d", n, MaxFrameLen)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("smsbox: read frame body: %w", err)
	}
	return msg.Unpack(data)
}
