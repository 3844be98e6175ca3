package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writer accumulates a PDU body in the mandatory-field order the SMPP spec
// defines for each command, before the fixed header is prepended.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) uint8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) bytes(v []byte)  { w.buf.Write(v) }

func (w *writer) uint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// cstring writes v followed by a NUL terminator, the SMPP "C-octet string"
// convention used for every mandatory string field.
func (w *writer) cstring(v string) {
	w.buf.WriteString(v)
	w.buf.WriteByte(0)
}

// tlv writes an optional parameter: 2-byte tag, 2-byte length, value.
func (w *writer) tlv(tag uint16, value []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint16(tmp[0:2], tag)
	binary.BigEndian.PutUint16(tmp[2:4], uint16(len(value)))
	w.buf.Write(tmp[:])
	w.buf.Write(value)
}

// reader consumes a PDU body in the same mandatory-field order writer
// produces it.
type reader struct {
	buf []byte
	pos int
}

func newReader(body []byte) *reader {
	return &reader{buf: body}
}

func (r *reader) uint8() (uint8, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("smpp/pdu: unexpected end of body reading uint8")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("smpp/pdu: unexpected end of body reading uint32")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// cstring reads bytes up to and including a NUL terminator and returns the
// string without it.
func (r *reader) cstring() (string, error) {
	start := r.pos
	for r.pos < len(r.buf) {
		if r.buf[r.pos] == 0 {
			s := string(r.buf[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", fmt.Errorf("smpp/pdu: unterminated c-octet string")
}

// bytes reads exactly n raw bytes.
func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("smpp/pdu: unexpected end of body reading %d bytes", n)
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// remaining returns every byte not yet consumed, the region TLVs occupy.
func (r *reader) remaining() []byte {
	return r.buf[r.pos:]
}

// TLV is a single decoded optional parameter.
type TLV struct {
	Tag   uint16
	Value []byte
}

// DecodeTLVs parses a sequence of tag/length/value optional parameters
// from the tail of a PDU body.
func DecodeTLVs(data []byte) ([]TLV, error) {
	var out []TLV
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("smpp/pdu: truncated TLV header")
		}
		tag := binary.BigEndian.Uint16(data[0:2])
		length := binary.BigEndian.Uint16(data[2:4])
		data = data[4:]
		if int(length) > len(data) {
			return nil, fmt.Errorf("smpp/pdu: TLV length %d exceeds remaining body", length)
		}
		out = append(out, TLV{Tag: tag, Value: data[:length]})
		data = data[length:]
	}
	return out, nil
}

// Well-known optional parameter tags used by DLR/UDH/alt-charset handling.
const (
	TagUserMessageReference uint16 = 0x0204
	TagSourcePort           uint16 = 0x020A
	TagDestinationPort      uint16 = 0x020B
	TagSARMsgRefNum         uint16 = 0x020C
	TagSARTotalSegments     uint16 = 0x020E
	TagSARSegmentSeqnum     uint16 = 0x020F
	TagMessagePayload       uint16 = 0x0424
	TagReceiptedMessageID   uint16 = 0x001E
	TagMessageState         uint16 = 0x0427
)
