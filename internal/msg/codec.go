package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Pack serializes m into the self-describing binary wire format: a version
// byte, the variant tag as a big-endian int32, the envelope's id as a
// length-prefixed octet string and its time as a big-endian int64 (Unix
// nanoseconds), then the variant body in fixed field order. Every body
// field is either a big-endian int32 or a big-endian-length-prefixed octet
// string, so Unpack never needs to guess a field's width from its content.
func Pack(m *Msg) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(wireVersion)
	writeInt32(&buf, int32(m.Type))
	writeString(&buf, m.ID)
	writeInt64(&buf, m.Time.UnixNano())

	switch m.Type {
	case TypeSMS:
		s := m.SMS
		if s == nil {
			return nil, fmt.Errorf("msg: pack: type sms has nil body")
		}
		writeString(&buf, s.Sender)
		writeString(&buf, s.Receiver)
		writeBytes(&buf, s.MsgData)
		writeBytes(&buf, s.UDHData)
		writeInt32(&buf, int32(s.Coding))
		writeInt32(&buf, int32(s.MClass))
		writeInt32(&buf, s.MWI)
		writeInt32(&buf, s.AltDCS)
		writeInt32(&buf, s.PID)
		writeInt32(&buf, s.DLRMask)
		writeString(&buf, s.DLRURL)
		writeInt32(&buf, s.Validity)
		writeInt32(&buf, s.Deferred)
		writeString(&buf, s.SMSCID)
		writeString(&buf, s.Service)
		writeString(&buf, s.BInfo)
		writeInt32(&buf, s.RPI)
		writeString(&buf, s.Charset)
		writeInt32(&buf, int32(s.SMSType))
		writeString(&buf, s.DLRReplyText)

	case TypeDLR:
		d := m.DLR
		if d == nil {
			return nil, fmt.Errorf("msg: pack: type dlr-report has nil body")
		}
		writeString(&buf, d.SMSCID)
		writeString(&buf, d.SMSCMessageID)
		writeString(&buf, d.Destination)
		writeInt32(&buf, int32(d.Status))

	case TypeHeartbeat:
		h := m.Heartbeat
		if h == nil {
			return nil, fmt.Errorf("msg: pack: type heartbeat has nil body")
		}
		writeInt32(&buf, h.Load)

	case TypeDatagram:
		g := m.Datagram
		if g == nil {
			return nil, fmt.Errorf("msg: pack: type wdp-datagram has nil body")
		}
		writeString(&buf, g.SourceAddr)
		writeInt32(&buf, g.SourcePort)
		writeString(&buf, g.DestinationAddr)
		writeInt32(&buf, g.DestinationPort)
		writeBytes(&buf, g.UserData)

	case TypeAck:
		a := m.Ack
		if a == nil {
			return nil, fmt.Errorf("msg: pack: type ack has nil body")
		}
		writeString(&buf, a.RefID)
		if a.NAck {
			writeInt32(&buf, 1)
		} else {
			writeInt32(&buf, 0)
		}

	default:
		return nil, fmt.Errorf("msg: pack: unknown type %d", m.Type)
	}

	return buf.Bytes(), nil
}

// Unpack deserializes a wire-format buffer produced by Pack. It is the
// exact left inverse of Pack: Unpack(Pack(m)) reproduces every field of m.
func Unpack(data []byte) (*Msg, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("msg: unpack: read version: %w", err)
	}
	if version != wireVersion {
		return nil, fmt.Errorf("msg: unpack: unsupported wire version %d", version)
	}

	typ, err := readInt32(r)
	if err != nil {
		return nil, fmt.Errorf("msg: unpack: read type: %w", err)
	}
	id, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("msg: unpack: read id: %w", err)
	}
	nanos, err := readInt64(r)
	if err != nil {
		return nil, fmt.Errorf("msg: unpack: read time: %w", err)
	}

	m := &Msg{Type: Type(typ), ID: id, Time: time.Unix(0, nanos)}

	switch m.Type {
	case TypeSMS:
		s := &SMS{}
		var err error
		if s.Sender, err = readString(r); err != nil {
			return nil, wrapField("sender", err)
		}
		if s.Receiver, err = readString(r); err != nil {
			return nil, wrapField("receiver", err)
		}
		if s.MsgData, err = readBytes(r); err != nil {
			return nil, wrapField("msgdata", err)
		}
		if s.UDHData, err = readBytes(r); err != nil {
			return nil, wrapField("udhdata", err)
		}
		var v int32
		if v, err = readInt32(r); err != nil {
			return nil, wrapField("coding", err)
		}
		s.Coding = Coding(v)
		if v, err = readInt32(r); err != nil {
			return nil, wrapField("mclass", err)
		}
		s.MClass = MClass(v)
		if s.MWI, err = readInt32(r); err != nil {
			return nil, wrapField("mwi", err)
		}
		if s.AltDCS, err = readInt32(r); err != nil {
			return nil, wrapField("altdcs", err)
		}
		if s.PID, err = readInt32(r); err != nil {
			return nil, wrapField("pid", err)
		}
		if s.DLRMask, err = readInt32(r); err != nil {
			return nil, wrapField("dlrmask", err)
		}
		if s.DLRURL, err = readString(r); err != nil {
			return nil, wrapField("dlrurl", err)
		}
		if s.Validity, err = readInt32(r); err != nil {
			return nil, wrapField("validity", err)
		}
		if s.Deferred, err = readInt32(r); err != nil {
			return nil, wrapField("deferred", err)
		}
		if s.SMSCID, err = readString(r); err != nil {
			return nil, wrapField("smscid", err)
		}
		if s.Service, err = readString(r); err != nil {
			return nil, wrapField("service", err)
		}
		if s.BInfo, err = readString(r); err != nil {
			return nil, wrapField("binfo", err)
		}
		if s.RPI, err = readInt32(r); err != nil {
			return nil, wrapField("rpi", err)
		}
		if s.Charset, err = readString(r); err != nil {
			return nil, wrapField("charset", err)
		}
		if v, err = readInt32(r); err != nil {
			return nil, wrapField("smstype", err)
		}
		s.SMSType = SMSType(v)
		if s.DLRReplyText, err = readString(r); err != nil {
			return nil, wrapField("dlrreplytext", err)
		}
		m.SMS = s

	case TypeDLR:
		d := &DLR{}
		var err error
		if d.SMSCID, err = readString(r); err != nil {
			return nil, wrapField("smscid", err)
		}
		if d.SMSCMessageID, err = readString(r); err != nil {
			return nil, wrapField("smscmessageid", err)
		}
		if d.Destination, err = readString(r); err != nil {
			return nil, wrapField("destination", err)
		}
		var v int32
		if v, err = readInt32(r); err != nil {
			return nil, wrapField("status", err)
		}
		d.Status = DLRStatus(v)
		m.DLR = d

	case TypeHeartbeat:
		h := &Heartbeat{}
		var err error
		if h.Load, err = readInt32(r); err != nil {
			return nil, wrapField("load", err)
		}
		m.Heartbeat = h

	case TypeDatagram:
		g := &Datagram{}
		var err error
		if g.SourceAddr, err = readString(r); err != nil {
			return nil, wrapField("sourceaddr", err)
		}
		if g.SourcePort, err = readInt32(r); err != nil {
			return nil, wrapField("sourceport", err)
		}
		if g.DestinationAddr, err = readString(r); err != nil {
			return nil, wrapField("destinationaddr", err)
		}
		if g.DestinationPort, err = readInt32(r); err != nil {
			return nil, wrapField("destinationport", err)
		}
		if g.UserData, err = readBytes(r); err != nil {
			return nil, wrapField("userdata", err)
		}
		m.Datagram = g

	case TypeAck:
		a := &Ack{}
		var err error
		if a.RefID, err = readString(r); err != nil {
			return nil, wrapField("refid", err)
		}
		var v int32
		if v, err = readInt32(r); err != nil {
			return nil, wrapField("nack", err)
		}
		a.NAck = v != 0
		m.Ack = a

	default:
		return nil, fmt.Errorf("msg: unpack: unknown type %d", m.Type)
	}

	return m, nil
}

const wireVersion byte = 1

func wrapField(name string, err error) error {
	return fmt.Errorf("msg: unpack: read %s: %w", name, err)
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, v []byte) {
	writeInt32(buf, int32(len(v)))
	buf.Write(v)
}

func writeString(buf *bytes.Buffer, v string) {
	writeBytes(buf, []byte(v))
}

func readInt32(r io.Reader) (int32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

func readInt64(r io.Reader) (int64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
