// Package pdu implements the SMPP v3.4 protocol data unit wire codec: the
// fixed 16-byte header, the null-terminated C-octet-string and fixed-width
// mandatory field conventions, optional TLV parameters, and the concrete
// PDU bodies bearerbox's SMPP driver exchanges with an SMSC.
package pdu

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ID identifies a PDU's command.
type ID uint32

// Status is the SMPP command_status result code.
type Status uint32

const (
	GenericNackID         ID = 0x80000000
	BindReceiverID        ID = 0x00000001
	BindReceiverRespID    ID = 0x80000001
	BindTransmitterID     ID = 0x00000002
	BindTransmitterRespID ID = 0x80000002
	QuerySMID             ID = 0x00000003
	QuerySMRespID         ID = 0x80000003
	SubmitSMID            ID = 0x00000004
	SubmitSMRespID        ID = 0x80000004
	DeliverSMID           ID = 0x00000005
	DeliverSMRespID       ID = 0x80000005
	UnbindID              ID = 0x00000006
	UnbindRespID          ID = 0x80000006
	ReplaceSMID           ID = 0x00000007
	ReplaceSMRespID       ID = 0x80000007
	CancelSMID            ID = 0x00000008
	CancelSMRespID        ID = 0x80000008
	BindTransceiverID     ID = 0x00000009
	BindTransceiverRespID ID = 0x80000009
	OutbindID             ID = 0x0000000B
	EnquireLinkID         ID = 0x00000015
	EnquireLinkRespID     ID = 0x80000015
	SubmitMultiID         ID = 0x00000021
	SubmitMultiRespID     ID = 0x80000021
	AlertNotificationID   ID = 0x00000102
	DataSMID              ID = 0x00000103
	DataSMRespID          ID = 0x80000103
)

var idNames = map[ID]string{
	GenericNackID:         "generic_nack",
	BindReceiverID:        "bind_receiver",
	BindReceiverRespID:    "bind_receiver_resp",
	BindTransmitterID:     "bind_transmitter",
	BindTransmitterRespID: "bind_transmitter_resp",
	SubmitSMID:            "submit_sm",
	SubmitSMRespID:        "submit_sm_resp",
	DeliverSMID:           "deliver_sm",
	DeliverSMRespID:       "deliver_sm_resp",
	UnbindID:              "unbind",
	UnbindRespID:          "unbind_resp",
	BindTransceiverID:     "bind_transceiver",
	BindTransceiverRespID: "bind_transceiver_resp",
	OutbindID:             "outbind",
	EnquireLinkID:         "enquire_link",
	EnquireLinkRespID:     "enquire_link_resp",
}

func (id ID) String() string {
	if s, ok := idNames[id]; ok {
		return s
	}
	return fmt.Sprintf("id(0x%08x)", uint32(id))
}

// ESME status codes, the subset bearerbox's driver inspects directly.
const (
	ESMEROK          Status = 0x00000000
	ESMERINVMSGLEN   Status = 0x00000001
	ESMERINVCMDLEN   Status = 0x00000002
	ESMERINVCMDID    Status = 0x00000003
	ESMERINVBNDSTS   Status = 0x00000004
	ESMERALYBND      Status = 0x00000005
	ESMERINVSRCADR   Status = 0x0000000A
	ESMERINVDSTADR   Status = 0x0000000B
	ESMERINVMSGID    Status = 0x0000000C
	ESMERBINDFAIL    Status = 0x0000000D
	ESMERINVPASWD    Status = 0x0000000E
	ESMERINVSYSID    Status = 0x0000000F
	ESMERMSGQFUL     Status = 0x00000014
	ESMERTHROTTLED   Status = 0x00000058
	ESMERSYSERR      Status = 0x00000008
	ESMERINVESMCLASS Status = 0x00000043
	ESMERXTAPPN      Status = 0x00000064 // receiver temporary app error
	ESMERXPAPPN      Status = 0x00000065 // receiver permanent app error
	ESMERXRAPPN      Status = 0x00000066 // receiver reject message error
)

func (s Status) Error() string {
	return fmt.Sprintf("smpp: esme status 0x%08x", uint32(s))
}

// HeaderLen is the fixed size, in bytes, of the SMPP PDU header.
const HeaderLen = 16

// MaxPDUSize bounds how large a single PDU may claim to be, guarding
// against a malicious or corrupt command_length driving an unbounded read.
const MaxPDUSize = 64 * 1024

// Header is the fixed portion present on every PDU.
type Header struct {
	Len    uint32
	ID     ID
	Status Status
	Seq    uint32
}

// DecodeHeader reads and validates a 16-byte PDU header from r.
func DecodeHeader(r io.Reader) (*Header, error) {
	var b [HeaderLen]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	l := binary.BigEndian.Uint32(b[0:4])
	if l < HeaderLen {
		return nil, fmt.Errorf("smpp/pdu: command_length %d smaller than header", l)
	}
	if l > MaxPDUSize {
		return nil, fmt.Errorf("smpp/pdu: command_length %d exceeds max %d", l, MaxPDUSize)
	}
	return &Header{
		Len:    l,
		ID:     ID(binary.BigEndian.Uint32(b[4:8])),
		Status: Status(binary.BigEndian.Uint32(b[8:12])),
		Seq:    binary.BigEndian.Uint32(b[12:16]),
	}, nil
}

func (h *Header) encode(w *writer) {
	w.uint32(h.Len)
	w.uint32(uint32(h.ID))
	w.uint32(uint32(h.Status))
	w.uint32(h.Seq)
}
