// Package msg implements the in-memory message envelope that bearerbox
// routes between SMSC connections and smsboxes, and the self-describing
// binary codec used to exchange it over the wire.
package msg

import (
	"strconv"
	"time"
)

// Type identifies which of the closed set of variants a Msg carries.
type Type int32

const (
	TypeSMS       Type = 0
	TypeDLR       Type = 1
	TypeHeartbeat Type = 2
	TypeDatagram  Type = 3
	TypeAck       Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeSMS:
		return "sms"
	case TypeDLR:
		return "dlr-report"
	case TypeHeartbeat:
		return "heartbeat"
	case TypeDatagram:
		return "wdp-datagram"
	case TypeAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Coding is the SMS.Coding enumeration.
type Coding int32

const (
	CodingUndef Coding = 0
	Coding7Bit  Coding = 1
	Coding8Bit  Coding = 2
	CodingUCS2  Coding = 3
)

// MClass mirrors the GSM message class field; -1 means "undefined".
type MClass int32

const MClassUndef MClass = -1

// SMSType distinguishes why an sms-variant Msg exists.
type SMSType int32

const (
	SMSTypeMO      SMSType = 0
	SMSTypeMTReply SMSType = 1
	SMSTypeMTPush  SMSType = 2
	SMSTypeReport  SMSType = 3
)

// DLR mask bits, ORed into SMS.DLRMask.
const (
	DLRMaskSuccess   int32 = 1
	DLRMaskFail      int32 = 2
	DLRMaskBuffered  int32 = 4
	DLRMaskDeviceAck int32 = 8
	DLRMaskSMSCAck   int32 = 16
)

// DLRStatus is the outcome carried by a dlr-report Msg.
type DLRStatus int32

const (
	DLRStatusSuccess    DLRStatus = 1
	DLRStatusFail       DLRStatus = 2
	DLRStatusBuffered   DLRStatus = 4
	DLRStatusSMSCAck    DLRStatus = 8
	DLRStatusSMSCReject DLRStatus = 16
	DLRStatusDeleted    DLRStatus = 32
	DLRStatusExpired    DLRStatus = 64
)

// SMS is the body of a Type == TypeSMS Msg.
type SMS struct {
	Sender   string
	Receiver string
	MsgData  []byte
	UDHData  []byte
	Coding   Coding
	MClass   MClass
	MWI      int32
	AltDCS   int32
	PID      int32
	DLRMask  int32
	DLRURL   string
	Validity int32 // minutes
	Deferred int32 // minutes
	SMSCID   string
	Service  string
	BInfo    string
	RPI      int32
	Charset  string
	SMSType  SMSType

	// DLRReplyText carries the original deliver_sm text when SMSType ==
	// SMSTypeReport, for %A pattern expansion.
	DLRReplyText string
}

// Heartbeat is the body of a Type == TypeHeartbeat Msg.
type Heartbeat struct {
	Load int32
}

// DLR is the body of a Type == TypeDLR Msg.
type DLR struct {
	SMSCID        string
	SMSCMessageID string
	Destination   string
	Status        DLRStatus
}

// Datagram is the body of a Type == TypeDatagram Msg (WDP, WAP path).
type Datagram struct {
	SourceAddr      string
	SourcePort      int32
	DestinationAddr string
	DestinationPort int32
	UserData        []byte
}

// Ack is the body of a Type == TypeAck Msg, used to acknowledge or
// negative-acknowledge a prior Msg by id.
type Ack struct {
	RefID string
	NAck  bool
}

// Msg is the tagged-variant message envelope. Exactly one of the
// pointer fields matching Type is non-nil for a well-formed Msg.
type Msg struct {
	Type Type

	SMS       *SMS
	Heartbeat *Heartbeat
	DLR       *DLR
	Datagram  *Datagram
	Ack       *Ack

	// Common envelope fields, present on every variant.
	ID   string
	Time time.Time
}

// NewSMS constructs a well-formed sms-variant Msg.
func NewSMS(body SMS) *Msg {
	return &Msg{Type: TypeSMS, SMS: &body, Time: time.Now()}
}

// NewHeartbeat constructs a well-formed heartbeat-variant Msg.
func NewHeartbeat(load int32) *Msg {
	return &Msg{Type: TypeHeartbeat, Heartbeat: &Heartbeat{Load: load}, Time: time.Now()}
}

// NewDLR constructs a well-formed dlr-report-variant Msg.
func NewDLR(body DLR) *Msg {
	return &Msg{Type: TypeDLR, DLR: &body, Time: time.Now()}
}

// NewDatagram constructs a well-formed wdp-datagram-variant Msg.
func NewDatagram(body Datagram) *Msg {
	return &Msg{Type: TypeDatagram, Datagram: &body, Time: time.Now()}
}

// NewAck constructs a well-formed ack-variant Msg.
func NewAck(refID string, nack bool) *Msg {
	return &Msg{Type: TypeAck, Ack: &Ack{RefID: refID, NAck: nack}, Time: time.Now()}
}

// Clone deep-copies m so a caller handing it to a queue that outlives the
// call (per SMSCConn.Send's non-blocking contract) can keep mutating its
// own copy afterward.
func (m *Msg) Clone() *Msg {
	if m == nil {
		return nil
	}
	c := *m
	if m.SMS != nil {
		sms := *m.SMS
		sms.MsgData = append([]byte(nil), m.SMS.MsgData...)
		sms.UDHData = append([]byte(nil), m.SMS.UDHData...)
		c.SMS = &sms
	}
	if m.Heartbeat != nil {
		hb := *m.Heartbeat
		c.Heartbeat = &hb
	}
	if m.DLR != nil {
		dlr := *m.DLR
		c.DLR = &dlr
	}
	if m.Datagram != nil {
		dg := *m.Datagram
		dg.UserData = append([]byte(nil), m.Datagram.UserData...)
		c.Datagram = &dg
	}
	if m.Ack != nil {
		ack := *m.Ack
		c.Ack = &ack
	}
	return &c
}

// Dump renders a human-readable one-line summary for logging.
func (m *Msg) Dump() string {
	switch m.Type {
	case TypeSMS:
		return "sms{" + m.SMS.Sender + "->" + m.SMS.Receiver + "}"
	case TypeDLR:
		return "dlr{" + m.DLR.SMSCID + "/" + m.DLR.SMSCMessageID + "}"
	case TypeHeartbeat:
		return "heartbeat{load=" + strconv.Itoa(int(m.Heartbeat.Load)) + "}"
	case TypeDatagram:
		return "datagram{" + m.Datagram.SourceAddr + "->" + m.Datagram.DestinationAddr + "}"
	case TypeAck:
		return "ack{" + m.Ack.RefID + "}"
	default:
		return "malformed"
	}
}
