package pdu

import "fmt"

// PDU is implemented by every concrete protocol data unit. Encode returns
// its full wire representation (header + body); the Header accessor lets
// the driver patch in a sequence number or response status without
// re-building the PDU.
type PDU interface {
	CommandID() ID
	Header() *Header
	body(w *writer)
}

// Encode serializes p, computing command_length from the encoded body.
func Encode(p PDU) []byte {
	var bw writer
	p.body(&bw)
	body := bw.buf.Bytes()

	h := p.Header()
	h.ID = p.CommandID()
	h.Len = uint32(HeaderLen + len(body))

	var out writer
	h.encode(&out)
	out.bytes(body)
	return out.buf.Bytes()
}

// Decode parses a full PDU (header already read by the caller via
// DecodeHeader, body passed separately) into a concrete PDU value.
func Decode(h *Header, body []byte) (PDU, error) {
	r := newReader(body)
	switch h.ID {
	case BindTransmitterID:
		return decodeBindLike(h, r, BindTransmitterID)
	case BindReceiverID:
		return decodeBindLike(h, r, BindReceiverID)
	case BindTransceiverID:
		return decodeBindLike(h, r, BindTransceiverID)
	case BindTransmitterRespID, BindReceiverRespID, BindTransceiverRespID:
		return decodeBindResp(h, r)
	case SubmitSMID:
		return decodeSubmitSM(h, r)
	case SubmitSMRespID:
		return decodeSubmitSMResp(h, r)
	case DeliverSMID:
		return decodeDeliverSM(h, r)
	case DeliverSMRespID:
		return decodeDeliverSMResp(h, r)
	case EnquireLinkID:
		return &EnquireLink{H: *h}, nil
	case EnquireLinkRespID:
		return &EnquireLinkResp{H: *h}, nil
	case UnbindID:
		return &Unbind{H: *h}, nil
	case UnbindRespID:
		return &UnbindResp{H: *h}, nil
	case GenericNackID:
		return &GenericNack{H: *h}, nil
	default:
		return &Unsupported{H: *h, Body: append([]byte(nil), body...)}, nil
	}
}

// --- bind_transmitter / bind_receiver / bind_transceiver ---

// Bind is a bind_transmitter, bind_receiver, or bind_transceiver PDU; the
// three share an identical body layout and differ only in command id.
type Bind struct {
	H               Header
	ID              ID // which of the three bind commands this is
	SystemID        string
	Password        string
	SystemType      string
	InterfaceVer    uint8
	AddrTON         uint8
	AddrNPI         uint8
	AddressRange    string
}

func (p *Bind) CommandID() ID    { return p.ID }
func (p *Bind) Header() *Header  { return &p.H }
func (p *Bind) body(w *writer) {
	w.cstring(p.SystemID)
	w.cstring(p.Password)
	w.cstring(p.SystemType)
	w.uint8(p.InterfaceVer)
	w.uint8(p.AddrTON)
	w.uint8(p.AddrNPI)
	w.cstring(p.AddressRange)
}

func decodeBindLike(h *Header, r *reader, id ID) (*Bind, error) {
	p := &Bind{H: *h, ID: id}
	var err error
	if p.SystemID, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.Password, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.SystemType, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.InterfaceVer, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.AddrTON, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.AddrNPI, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.AddressRange, err = r.cstring(); err != nil {
		return nil, err
	}
	return p, nil
}

// BindResp is the response to any of the three bind commands.
type BindResp struct {
	H           Header
	ID          ID
	SystemID    string
}

func (p *BindResp) CommandID() ID   { return p.ID }
func (p *BindResp) Header() *Header { return &p.H }
func (p *BindResp) body(w *writer)  { w.cstring(p.SystemID) }

func decodeBindResp(h *Header, r *reader) (*BindResp, error) {
	p := &BindResp{H: *h, ID: h.ID}
	var err error
	if len(r.remaining()) > 0 {
		if p.SystemID, err = r.cstring(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// --- submit_sm ---

// SubmitSM carries a mobile-terminated short message to the SMSC.
type SubmitSM struct {
	H                Header
	ServiceType      string
	SourceAddrTON    uint8
	SourceAddrNPI    uint8
	SourceAddr       string
	DestAddrTON      uint8
	DestAddrNPI      uint8
	DestinationAddr  string
	ESMClass         uint8
	ProtocolID       uint8
	PriorityFlag     uint8
	ScheduleDelivery string
	ValidityPeriod   string
	RegisteredDeliv  uint8
	ReplaceIfPresent uint8
	DataCoding       uint8
	SMDefaultMsgID   uint8
	ShortMessage     []byte
	TLVs             []TLV
}

func (p *SubmitSM) CommandID() ID   { return SubmitSMID }
func (p *SubmitSM) Header() *Header { return &p.H }
func (p *SubmitSM) body(w *writer) {
	w.cstring(p.ServiceType)
	w.uint8(p.SourceAddrTON)
	w.uint8(p.SourceAddrNPI)
	w.cstring(p.SourceAddr)
	w.uint8(p.DestAddrTON)
	w.uint8(p.DestAddrNPI)
	w.cstring(p.DestinationAddr)
	w.uint8(p.ESMClass)
	w.uint8(p.ProtocolID)
	w.uint8(p.PriorityFlag)
	w.cstring(p.ScheduleDelivery)
	w.cstring(p.ValidityPeriod)
	w.uint8(p.RegisteredDeliv)
	w.uint8(p.ReplaceIfPresent)
	w.uint8(p.DataCoding)
	w.uint8(p.SMDefaultMsgID)
	w.uint8(uint8(len(p.ShortMessage)))
	w.bytes(p.ShortMessage)
	for _, t := range p.TLVs {
		w.tlv(t.Tag, t.Value)
	}
}

func decodeSubmitSM(h *Header, r *reader) (*SubmitSM, error) {
	p := &SubmitSM{H: *h}
	var err error
	if p.ServiceType, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.SourceAddrTON, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SourceAddrNPI, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SourceAddr, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.DestAddrTON, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DestAddrNPI, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DestinationAddr, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.ESMClass, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ProtocolID, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.PriorityFlag, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ScheduleDelivery, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.ValidityPeriod, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.RegisteredDeliv, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ReplaceIfPresent, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DataCoding, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SMDefaultMsgID, err = r.uint8(); err != nil {
		return nil, err
	}
	smLen, err := r.uint8()
	if err != nil {
		return nil, err
	}
	if p.ShortMessage, err = r.bytes(int(smLen)); err != nil {
		return nil, err
	}
	if p.TLVs, err = DecodeTLVs(r.remaining()); err != nil {
		return nil, err
	}
	return p, nil
}

// SubmitSMResp acknowledges a submit_sm, carrying the SMSC-assigned id.
type SubmitSMResp struct {
	H        Header
	MessageID string
}

func (p *SubmitSMResp) CommandID() ID   { return SubmitSMRespID }
func (p *SubmitSMResp) Header() *Header { return &p.H }
func (p *SubmitSMResp) body(w *writer)  { w.cstring(p.MessageID) }

func decodeSubmitSMResp(h *Header, r *reader) (*SubmitSMResp, error) {
	p := &SubmitSMResp{H: *h}
	if len(r.remaining()) == 0 {
		return p, nil
	}
	var err error
	if p.MessageID, err = r.cstring(); err != nil {
		return nil, err
	}
	return p, nil
}

// --- deliver_sm ---

// DeliverSM carries a mobile-originated message or a delivery receipt
// from the SMSC.
type DeliverSM struct {
	H                Header
	ServiceType      string
	SourceAddrTON    uint8
	SourceAddrNPI    uint8
	SourceAddr       string
	DestAddrTON      uint8
	DestAddrNPI      uint8
	DestinationAddr  string
	ESMClass         uint8
	ProtocolID       uint8
	PriorityFlag     uint8
	ScheduleDelivery string
	ValidityPeriod   string
	RegisteredDeliv  uint8
	ReplaceIfPresent uint8
	DataCoding       uint8
	SMDefaultMsgID   uint8
	ShortMessage     []byte
	TLVs             []TLV
}

func (p *DeliverSM) CommandID() ID   { return DeliverSMID }
func (p *DeliverSM) Header() *Header { return &p.H }
func (p *DeliverSM) body(w *writer) {
	w.cstring(p.ServiceType)
	w.uint8(p.SourceAddrTON)
	w.uint8(p.SourceAddrNPI)
	w.cstring(p.SourceAddr)
	w.uint8(p.DestAddrTON)
	w.uint8(p.DestAddrNPI)
	w.cstring(p.DestinationAddr)
	w.uint8(p.ESMClass)
	w.uint8(p.ProtocolID)
	w.uint8(p.PriorityFlag)
	w.cstring(p.ScheduleDelivery)
	w.cstring(p.ValidityPeriod)
	w.uint8(p.RegisteredDeliv)
	w.uint8(p.ReplaceIfPresent)
	w.uint8(p.DataCoding)
	w.uint8(p.SMDefaultMsgID)
	w.uint8(uint8(len(p.ShortMessage)))
	w.bytes(p.ShortMessage)
	for _, t := range p.TLVs {
		w.tlv(t.Tag, t.Value)
	}
}

func decodeDeliverSM(h *Header, r *reader) (*DeliverSM, error) {
	p := &DeliverSM{H: *h}
	var err error
	if p.ServiceType, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.SourceAddrTON, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SourceAddrNPI, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SourceAddr, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.DestAddrTON, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DestAddrNPI, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DestinationAddr, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.ESMClass, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ProtocolID, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.PriorityFlag, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ScheduleDelivery, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.ValidityPeriod, err = r.cstring(); err != nil {
		return nil, err
	}
	if p.RegisteredDeliv, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.ReplaceIfPresent, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.DataCoding, err = r.uint8(); err != nil {
		return nil, err
	}
	if p.SMDefaultMsgID, err = r.uint8(); err != nil {
		return nil, err
	}
	smLen, err := r.uint8()
	if err != nil {
		return nil, err
	}
	if p.ShortMessage, err = r.bytes(int(smLen)); err != nil {
		return nil, err
	}
	if p.TLVs, err = DecodeTLVs(r.remaining()); err != nil {
		return nil, err
	}
	return p, nil
}

// DeliverSMResp acknowledges a deliver_sm.
type DeliverSMResp struct {
	H         Header
	MessageID string
}

func (p *DeliverSMResp) CommandID() ID   { return DeliverSMRespID }
func (p *DeliverSMResp) Header() *Header { return &p.H }
func (p *DeliverSMResp) body(w *writer)  { w.cstring(p.MessageID) }

func decodeDeliverSMResp(h *Header, r *reader) (*DeliverSMResp, error) {
	p := &DeliverSMResp{H: *h}
	if len(r.remaining()) == 0 {
		return p, nil
	}
	var err error
	if p.MessageID, err = r.cstring(); err != nil {
		return nil, err
	}
	return p, nil
}

// --- enquire_link / unbind / generic_nack ---

// EnquireLink is the SMPP keepalive request.
type EnquireLink struct{ H Header }

func (p *EnquireLink) CommandID() ID   { return EnquireLinkID }
func (p *EnquireLink) Header() *Header { return &p.H }
func (p *EnquireLink) body(w *writer)  {}

// EnquireLinkResp acknowledges an enquire_link.
type EnquireLinkResp struct{ H Header }

func (p *EnquireLinkResp) CommandID() ID   { return EnquireLinkRespID }
func (p *EnquireLinkResp) Header() *Header { return &p.H }
func (p *EnquireLinkResp) body(w *writer)  {}

// Unbind requests an orderly session shutdown.
type Unbind struct{ H Header }

func (p *Unbind) CommandID() ID   { return UnbindID }
func (p *Unbind) Header() *Header { return &p.H }
func (p *Unbind) body(w *writer)  {}

// UnbindResp acknowledges an unbind.
type UnbindResp struct{ H Header }

func (p *UnbindResp) CommandID() ID   { return UnbindRespID }
func (p *UnbindResp) Header() *Header { return &p.H }
func (p *UnbindResp) body(w *writer)  {}

// GenericNack rejects a PDU the peer could not parse or accept.
type GenericNack struct{ H Header }

func (p *GenericNack) CommandID() ID   { return GenericNackID }
func (p *GenericNack) Header() *Header { return &p.H }
func (p *GenericNack) body(w *writer)  {}

// Unsupported preserves the raw body of a PDU this codec does not decode
// into a typed struct (e.g. submit_multi, data_sm), so the driver can still
// generic_nack it instead of losing framing sync.
type Unsupported struct {
	H    Header
	Body []byte
}

func (p *Unsupported) CommandID() ID   { return p.H.ID }
func (p *Unsupported) Header() *Header { return &p.H }
func (p *Unsupported) body(w *writer)  { w.bytes(p.Body) }

func (p *Unsupported) String() string {
	return fmt.Sprintf("unsupported pdu %s (%d bytes)", p.H.ID, len(p.Body))
}
