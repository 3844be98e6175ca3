package pdu

import (
	"bytes"
	"testing"
)

func encodeDecode(t *testing.T, p PDU) PDU {
	t.Helper()
	data := Encode(p)
	h, err := DecodeHeader(bytes.NewReader(data[:HeaderLen]))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := Decode(h, data[HeaderLen:])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestBindTransmitterRoundTrip(t *testing.T) {
	p := &Bind{
		ID:           BindTransmitterID,
		SystemID:     "myuser",
		Password:     "secret",
		SystemType:   "OTA",
		InterfaceVer: 0x34,
		AddrTON:      1,
		AddrNPI:      1,
		AddressRange: "",
	}
	p.H.Seq = 7

	got, ok := encodeDecode(t, p).(*Bind)
	if !ok {
		t.Fatalf("decoded as wrong type")
	}
	if got.SystemID != p.SystemID || got.Password != p.Password || got.SystemType != p.SystemType {
		t.Fatalf("mismatch: %+v vs %+v", got, p)
	}
	if got.H.Seq != 7 {
		t.Fatalf("seq not preserved: got %d", got.H.Seq)
	}
	if got.CommandID() != BindTransmitterID {
		t.Fatalf("command id mismatch: %v", got.CommandID())
	}
}

func TestSubmitSMRoundTrip(t *testing.T) {
	p := &SubmitSM{
		SourceAddr:      "1234",
		DestinationAddr: "5678",
		DataCoding:      0,
		ShortMessage:    []byte("hello"),
		TLVs: []TLV{
			{Tag: TagUserMessageReference, Value: []byte{0x00, 0x01}},
		},
	}
	p.H.Seq = 42

	got, ok := encodeDecode(t, p).(*SubmitSM)
	if !ok {
		t.Fatalf("decoded as wrong type")
	}
	if got.SourceAddr != p.SourceAddr || got.DestinationAddr != p.DestinationAddr {
		t.Fatalf("address mismatch: %+v", got)
	}
	if !bytes.Equal(got.ShortMessage, p.ShortMessage) {
		t.Fatalf("short message mismatch: got %q want %q", got.ShortMessage, p.ShortMessage)
	}
	if len(got.TLVs) != 1 || got.TLVs[0].Tag != TagUserMessageReference {
		t.Fatalf("tlv mismatch: %+v", got.TLVs)
	}
}

func TestSubmitSMRespRoundTrip(t *testing.T) {
	p := &SubmitSMResp{MessageID: "msg-123"}
	p.H.Seq = 9
	p.H.Status = ESMEROK

	got, ok := encodeDecode(t, p).(*SubmitSMResp)
	if !ok {
		t.Fatalf("decoded as wrong type")
	}
	if got.MessageID != "msg-123" {
		t.Fatalf("message id mismatch: %q", got.MessageID)
	}
}

func TestDeliverSMRoundTrip(t *testing.T) {
	p := &DeliverSM{
		SourceAddr:      "5678",
		DestinationAddr: "1234",
		ShortMessage:    []byte("id:42 sub:001 dlvrd:001 stat:DELIVRD"),
		ESMClass:        0x04,
	}
	p.H.Seq = 11

	got, ok := encodeDecode(t, p).(*DeliverSM)
	if !ok {
		t.Fatalf("decoded as wrong type")
	}
	if !bytes.Equal(got.ShortMessage, p.ShortMessage) {
		t.Fatalf("short message mismatch: got %q", got.ShortMessage)
	}
	if got.ESMClass != 0x04 {
		t.Fatalf("esm_class mismatch: got %x", got.ESMClass)
	}
}

func TestEnquireLinkRoundTrip(t *testing.T) {
	p := &EnquireLink{}
	p.H.Seq = 3
	got, ok := encodeDecode(t, p).(*EnquireLink)
	if !ok {
		t.Fatalf("decoded as wrong type")
	}
	if got.H.Seq != 3 {
		t.Fatalf("seq mismatch: %d", got.H.Seq)
	}
}

func TestUnbindRoundTrip(t *testing.T) {
	p := &Unbind{}
	p.H.Seq = 5
	if _, ok := encodeDecode(t, p).(*Unbind); !ok {
		t.Fatalf("decoded as wrong type")
	}
}

func TestDecodeHeaderRejectsOversized(t *testing.T) {
	data := Encode(&EnquireLink{})
	data[0] = 0xFF // blow up the high byte of command_length
	_, err := DecodeHeader(bytes.NewReader(data[:HeaderLen]))
	if err == nil {
		t.Fatalf("expected error for oversized command_length")
	}
}

func TestDecodeHeaderRejectsTooSmall(t *testing.T) {
	var b [HeaderLen]byte
	_, err := DecodeHeader(bytes.NewReader(b[:]))
	if err == nil {
		t.Fatalf("expected error for command_length smaller than header")
	}
}

func TestUnsupportedPreservesBody(t *testing.T) {
	h := &Header{ID: SubmitMultiID, Len: HeaderLen + 3, Seq: 1}
	body := []byte{0x01, 0x02, 0x03}
	got, err := Decode(h, body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u, ok := got.(*Unsupported)
	if !ok {
		t.Fatalf("expected *Unsupported, got %T", got)
	}
	if !bytes.Equal(u.Body, body) {
		t.Fatalf("body not preserved: got %v", u.Body)
	}
}
