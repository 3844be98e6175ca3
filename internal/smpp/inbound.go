package smpp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/charset"
	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smpp/pdu"
)

const esmClassUDHI = 0x40

// SMPP source_addr_ton values the driver special-cases when normalizing
// an inbound sender address.
const (
	tonInternational = 1
	tonAlphanumeric  = 5
)

// readLoop reads PDUs off conn until ctx is canceled or the session
// fails, dispatching each to its handler. A read deadline shorter than
// ConnectionTimeout doubles as the heartbeat tick: a timed-out read just
// means nothing arrived this interval, and is only fatal once nothing has
// arrived for ConnectionTimeout.
func (d *Driver) readLoop(ctx context.Context, conn net.Conn) error {
	lastRecv := time.Now()
	interval := d.cfg.EnquireLinkInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := d.cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * interval
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(interval))
		h, err := pdu.DecodeHeader(conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if time.Since(lastRecv) > timeout {
					return fmt.Errorf("smpp: no pdu received within connection-timeout")
				}
				continue
			}
			return fmt.Errorf("smpp: read pdu header: %w", err)
		}
		lastRecv = time.Now()

		body := make([]byte, h.Len-pdu.HeaderLen)
		if _, err := readFull(conn, body); err != nil {
			return fmt.Errorf("smpp: read pdu body: %w", err)
		}
		p, err := pdu.Decode(h, body)
		if err != nil {
			d.deps.Logger.Warn("smpp: malformed pdu", zap.Error(err))
			continue
		}
		if err := d.dispatchInbound(conn, h, p); err != nil {
			return err
		}
	}
}

// dispatchInbound handles one decoded PDU, replying as the protocol
// requires. An unrecognized command gets generic_nack{ESME_RINVCMDID}
// rather than dropping the session, preserving framing sync.
func (d *Driver) dispatchInbound(conn net.Conn, h *pdu.Header, p pdu.PDU) error {
	switch v := p.(type) {
	case *pdu.SubmitSMResp:
		d.handleSubmitResp(h, v)
		return nil
	case *pdu.DeliverSM:
		d.handleDeliverSM(conn, h, v)
		return nil
	case *pdu.EnquireLink:
		resp := &pdu.EnquireLinkResp{}
		resp.H.Seq = h.Seq
		_, err := conn.Write(pdu.Encode(resp))
		return err
	case *pdu.EnquireLinkResp:
		return nil
	case *pdu.Unbind:
		resp := &pdu.UnbindResp{}
		resp.H.Seq = h.Seq
		conn.Write(pdu.Encode(resp))
		return fmt.Errorf("smpp: unbind requested by peer")
	case *pdu.UnbindResp:
		return fmt.Errorf("smpp: unbind acknowledged by peer")
	case *pdu.GenericNack:
		d.deps.Logger.Warn("smpp: received generic_nack", zap.Uint32("seq", h.Seq))
		return nil
	default:
		nack := &pdu.GenericNack{}
		nack.H.Seq = h.Seq
		nack.H.Status = pdu.ESMERINVCMDID
		_, err := conn.Write(pdu.Encode(nack))
		return err
	}
}

// handleDeliverSM splits a deliver_sm into the mobile-originated path and
// the delivery-receipt path per the esm_class test spec.md §4.3 gives.
func (d *Driver) handleDeliverSM(conn net.Conn, h *pdu.Header, p *pdu.DeliverSM) {
	resp := &pdu.DeliverSMResp{}
	resp.H.Seq = h.Seq

	if isMOClass(p.ESMClass) {
		m, err := d.moFromDeliverSM(p)
		if err != nil {
			resp.H.Status = pdu.ESMERINVESMCLASS
			conn.Write(pdu.Encode(resp))
			return
		}
		conn.Write(pdu.Encode(resp))
		d.reportReceived(m)
		return
	}

	d.handleDLRDeliverSM(p)
	conn.Write(pdu.Encode(resp))
}

func isMOClass(esmClass uint8) bool {
	return esmClass&0x04 == 0 && esmClass&0xC3 == 0
}

// moFromDeliverSM converts a mobile-originated deliver_sm into a Msg,
// extracting any UDH and normalizing the sender address.
func (d *Driver) moFromDeliverSM(p *pdu.DeliverSM) (*msg.Msg, error) {
	sender := p.SourceAddr
	if p.SourceAddrTON == tonAlphanumeric && len(sender) > 11 {
		return nil, fmt.Errorf("smpp: alphanumeric source_addr exceeds 11 characters")
	}
	if p.SourceAddrTON == tonInternational {
		sender = "+" + strings.TrimPrefix(sender, "00")
	}

	body := p.ShortMessage
	var udh []byte
	udhPresent := p.ESMClass&esmClassUDHI != 0
	if udhPresent {
		if len(body) == 0 {
			return nil, fmt.Errorf("smpp: udh indicator set on empty short_message")
		}
		udhLen := int(body[0])
		if udhLen+1 > len(body) {
			return nil, fmt.Errorf("smpp: udh length exceeds short_message")
		}
		udh = append([]byte(nil), body[:udhLen+1]...)
		body = body[udhLen+1:]
	}

	coding := charset.DecodeDCS(p.DataCoding, udhPresent, d.cfg.AltCharset != "")
	text := charset.Decode(body, coding)
	mclass := charset.DecodeMClass(p.DataCoding)

	return msg.NewSMS(msg.SMS{
		Sender:   sender,
		Receiver: p.DestinationAddr,
		MsgData:  []byte(text),
		UDHData:  udh,
		Coding:   msg.Coding(coding),
		MClass:   msg.MClass(mclass),
		MWI:      -1,
		AltDCS:   -1,
		PID:      int32(p.ProtocolID),
		SMSCID:   d.cfg.SMSCID,
		SMSType:  msg.SMSTypeMO,
	}), nil
}

// handleDLRDeliverSM parses a delivery receipt's short_message, correlates
// it against the original submit via the DLR store, and reports the
// resulting report-type Msg upstream.
func (d *Driver) handleDLRDeliverSM(p *pdu.DeliverSM) {
	text := string(p.ShortMessage)
	parsed := parseDLRText(text)
	if parsed.MessageID == "" {
		d.deps.Logger.Warn("smpp: delivery receipt missing id field")
		return
	}
	if d.deps.DLRStore == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	orig, found, err := d.deps.DLRStore.Find(ctx, d.cfg.SMSCID, parsed.MessageID, p.SourceAddr, parsed.Status)
	if err != nil {
		d.deps.Logger.Warn("smpp: dlr store lookup failed", zap.Error(err))
		return
	}
	if !found || orig.SMS == nil {
		d.deps.Logger.Info("smpp: no dlr correlation entry", zap.String("message_id", parsed.MessageID))
		return
	}

	report := msg.NewSMS(msg.SMS{
		Sender:       orig.SMS.Receiver,
		Receiver:     orig.SMS.Sender,
		MsgData:      []byte(text),
		DLRMask:      int32(parsed.Status),
		DLRURL:       orig.SMS.DLRURL,
		SMSCID:       d.cfg.SMSCID,
		Service:      orig.SMS.Service,
		SMSType:      msg.SMSTypeReport,
		DLRReplyText: text,
	})
	d.reportReceived(report)
}
