package smpp

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/charset"
	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smpp/pdu"
	"github.com/oonrumail/bearerbox/internal/smscconn"
)

// submitPollInterval bounds how long submitLoop can go between checking
// whether the in-flight window has freed up or a new message has arrived,
// when it cannot simply block on the outbound queue.
const submitPollInterval = 50 * time.Millisecond

func pendingKey(seq uint32) string {
	return strconv.FormatUint(uint64(seq), 10)
}

// submitLoop drains the outbound queue into submit_sm PDUs, respecting
// MaxPendingSubmits as an in-flight window, Throughput as a pacing limit,
// and any active throttle backoff set by a prior ESME_RTHROTTLED response.
func (d *Driver) submitLoop(ctx context.Context, conn net.Conn) error {
	var minInterval time.Duration
	if d.cfg.Throughput > 0 {
		minInterval = time.Duration(float64(time.Second) / d.cfg.Throughput)
	}
	var lastSubmit time.Time

	for {
		if d.isStopped() || d.pending.Len() >= d.cfg.MaxPendingSubmits || d.throttled() {
			if !sleepCtx(ctx, submitPollInterval) {
				return nil
			}
			continue
		}

		m, ok := d.outbound.TryConsume()
		if !ok {
			if !sleepCtx(ctx, submitPollInterval) {
				return nil
			}
			continue
		}

		if minInterval > 0 {
			if wait := minInterval - time.Since(lastSubmit); wait > 0 {
				if !sleepCtx(ctx, wait) {
					d.reportFailed(m, smscconn.FailShutdown)
					return nil
				}
			}
		}

		seq := uint32(d.seq.Increase())
		req := d.buildSubmitSM(m, seq)
		// Register before writing: the response can be read before Write returns.
		d.pending.Put(pendingKey(seq), &pendingSubmit{sentTime: time.Now(), msg: m})
		if _, err := conn.Write(pdu.Encode(req)); err != nil {
			if _, ok := d.pending.Remove(pendingKey(seq)); ok {
				d.reportFailed(m, smscconn.FailTemporary)
			}
			return err
		}
		lastSubmit = time.Now()
	}
}

// buildSubmitSM renders an outbound Msg as a submit_sm PDU, converting its
// payload into the wire encoding EncodeDCS selects and prepending any UDH.
func (d *Driver) buildSubmitSM(m *msg.Msg, seq uint32) *pdu.SubmitSM {
	sms := m.SMS
	coding := charset.Coding(sms.Coding)
	body := charset.Encode(string(sms.MsgData), coding)

	var esmClass uint8
	if len(sms.UDHData) > 0 {
		esmClass |= esmClassUDHI
		body = append(append([]byte(nil), sms.UDHData...), body...)
	}

	dataCoding := charset.EncodeDCS(coding, int(sms.MClass), int(sms.MWI), int(sms.AltDCS))

	var registeredDeliv uint8
	if sms.DLRMask&(msg.DLRMaskSuccess|msg.DLRMaskFail|msg.DLRMaskBuffered) != 0 {
		registeredDeliv = 1
	}

	req := &pdu.SubmitSM{
		SourceAddrTON:   d.cfg.SourceAddrTON,
		SourceAddrNPI:   d.cfg.SourceAddrNPI,
		SourceAddr:      sms.Sender,
		DestAddrTON:     d.cfg.DestAddrTON,
		DestAddrNPI:     d.cfg.DestAddrNPI,
		DestinationAddr: sms.Receiver,
		ESMClass:        esmClass,
		ProtocolID:      uint8(sms.PID),
		RegisteredDeliv: registeredDeliv,
		DataCoding:      dataCoding,
		ShortMessage:    body,
	}
	req.H.Seq = seq
	return req
}

// handleSubmitResp applies a submit_sm_resp to the matching pending entry,
// per spec.md §4.3's submit-ack table: success registers DLR correlation
// when requested, a throttle status sets a backoff window, anything else
// is a permanent rejection of that one message.
func (d *Driver) handleSubmitResp(h *pdu.Header, resp *pdu.SubmitSMResp) {
	p, ok := d.pending.Remove(pendingKey(h.Seq))
	if !ok {
		d.deps.Logger.Warn("smpp: submit_sm_resp for unknown sequence", zap.Uint32("seq", h.Seq))
		return
	}

	switch h.Status {
	case pdu.ESMEROK:
		d.registerDLRIfNeeded(p.msg, resp.MessageID)
		d.reportSent(p.msg)
	case pdu.ESMERTHROTTLED, pdu.ESMERMSGQFUL:
		d.setThrottled(time.Now().Add(d.cfg.ThrottlingSleepTime))
		d.reportFailed(p.msg, smscconn.FailTemporary)
	default:
		d.reportFailed(p.msg, smscconn.FailRejected)
	}
}

func (d *Driver) registerDLRIfNeeded(m *msg.Msg, messageID string) {
	if m.SMS == nil || m.SMS.DLRMask&(msg.DLRMaskSuccess|msg.DLRMaskFail|msg.DLRMaskBuffered) == 0 {
		return
	}
	if d.deps.DLRStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.deps.DLRStore.Add(ctx, d.cfg.SMSCID, messageID, m); err != nil {
		d.deps.Logger.Warn("smpp: dlr store add failed", zap.Error(err))
	}
}

func (d *Driver) throttled() bool {
	d.throttleMu.Lock()
	defer d.throttleMu.Unlock()
	return time.Now().Before(d.throttledUntil)
}

func (d *Driver) setThrottled(until time.Time) {
	d.throttleMu.Lock()
	d.throttledUntil = until
	d.throttleMu.Unlock()
}

// sleepCtx sleeps for d or returns early (with ok=false) if ctx is
// canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
