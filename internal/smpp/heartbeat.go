package smpp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oonrumail/bearerbox/internal/smpp/pdu"
	"github.com/oonrumail/bearerbox/internal/smscconn"
)

// heartbeatLoop sends enquire_link on the configured interval so an idle
// bind stays alive across NATs and firewalls and so the SMSC notices
// promptly if this side goes away.
func (d *Driver) heartbeatLoop(ctx context.Context, conn net.Conn) error {
	interval := d.cfg.EnquireLinkInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			req := &pdu.EnquireLink{}
			req.H.Seq = uint32(d.seq.Increase())
			if _, err := conn.Write(pdu.Encode(req)); err != nil {
				return fmt.Errorf("smpp: write enquire_link: %w", err)
			}
		}
	}
}

// waitAckLoop periodically sweeps the pending submit_sm map for entries
// that have outlived WaitAck, acting per WaitAckAction. WaitAckNeverExpire
// (or a non-positive WaitAck) disables the sweep entirely.
func (d *Driver) waitAckLoop(ctx context.Context) error {
	if d.cfg.WaitAckAction == WaitAckNeverExpire || d.cfg.WaitAck <= 0 {
		<-ctx.Done()
		return nil
	}

	pollEvery := d.cfg.WaitAck / 4
	if pollEvery <= 0 || pollEvery > 10*time.Second {
		pollEvery = 10 * time.Second
	}
	t := time.NewTicker(pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if d.sweepExpired() && d.cfg.WaitAckAction == WaitAckReconnect {
				return fmt.Errorf("smpp: submit_sm wait-ack exceeded")
			}
		}
	}
}

// sweepExpired removes every pending submit older than WaitAck, failing
// it per WaitAckAction, and reports whether anything expired. Under
// WaitAckReconnect the entries are left in place: tearing down the
// connection (triggered by the caller returning an error) lets serve()'s
// own pending-drain fail them uniformly alongside anything else in flight.
// WaitAckRequeue reports them as a temporary failure instead of pushing
// them back onto this same driver's own outbound queue, so the router
// that owns SMSCConn.Send gets the chance to reschedule onto a different
// connection rather than retrying the one that just timed out.
func (d *Driver) sweepExpired() bool {
	found := false
	now := time.Now()
	for _, key := range d.pending.Keys() {
		p, ok := d.pending.Get(key)
		if !ok || now.Sub(p.sentTime) < d.cfg.WaitAck {
			continue
		}
		found = true
		if d.cfg.WaitAckAction == WaitAckReconnect {
			continue
		}
		d.pending.Remove(key)
		d.reportFailed(p.msg, smscconn.FailTemporary)
	}
	return found
}
