package smpp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/gwlist"
	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smpp/pdu"
	"github.com/oonrumail/bearerbox/internal/smscconn"
)

// pendingSubmit is one outstanding submit_sm awaiting its _resp, keyed by
// sequence_number in the driver's pending-ack map.
type pendingSubmit struct {
	sentTime time.Time
	msg      *msg.Msg
}

// Driver is the SMPP v3.4 transmitter/receiver/transceiver implementation
// of internal/smscconn.Driver.
type Driver struct {
	cfg  Config
	deps Deps

	cb smscconn.Callbacks

	outbound *gwlist.List[*msg.Msg]
	pending  *gwlist.Dict[*pendingSubmit]
	seq      gwlist.Counter
	msgIDCtr gwlist.Counter

	quitting int32
	stopped  int32

	connMu sync.Mutex
	conn   net.Conn

	throttleMu    sync.Mutex
	throttledUntil time.Time

	wg sync.WaitGroup
}

// New constructs a Driver. Open must be called to start it.
func New(cfg Config, deps Deps) *Driver {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Driver{
		cfg:      cfg,
		deps:     deps,
		outbound: gwlist.NewList[*msg.Msg](),
		pending:  gwlist.NewDict[*pendingSubmit](),
	}
}

// Open implements smscconn.Driver.
func (d *Driver) Open(cb smscconn.Callbacks) error {
	d.cb = cb
	d.outbound.AddProducer() // SendMsg is a producer for the life of the driver
	d.wg.Add(1)
	go d.run()
	return nil
}

// SendMsg implements smscconn.Driver.
func (d *Driver) SendMsg(m *msg.Msg) error {
	if atomic.LoadInt32(&d.stopped) != 0 {
		return fmt.Errorf("smpp: connection is stopped")
	}
	if atomic.LoadInt32(&d.quitting) != 0 {
		return fmt.Errorf("smpp: connection is quitting")
	}
	d.outbound.Produce(m)
	return nil
}

// Queued implements smscconn.Driver.
func (d *Driver) Queued() int {
	return d.outbound.Len() + d.pending.Len()
}

// Stop implements smscconn.Driver: suspends inbound forwarding and
// outbound acceptance while keeping the bind and enquire-link alive.
func (d *Driver) Stop() {
	atomic.StoreInt32(&d.stopped, 1)
}

// Start implements smscconn.Driver.
func (d *Driver) Start() {
	atomic.StoreInt32(&d.stopped, 0)
}

// Shutdown implements smscconn.Driver.
func (d *Driver) Shutdown(finishSending bool) {
	atomic.StoreInt32(&d.quitting, 1)
	if !finishSending {
		d.failAll(smscconn.FailShutdown)
	}
	d.outbound.RemoveProducer()
	d.closeConn()
	d.wg.Wait()
	d.failAll(smscconn.FailShutdown)
}

func (d *Driver) isStopped() bool  { return atomic.LoadInt32(&d.stopped) != 0 }
func (d *Driver) isQuitting() bool { return atomic.LoadInt32(&d.quitting) != 0 }

func (d *Driver) closeConn() {
	d.connMu.Lock()
	c := d.conn
	d.conn = nil
	d.connMu.Unlock()
	if c != nil {
		c.Close()
	}
}

func (d *Driver) setConn(c net.Conn) {
	d.connMu.Lock()
	d.conn = c
	d.connMu.Unlock()
}

// failAll fails every queued and pending message with reason, draining
// both collections. Used by Shutdown and when the SMSC rejects the bind
// credentials.
func (d *Driver) failAll(reason smscconn.FailReason) {
	for _, m := range d.outbound.DrainAll() {
		d.reportFailed(m, reason)
	}
	for _, key := range d.pending.Keys() {
		if p, ok := d.pending.Remove(key); ok {
			d.reportFailed(p.msg, reason)
		}
	}
}

func (d *Driver) reportFailed(m *msg.Msg, reason smscconn.FailReason) {
	if d.cb.SendFailed != nil {
		d.cb.SendFailed(m, reason)
	}
}

func (d *Driver) reportSent(m *msg.Msg) {
	if d.cb.Sent != nil {
		d.cb.Sent(m)
	}
}

func (d *Driver) reportReceived(m *msg.Msg) {
	if d.isStopped() {
		return
	}
	if d.cb.Receive != nil {
		d.cb.Receive(m)
	}
}

// run is the top-level connect/bind/serve/reconnect loop. It owns the
// driver's single network connection for its whole lifetime.
func (d *Driver) run() {
	defer d.wg.Done()
	for {
		if d.isQuitting() {
			return
		}

		conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port))
		if err != nil {
			d.deps.Logger.Warn("smpp: connect failed", zap.Error(err))
			if !d.sleepReconnect() {
				return
			}
			continue
		}
		d.setConn(conn)

		bindErr := d.bind(conn)
		if bindErr != nil {
			d.deps.Logger.Warn("smpp: bind failed", zap.Error(bindErr))
			conn.Close()
			if credentialsRejected(bindErr) {
				atomic.StoreInt32(&d.quitting, 1)
				d.failAll(smscconn.FailShutdown)
				return
			}
			if !d.sleepReconnect() {
				return
			}
			continue
		}

		if d.cb.Connected != nil {
			d.cb.Connected()
		}

		d.serve(conn)

		conn.Close()
		// serve() returning means the session ended (error, unbind, or
		// quitting). Every in-flight/queued message must already have
		// been failed by serve() before it returns.
		if d.isQuitting() {
			return
		}
		if !d.sleepReconnect() {
			return
		}
	}
}

func (d *Driver) sleepReconnect() bool {
	delay := d.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	<-t.C
	return !d.isQuitting()
}

// credentialsRejected reports whether a bind error is the
// never-retry-this-password case spec.md §4.3 calls out.
func credentialsRejected(err error) bool {
	be, ok := err.(*bindError)
	if !ok {
		return false
	}
	return be.status == pdu.ESMERINVSYSID || be.status == pdu.ESMERINVPASWD
}

type bindError struct {
	status pdu.Status
}

func (e *bindError) Error() string {
	return fmt.Sprintf("smpp: bind rejected: %s", e.status.Error())
}

// bind sends the configured bind PDU and waits for its response.
func (d *Driver) bind(conn net.Conn) error {
	conn.SetDeadline(time.Now().Add(d.cfg.ConnectionTimeout))
	defer conn.SetDeadline(time.Time{})

	id := d.bindCommandID()
	req := &pdu.Bind{
		ID:               id,
		SystemID:         d.cfg.SystemID,
		Password:         d.cfg.Password,
		SystemType:       d.cfg.SystemType,
		InterfaceVer:     d.cfg.InterfaceVersion,
		AddrTON:          d.cfg.SourceAddrTON,
		AddrNPI:          d.cfg.SourceAddrNPI,
	}
	req.H.Seq = uint32(d.seq.Increase())

	if _, err := conn.Write(pdu.Encode(req)); err != nil {
		return fmt.Errorf("smpp: write bind: %w", err)
	}

	h, err := pdu.DecodeHeader(conn)
	if err != nil {
		return fmt.Errorf("smpp: read bind response header: %w", err)
	}
	body := make([]byte, h.Len-pdu.HeaderLen)
	if _, err := readFull(conn, body); err != nil {
		return fmt.Errorf("smpp: read bind response body: %w", err)
	}
	resp, err := pdu.Decode(h, body)
	if err != nil {
		return fmt.Errorf("smpp: decode bind response: %w", err)
	}
	br, ok := resp.(*pdu.BindResp)
	if !ok {
		return fmt.Errorf("smpp: unexpected bind response type %T", resp)
	}
	if h.Status != pdu.ESMEROK {
		return &bindError{status: h.Status}
	}
	_ = br
	return nil
}

func (d *Driver) bindCommandID() pdu.ID {
	switch d.cfg.BindType {
	case BindReceiver:
		return pdu.BindReceiverID
	case BindTransceiver:
		return pdu.BindTransceiverID
	default:
		return pdu.BindTransmitterID
	}
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// serve runs one bound session: reader loop, submit pump, heartbeat, and
// wait-ack sweep, until the connection fails or a shutdown is requested.
// It guarantees every message still outbound or pending when it returns
// has already been failed (temporary, unless quitting).
func (d *Driver) serve(conn net.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	stop := func() { once.Do(cancel) }
	defer stop()

	errCh := make(chan error, 4)

	var inner sync.WaitGroup
	inner.Add(1)
	go func() {
		defer inner.Done()
		errCh <- d.readLoop(ctx, conn)
	}()

	if d.bindsOutbound() {
		inner.Add(1)
		go func() {
			defer inner.Done()
			errCh <- d.submitLoop(ctx, conn)
		}()
	}

	inner.Add(1)
	go func() {
		defer inner.Done()
		errCh <- d.heartbeatLoop(ctx, conn)
	}()

	inner.Add(1)
	go func() {
		defer inner.Done()
		errCh <- d.waitAckLoop(ctx)
	}()

	var sessionErr error
	select {
	case sessionErr = <-errCh:
	case <-ctx.Done():
	}
	stop()
	inner.Wait()

	reason := smscconn.FailTemporary
	if d.isQuitting() {
		reason = smscconn.FailShutdown
	}
	for _, key := range d.pending.Keys() {
		if p, ok := d.pending.Remove(key); ok {
			d.reportFailed(p.msg, reason)
		}
	}
	for _, m := range d.outbound.DrainAll() {
		d.reportFailed(m, reason)
	}

	if sessionErr != nil {
		d.deps.Logger.Info("smpp: session ended", zap.Error(sessionErr))
	}
}

func (d *Driver) bindsOutbound() bool {
	return d.cfg.BindType == BindTransmitter || d.cfg.BindType == BindTransceiver
}
