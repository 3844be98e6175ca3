package smscconn

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/gwlist"
	"github.com/oonrumail/bearerbox/internal/msg"
)

// SMSCConn is a handle owning one SMSC-side connection: identity, status,
// routing filters, counters, and the driver that actually speaks the wire
// protocol. Its flow mutex guards only status/filter fields, never I/O,
// per spec.md §5's shared-resource discipline.
type SMSCConn struct {
	Name string
	ID   string

	Filters *Filters

	Reroute        bool
	Throughput     float64
	ReconnectDelay time.Duration

	Logger *zap.Logger

	driver Driver

	mu           gwlist.Mutex
	status       Status
	killedReason KilledReason
	stopped      bool
	connectTime  time.Time
	load         int

	received gwlist.Counter
	sent     gwlist.Counter
	failed   gwlist.Counter
}

// New creates an SMSCConn in the connecting state, wired to driver.
func New(name, id string, filters *Filters, driver Driver, logger *zap.Logger) *SMSCConn {
	return &SMSCConn{
		Name:    name,
		ID:      id,
		Filters: filters,
		driver:  driver,
		Logger:  logger,
		status:  StatusConnecting,
	}
}

// Open starts the underlying driver, wiring its callbacks to update this
// connection's counters and status before forwarding to the caller's own
// callbacks.
func (c *SMSCConn) Open(cb Callbacks) error {
	wrapped := Callbacks{
		Sent: func(m *msg.Msg) {
			c.sent.Increase()
			if cb.Sent != nil {
				cb.Sent(m)
			}
		},
		SendFailed: func(m *msg.Msg, reason FailReason) {
			c.failed.Increase()
			if cb.SendFailed != nil {
				cb.SendFailed(m, reason)
			}
		},
		Receive: func(m *msg.Msg) {
			c.received.Increase()
			if cb.Receive != nil {
				cb.Receive(m)
			}
		},
		Connected: func() {
			c.mu.Lock()
			c.connectTime = time.Now()
			c.mu.Unlock()
			if cb.Connected != nil {
				cb.Connected()
			}
		},
	}
	return c.driver.Open(wrapped)
}

// Send is the public, non-blocking send contract of spec.md §4.2: it
// returns "accepted" once the driver has taken ownership of a duplicate of
// m, or "rejected" if the connection cannot take it right now.
func (c *SMSCConn) Send(m *msg.Msg) (string, error) {
	if c.IsStopped() {
		return "rejected", fmt.Errorf("smscconn %s: connection is stopped", c.ID)
	}
	st := c.Status()
	if st == StatusDead || st == StatusDisconnected {
		return "rejected", fmt.Errorf("smscconn %s: connection is %s", c.ID, st)
	}
	if err := c.driver.SendMsg(m.Clone()); err != nil {
		return "rejected", err
	}
	return "accepted", nil
}

// Shutdown stops the driver (Driver.Shutdown describes what finishSending
// changes) and transitions the connection to dead.
func (c *SMSCConn) Shutdown(finishSending bool) {
	c.setStatus(StatusDisconnected)
	c.driver.Shutdown(finishSending)
	c.setKilled(KilledShutdown)
	c.setStatus(StatusDead)
}

// Stop suspends inbound delivery without tearing down the bind.
func (c *SMSCConn) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.driver.Stop()
}

// Start resumes inbound delivery.
func (c *SMSCConn) Start() {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
	c.driver.Start()
}

// IsStopped reports the stopped sub-flag.
func (c *SMSCConn) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Queued returns the driver's current outbound backlog.
func (c *SMSCConn) Queued() int {
	return c.driver.Queued()
}

// Status returns the current lifecycle state.
func (c *SMSCConn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *SMSCConn) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *SMSCConn) setKilled(reason KilledReason) {
	c.mu.Lock()
	c.killedReason = reason
	c.mu.Unlock()
}

// SetLoad records the latest heartbeat-derived load factor for the admin
// status snapshot.
func (c *SMSCConn) SetLoad(load int) {
	c.mu.Lock()
	c.load = load
	c.mu.Unlock()
}

// Usable reports whether the connection can currently accept smscID/receiver.
func (c *SMSCConn) Usable(smscID, receiver string) bool {
	if c.IsStopped() {
		return false
	}
	switch c.Status() {
	case StatusDead, StatusDisconnected:
		return false
	}
	return c.Filters.Allows(smscID, receiver)
}

// Preferred reports whether this usable connection should be treated as
// preferred for smscID/receiver.
func (c *SMSCConn) Preferred(smscID, receiver string) bool {
	return c.Filters.Preferred(smscID, receiver)
}

// NormalizeReceiver applies this connection's unified-prefix rewrite.
func (c *SMSCConn) NormalizeReceiver(receiver string) string {
	return c.Filters.NormalizeReceiver(receiver)
}

// Info returns the read-only admin/status snapshot.
func (c *SMSCConn) Info() Info {
	c.mu.Lock()
	status := c.status
	killed := c.killedReason
	stopped := c.stopped
	connectTime := c.connectTime
	load := c.load
	c.mu.Unlock()

	info := Info{
		Name:          c.Name,
		ID:            c.ID,
		Status:        status.String(),
		IsStopped:     stopped,
		OnlineSeconds: onlineSeconds(connectTime),
		Sent:          c.sent.Value(),
		Received:      c.received.Value(),
		Failed:        c.failed.Value(),
		Queued:        c.Queued(),
		Load:          load,
	}
	if killed != KilledNone {
		info.KilledReason = killed.String()
	}
	return info
}
