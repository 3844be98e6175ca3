package smsbox

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
)

// Callbacks are the upcalls a Conn makes into its owner as traffic and
// lifecycle events occur, mirroring internal/smscconn's own Callbacks
// boundary.
type Callbacks struct {
	Receive    func(*msg.Msg)
	Disconnect func(*Conn)
}

// Conn is one accepted smsbox connection: a read loop decoding framed
// Msg values, a write loop draining an outbound queue, and a heartbeat
// tracker used for load-aware dispatch by Server.
type Conn struct {
	id     string
	conn   net.Conn
	cb     Callbacks
	logger *zap.Logger

	outbound *gwlist.List[*msg.Msg]

	load      atomic.Int64
	lastBeat  atomic.Int64
	closeOnce sync.Once
	closed    chan struct{}
}

// noLoadReported marks that no heartbeat carrying a load value has been
// seen yet, so Load() falls back to the outbound queue length.
const noLoadReported = -1

// NewConn wraps an accepted net.Conn.
func NewConn(id string, nc net.Conn, cb Callbacks, logger *zap.Logger) *Conn {
	c := &Conn{
		id:       id,
		conn:     nc,
		cb:       cb,
		logger:   logger,
		outbound: gwlist.NewList[*msg.Msg](),
		closed:   make(chan struct{}),
	}
	c.lastBeat.Store(time.Now().UnixNano())
	c.load.Store(noLoadReported)
	return c
}

// ID identifies this connection among Server's active set.
func (c *Conn) ID() string { return c.id }

// Load returns the box-reported load from its last heartbeat, the
// load-aware dispatch figure spec.md §4.4 describes; until the first
// heartbeat arrives it falls back to the outbound queue length.
func (c *Conn) Load() int {
	if l := c.load.Load(); l != noLoadReported {
		return int(l)
	}
	return c.outbound.Len()
}

// Alive reports whether a heartbeat or traffic has been seen within
// the given timeout.
func (c *Conn) Alive(timeout time.Duration) bool {
	last := time.Unix(0, c.lastBeat.Load())
	return time.Since(last) < timeout
}

// Send enqueues m for delivery to the smsbox client. It never blocks on
// the network; the write loop drains the queue asynchronously.
func (c *Conn) Send(m *msg.Msg) {
	c.outbound.Produce(m)
}

// Close tears down the connection and unblocks Serve's goroutines.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// Serve runs the connection's read and write loops until either side
// closes or ctx is cancelled, then returns once both loops have exited.
func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.outbound.AddProducer()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		errCh <- c.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		errCh <- c.writeLoop()
	}()

	var first error
	select {
	case first = <-errCh:
	case <-ctx.Done():
	}

	c.Close()
	c.outbound.RemoveProducer()
	wg.Wait()

	if c.cb.Disconnect != nil {
		c.cb.Disconnect(c)
	}
	return first
}

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		m, err := ReadFramed(c.conn)
		if err != nil {
			return fmt.Errorf("smsbox: read frame from %s: %w", c.id, err)
		}
		c.lastBeat.Store(time.Now().UnixNano())

		if m.Type == msg.TypeHeartbeat {
			if m.Heartbeat != nil {
				c.load.Store(int64(m.Heartbeat.Load))
			}
			continue
		}
		if c.cb.Receive != nil {
			c.cb.Receive(m)
		}
	}
}

func (c *Conn) writeLoop() error {
	for {
		m, ok := c.outbound.Consume()
		if !ok {
			return nil
		}
		if err := WriteFramed(c.conn, m); err != nil {
			return fmt.Errorf("smsbox: write frame to %s: %w", c.id, err)
		}
	}
}
