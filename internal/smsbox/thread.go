package smsbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/gwlist"
	"github.com/oonrumail/bearerbox/internal/msg"
)

// ThreadBox is an in-process smsbox: a bearerbox and an smsbox-side
// consumer linked directly through msg queues, bypassing wire framing
// entirely. It satisfies the same Receive/Send shape as a networked
// Conn so callers can swap between the two without branching.
type ThreadBox struct {
	inbound  *gwlist.List[*msg.Msg]
	outbound *gwlist.List[*msg.Msg]
	cb       Callbacks
	logger   *zap.Logger
}

// NewThreadBox builds a ThreadBox. cb.Receive gets messages moving
// from smsbox to bearerbox (MO, DLR reports); Send moves the other way.
func NewThreadBox(cb Callbacks, logger *zap.Logger) *ThreadBox {
	t := &ThreadBox{
		inbound:  gwlist.NewList[*msg.Msg](),
		outbound: gwlist.NewList[*msg.Msg](),
		cb:       cb,
		logger:   logger,
	}
	t.outbound.AddProducer()
	return t
}

// Produce is called by the in-process smsbox side to hand a message
// (MO, DLR report) to bearerbox.
func (t *ThreadBox) Produce(m *msg.Msg) {
	t.inbound.Produce(m)
}

// Send enqueues an MT message for the in-process smsbox side to consume.
func (t *ThreadBox) Send(m *msg.Msg) {
	t.outbound.Produce(m)
}

// Consume blocks until an MT message is available for the in-process
// smsbox side, or the ThreadBox is stopped.
func (t *ThreadBox) Consume() (*msg.Msg, bool) {
	return t.outbound.Consume()
}

// Run drains the inbound queue into Callbacks.Receive until ctx is
// cancelled.
func (t *ThreadBox) Run(ctx context.Context) {
	t.inbound.AddProducer()

	go func() {
		<-ctx.Done()
		t.inbound.RemoveProducer()
	}()

	for {
		m, ok := t.inbound.Consume()
		if !ok {
			return
		}
		if t.cb.Receive != nil {
			t.cb.Receive(m)
		}
	}
}

// Stop releases the outbound queue, unblocking any pending Consume calls.
// The inbound queue is released when Run's ctx is cancelled.
func (t *ThreadBox) Stop() {
	t.outbound.RemoveProducer()
}
