package smscconn

import "github.com/oonrumail/bearerbox/internal/msg"

// Callbacks are the upcalls spec.md §9 models as function pointers on the
// C SMSCConn struct. A driver invokes exactly one of Sent/SendFailed per
// message it accepted, and Receive for every inbound message it decodes.
type Callbacks struct {
	Sent       func(m *msg.Msg)
	SendFailed func(m *msg.Msg, reason FailReason)
	Receive    func(m *msg.Msg)

	// Connected is called once a driver transitions to active/active-recv.
	Connected func()
}

// Driver is the trait/interface spec.md §9 calls for: every concrete
// protocol implementation (SMPP and, eventually, others) satisfies it.
// Open MUST NOT block; it starts whatever background goroutines the
// driver needs and returns immediately.
type Driver interface {
	// Open starts the driver's connection goroutines. cb is used for the
	// lifetime of the driver to report outcomes upward.
	Open(cb Callbacks) error

	// SendMsg enqueues m for delivery. It MUST NOT block and MUST NOT
	// retain m beyond what it duplicates internally.
	SendMsg(m *msg.Msg) error

	// Shutdown requests an orderly stop. If finishSending is false every
	// queued and pending message is failed with FailShutdown first. If it
	// is true the driver stops accepting messages and closes its
	// connection without sending what is still queued; those messages,
	// and any still awaiting a submit response, are then failed with
	// FailShutdown.
	Shutdown(finishSending bool)

	// Queued returns the current outbound backlog size.
	Queued() int

	// Stop/Start toggle inbound delivery suspension without tearing down
	// the underlying bind.
	Stop()
	Start()
}
