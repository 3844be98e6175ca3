// Package smscconn implements the generic SMSC-connection lifecycle,
// routing filters, and selection algorithm shared by every protocol
// driver (SMPP and otherwise). A driver owns the wire protocol; SMSCConn
// owns identity, filters, counters, and the public contract the router
// and smsbox dispatcher depend on.
package smscconn

import "time"

// Status is the connection's position in the lifecycle state machine:
// connecting -> active | active-recv -> reconnecting -> connecting (loop),
// and any state -> disconnected -> dead.
type Status int32

const (
	StatusConnecting   Status = iota
	StatusActive              // bound as transmitter or transceiver
	StatusActiveRecv          // bound as receiver-only
	StatusReconnecting
	StatusDisconnected
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusActiveRecv:
		return "active-recv"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// KilledReason records why a connection transitioned to dead.
type KilledReason int32

const (
	KilledNone KilledReason = iota
	KilledShutdown
	KilledWrongPassword
	KilledConnectFailed
)

func (k KilledReason) String() string {
	switch k {
	case KilledNone:
		return "none"
	case KilledShutdown:
		return "shutdown"
	case KilledWrongPassword:
		return "wrong-password"
	case KilledConnectFailed:
		return "connect-failed"
	default:
		return "unknown"
	}
}

// FailReason is the reason a message was not sent successfully. It is
// delivered to the SendFailed callback alongside the message.
type FailReason int32

const (
	FailTemporary FailReason = iota // transport error, retry-able upstream
	FailRejected                    // SMSC permanently rejected the message
	FailShutdown                    // connection was shutting down
)

func (f FailReason) String() string {
	switch f {
	case FailTemporary:
		return "temporary"
	case FailRejected:
		return "rejected"
	case FailShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Info is the read-only admin/status snapshot spec.md §6 requires.
type Info struct {
	Name          string       `json:"name"`
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	KilledReason  string       `json:"killed_reason,omitempty"`
	IsStopped     bool         `json:"is_stopped"`
	OnlineSeconds float64      `json:"online_seconds"`
	Sent          int64        `json:"sent"`
	Received      int64        `json:"received"`
	Failed        int64        `json:"failed"`
	Queued        int          `json:"queued"`
	Load          int          `json:"load"`
}

func onlineSeconds(connectTime time.Time) float64 {
	if connectTime.IsZero() {
		return 0
	}
	return time.Since(connectTime).Seconds()
}
