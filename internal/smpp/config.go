// Package smpp implements the exemplar SMSC protocol driver: an SMPP
// v3.4 transmitter/receiver/transceiver that binds, exchanges PDUs over a
// hand-rolled codec (internal/smpp/pdu), and satisfies the
// internal/smscconn.Driver contract.
package smpp

import (
	"time"

	"github.com/oonrumail/bearerbox/internal/dlrstore"
	"go.uber.org/zap"
)

// BindType selects which of the three SMPP bind commands a Driver uses.
type BindType int

const (
	BindTransmitter BindType = iota
	BindReceiver
	BindTransceiver
)

// WaitAckAction selects what the wait-ack sweep does with a pending
// submit that has outlived WaitAck.
type WaitAckAction int

const (
	WaitAckReconnect WaitAckAction = iota
	WaitAckRequeue
	WaitAckNeverExpire
)

// MessageIDFormat selects how message-id strings from deliver_sm / the
// submit_sm_resp message_id field are interpreted when the DLR correlation
// key is built. The default "as-is" preserves the remote representation.
type MessageIDFormat int

const (
	MessageIDAsIs MessageIDFormat = iota
	MessageIDDecimal
	MessageIDHex
)

// Config carries every tunable spec.md §4.3/§5 names.
type Config struct {
	Host       string
	Port       int
	SystemID   string
	Password   string
	SystemType string
	BindType   BindType

	InterfaceVersion uint8 // BCD-encoded, e.g. 0x34

	SourceAddrTON uint8
	SourceAddrNPI uint8
	DestAddrTON   uint8
	DestAddrNPI   uint8

	AltCharset string // non-empty enables the alt-charset re-encode path

	EnquireLinkInterval time.Duration
	ConnectionTimeout   time.Duration
	MaxPendingSubmits   int
	Throughput          float64 // messages/sec, 0 = unlimited
	ThrottlingSleepTime time.Duration
	WaitAck             time.Duration
	WaitAckAction       WaitAckAction
	ShutdownTimeout     time.Duration
	ReconnectDelay      time.Duration

	MessageIDFormatDeliverSM MessageIDFormat
	MessageIDFormatSubmitSM  MessageIDFormat

	SMSCID string
}

// DefaultConfig returns a Config pre-filled with spec.md §5's default
// timeouts; callers override fields as needed before constructing a
// Driver.
func DefaultConfig() Config {
	return Config{
		InterfaceVersion:    0x34,
		EnquireLinkInterval: 30 * time.Second,
		ConnectionTimeout:   10 * 30 * time.Second,
		MaxPendingSubmits:   10,
		ThrottlingSleepTime: 15 * time.Second,
		WaitAck:             60 * time.Second,
		WaitAckAction:       WaitAckReconnect,
		ShutdownTimeout:     30 * time.Second,
		ReconnectDelay:      10 * time.Second,
	}
}

// Deps bundles the collaborators a Driver needs beyond its own Config.
type Deps struct {
	Logger   *zap.Logger
	DLRStore dlrstore.Store
}
