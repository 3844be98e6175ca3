// Package dlrstore defines the narrow delivery-report correlation
// interface the core consumes (spec.md §6) and a default in-memory
// implementation. Concrete persistent backends (Redis, Postgres) live in
// sibling packages and satisfy the same Store interface.
package dlrstore

import (
	"context"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// Store correlates an SMSC-assigned message id with the original outbound
// Msg, so a later deliver_sm delivery receipt can be reconstituted into a
// report Msg carrying the sender's original addressing and dlr_url.
//
// Persistence semantics are opaque to the core: a Store may be purely
// in-memory (lost on restart) or backed by Redis/Postgres: spec.md's
// "no persistence across process crashes" non-goal is about the core
// itself, not a prohibition on a Store backend choosing to survive one.
type Store interface {
	// Add registers msg under the (smscID, messageID) key. Called once a
	// submit_sm_resp with status 0 is received for a Msg whose dlr_mask
	// requests a success, failure or buffered report.
	Add(ctx context.Context, smscID, messageID string, msg *msg.Msg) error

	// Find looks up and removes the Msg registered under (smscID,
	// messageID), returning ok=false on a miss. destination and status
	// are accepted for backends that want to validate or log the match;
	// the in-memory implementation ignores them.
	Find(ctx context.Context, smscID, messageID, destination string, status msg.DLRStatus) (*msg.Msg, bool, error)
}
