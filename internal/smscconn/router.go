package smscconn

import "fmt"

// Router selects, for an outbound message, which of a fixed set of
// connections should carry it, applying the ordering rule of spec.md
// §4.2: prefer any preferred candidate, else any usable candidate; within
// a tier pick the smallest Queued() load, ties broken by lowest index.
type Router struct {
	conns []*SMSCConn
}

// NewRouter builds a Router over conns, in the order given — that order is
// also the tie-break order used by Select.
func NewRouter(conns []*SMSCConn) *Router {
	return &Router{conns: append([]*SMSCConn(nil), conns...)}
}

// Conns returns the connections this router was built with, in order.
func (r *Router) Conns() []*SMSCConn {
	return r.conns
}

// ErrNoConnection is returned when no connection is usable for a message.
var ErrNoConnection = fmt.Errorf("smscconn: no usable connection")

// Select picks the best connection for an outbound message addressed to
// receiver and (optionally) pinned to smscID via the message's own
// smsc_id field (empty means "any").
func (r *Router) Select(smscID, receiver string) (*SMSCConn, error) {
	var preferred, usable *SMSCConn
	preferredQueued, usableQueued := -1, -1

	for _, c := range r.conns {
		normalized := c.NormalizeReceiver(receiver)
		if !c.Usable(smscID, normalized) {
			continue
		}
		q := c.Queued()
		if c.Preferred(smscID, normalized) {
			if preferred == nil || q < preferredQueued {
				preferred = c
				preferredQueued = q
			}
			continue
		}
		if usable == nil || q < usableQueued {
			usable = c
			usableQueued = q
		}
	}

	if preferred != nil {
		return preferred, nil
	}
	if usable != nil {
		return usable, nil
	}
	return nil, ErrNoConnection
}

// ByID returns the connection with the given id, or false if none match.
func (r *Router) ByID(id string) (*SMSCConn, bool) {
	for _, c := range r.conns {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Infos returns the admin/status snapshot of every connection, in order.
func (r *Router) Infos() []Info {
	infos := make([]Info, 0, len(r.conns))
	for _, c := range r.conns {
		infos = append(infos, c.Info())
	}
	return infos
}
