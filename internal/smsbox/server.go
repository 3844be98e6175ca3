package smsbox

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// Server accepts smsbox client connections, admits them by source IP,
// and dispatches outbound MT traffic to the least-loaded connection.
type Server struct {
	addr     string
	filter   *IPFilter
	cb       Callbacks
	logger   *zap.Logger
	listener net.Listener

	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewServer builds a Server; filter may be nil to admit every address.
func NewServer(addr string, filter *IPFilter, cb Callbacks, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		filter: filter,
		cb:     cb,
		logger: logger,
		conns:  make(map[string]*Conn),
	}
}

// Listen opens the server's TCP listener without yet accepting.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("smsbox: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. Each accepted connection runs in its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	var wg sync.WaitGroup
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("smsbox: accept: %w", err)
		}

		host, _, splitErr := net.SplitHostPort(nc.RemoteAddr().String())
		if splitErr == nil && s.filter != nil && !s.filter.Admit(net.ParseIP(host)) {
			s.logger.Info("smsbox: rejecting connection by ip filter", zap.String("addr", nc.RemoteAddr().String()))
			nc.Close()
			continue
		}

		id := s.nextID()
		c := NewConn(id, nc, Callbacks{Receive: s.cb.Receive, Disconnect: s.remove}, s.logger)
		s.add(c)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Serve(ctx); err != nil {
				s.logger.Info("smsbox: connection closed", zap.String("id", id), zap.Error(err))
			}
		}()
	}
}

// nextID returns a fresh connection id. Using a random uuid rather than a
// process-local counter keeps ids distinguishable across bearerbox
// restarts in log correlation and the admin status output.
func (s *Server) nextID() string {
	return "smsbox-" + uuid.NewString()
}

func (s *Server) add(c *Conn) {
	s.mu.Lock()
	s.conns[c.ID()] = c
	s.mu.Unlock()
}

func (s *Server) remove(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c.ID())
	s.mu.Unlock()
	if s.cb.Disconnect != nil {
		s.cb.Disconnect(c)
	}
}

// Conns returns a snapshot of the currently active connections.
func (s *Server) Conns() []*Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Dispatch routes m to the least-loaded active connection. It reports
// false if no connection is available.
func (s *Server) Dispatch(m *msg.Msg) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Conn
	for _, c := range s.conns {
		if best == nil || c.Load() < best.Load() {
			best = c
		}
	}
	if best == nil {
		return false
	}
	best.Send(m)
	return true
}

// Close closes the listener and every active connection.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		c.Close()
	}
	return err
}
