package sampleapps

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/jnnngs/5250Web/internal/host"
)

// Server serves the subfile listing to tn3270 clients.
type Server struct {
	listener net.Listener
	newHost  func() host.Host
	pageSize int
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.Mutex
	stopped bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// StartServer listens on addr. Every connection gets its own host from
// newHost.
func StartServer(addr string, pageSize int, newHost func() host.Host) (*Server, error) {
	if newHost == nil {
		return nil, fmt.Errorf("tn3270 listing: no record source")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tn3270 listing failed to listen on %s: %w", addr, err)
	}
	if pageSize <= 0 || pageSize > maxListRows {
		pageSize = maxListRows
	}
	s := &Server{
		listener: listener,
		newHost:  newHost,
		pageSize: pageSize,
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
	go s.serve()
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("tn3270 listing accept failed: %v", err)
			return
		}
		if !s.track(conn) {
			conn.Close()
			return
		}
		go func() {
			defer s.untrack(conn)
			handleListing(conn, s.newHost(), s.pageSize)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Stop closes the listener and every open session, then waits for the
// sessions to finish.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()

		s.mu.Lock()
		s.stopped = true
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
	return err
}
