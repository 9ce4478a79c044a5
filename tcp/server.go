// Package tcp accepts framed byte streams over TCP and funnels the decoded
// frames into a single shared ring buffer. Any number of connections may be
// open at once, but exactly one goroutine ever calls TryPush, preserving
// the ring's single-producer contract. The consumer side drains the ring
// through Server.Ring.
package tcp

import (
	"framering-toolkit/frame"
	"framering-toolkit/ring"
	"framering-toolkit/util"
	uatomic "framering-toolkit/util/atomic"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var ErrServerClosed = errors.New("server closed")

type pushRequest struct {
	sid   uint32
	frame frame.Frame
}

// Stats is a snapshot of the server counters.
type Stats struct {
	Pushed         uint64
	PushedBytes    uint64
	Dropped        uint64
	Oversize       uint64
	BytesRead      uint64
	SessionsOpened uint64
	SessionsClosed uint64
}

type Server struct {
	listener net.Listener
	cfg      Config

	ring *ring.Buffer
	pool *util.BufferPool
	idg  util.IDGenerator

	sessions map[uint32]*Session

	mu sync.RWMutex
	wg sync.WaitGroup

	push chan pushRequest
	die  chan struct{}

	closed uatomic.Bool

	pushed         uint64
	pushedBytes    uint64
	dropped        uint64
	oversize       uint64
	bytesRead      uint64
	sessionsOpened uint64
	sessionsClosed uint64
}

func Listen(network, addr string, cfg Config) (*Server, error) {
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s %s", network, addr)
	}
	return NewServer(l, cfg), nil
}

func NewServer(l net.Listener, cfg Config) *Server {
	cfg = sanitizeConfig(cfg)
	s := &Server{
		listener: l,
		cfg:      cfg,
		ring:     ring.New(cfg.RingDepth),
		pool:     util.NewBufferPool(cfg.ReadBufferSize, 0),
		sessions: make(map[uint32]*Session),
		push:     make(chan pushRequest, cfg.PushBacklog),
		die:      make(chan struct{}),
	}
	s.wg.Add(2)
	go s.acceptRoutine()
	go s.pushRoutine()
	return s
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Ring exposes the shared buffer for the consumer side. The server is the
// ring's sole producer; the caller must be its sole consumer.
func (s *Server) Ring() *ring.Buffer {
	return s.ring
}

func (s *Server) Stats() Stats {
	return Stats{
		Pushed:         atomic.LoadUint64(&s.pushed),
		PushedBytes:    atomic.LoadUint64(&s.pushedBytes),
		Dropped:        atomic.LoadUint64(&s.dropped),
		Oversize:       atomic.LoadUint64(&s.oversize),
		BytesRead:      atomic.LoadUint64(&s.bytesRead),
		SessionsOpened: atomic.LoadUint64(&s.sessionsOpened),
		SessionsClosed: atomic.LoadUint64(&s.sessionsClosed),
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed.Get() {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.closed.Set(true)
	sessions := make([]*Session, 0, len(s.sessions))
	for _, ss := range s.sessions {
		sessions = append(sessions, ss)
	}
	s.mu.Unlock()

	close(s.die)
	err := s.listener.Close()
	for _, ss := range sessions {
		ss.internalClose()
	}
	s.wg.Wait()
	return err
}

func (s *Server) acceptRoutine() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); !ok {
				log.Errorf("Accept error: %+v", err)
			}
			return
		}
		s.addSession(conn)
	}
}

// pushRoutine is the ring's only producer. Session readers hand decoded
// frames over through the push channel.
func (s *Server) pushRoutine() {
	defer s.wg.Done()
	for {
		select {
		case req := <-s.push:
			s.handlePush(req)
		case <-s.die:
			return
		}
	}
}

func (s *Server) handlePush(req pushRequest) {
	err := s.ring.TryPush(req.frame)
	if err == ring.ErrInsufficientSpace && s.cfg.Backpressure == Wait {
		err = s.waitPush(req.frame)
	}
	switch err {
	case nil:
		atomic.AddUint64(&s.pushed, 1)
		atomic.AddUint64(&s.pushedBytes, uint64(req.frame.EncodedSize()))
	case ring.ErrInsufficientSpace:
		atomic.AddUint64(&s.dropped, 1)
		log.Debugf("Session %d: ring full, dropping frame type=%#02x len=%d",
			req.sid, req.frame.Type, req.frame.Len())
	case ring.ErrFrameTooLarge:
		atomic.AddUint64(&s.oversize, 1)
		log.Warnf("Session %d: frame type=%#02x requires %d bytes, ring capacity is %d",
			req.sid, req.frame.Type, req.frame.EncodedSize(), s.ring.Capacity())
	}
}

func (s *Server) waitPush(f frame.Frame) error {
	deadline := time.Now().Add(s.cfg.WaitTimeout)
	ticker := time.NewTicker(s.cfg.WaitInterval)
	defer ticker.Stop()
	for {
		err := s.ring.TryPush(f)
		if err != ring.ErrInsufficientSpace {
			return err
		}
		if !time.Now().Before(deadline) {
			return err
		}
		select {
		case <-ticker.C:
		case <-s.die:
			return err
		}
	}
}

func (s *Server) addSession(conn net.Conn) {
	ss := &Session{
		server: s,
		conn:   conn,
		id:     s.idg.Next(),
	}
	ss.init()
	s.mu.Lock()
	s.sessions[ss.id] = ss
	s.mu.Unlock()
	atomic.AddUint64(&s.sessionsOpened, 1)
	log.Debugf("Session %d: opened from %s", ss.id, conn.RemoteAddr())
}

func (s *Server) remove(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
