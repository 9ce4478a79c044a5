package tcp

import (
	"bytes"
	"framering-toolkit/frame"
	uatomic "framering-toolkit/util/atomic"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var ErrSessionClosed = errors.New("session closed")

// Session owns one accepted connection. Its read routine reassembles
// frames from the raw byte stream, however the peer fragments its writes,
// and submits them to the server's push routine.
type Session struct {
	server *Server
	conn   net.Conn
	id     uint32

	wg sync.WaitGroup

	die       chan struct{}
	closeOnce sync.Once

	closed uatomic.Bool

	framesIn uint64
}

func (ss *Session) init() {
	ss.die = make(chan struct{})
	ss.wg.Add(1)
	go ss.readRoutine()
}

func (ss *Session) ID() uint32 {
	return ss.id
}

func (ss *Session) RemoteAddr() net.Addr {
	return ss.conn.RemoteAddr()
}

func (ss *Session) FramesIn() uint64 {
	return atomic.LoadUint64(&ss.framesIn)
}

func (ss *Session) Close() error {
	return ss.internalClose()
}

func (ss *Session) readRoutine() {
	defer ss.wg.Done()
	defer ss.teardown()

	raw := ss.server.pool.Get()
	defer ss.server.pool.Put(raw)
	buffer := bytes.NewBuffer(make([]byte, 0, len(raw)))

	for {
		n, err := ss.conn.Read(raw)
		if n > 0 {
			atomic.AddUint64(&ss.server.bytesRead, uint64(n))
			buffer.Write(raw[:n])
			if err := ss.drain(buffer); err != nil {
				log.Errorf("Session %d: framing error: %+v", ss.id, err)
				return
			}
		}
		if err != nil {
			if err != io.EOF && !isClosedError(err) {
				log.Errorf("Session %d: read error: %+v", ss.id, err)
			}
			return
		}
	}
}

// drain decodes every complete frame buffered so far and hands each to the
// push routine. Incomplete trailing bytes stay buffered for the next read.
func (ss *Session) drain(buffer *bytes.Buffer) error {
	for {
		f, ok, err := frame.Decode(buffer)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		atomic.AddUint64(&ss.framesIn, 1)
		select {
		case ss.server.push <- pushRequest{sid: ss.id, frame: f}:
		case <-ss.die:
			return nil
		case <-ss.server.die:
			return nil
		}
	}
}

// teardown runs exactly once, on read routine exit, for every session
// regardless of which side initiated the close.
func (ss *Session) teardown() {
	ss.server.remove(ss.id)
	ss.closeOnce.Do(func() {
		close(ss.die)
	})
	ss.conn.Close()
	ss.closed.Set(true)
	atomic.AddUint64(&ss.server.sessionsClosed, 1)
	log.Debugf("Session %d: closed", ss.id)
}

func (ss *Session) internalClose() error {
	if ss.closed.Get() {
		return ErrSessionClosed
	}
	ss.closeOnce.Do(func() {
		close(ss.die)
	})
	ss.conn.Close()
	ss.wg.Wait()
	return nil
}

func isClosedError(err error) bool {
	_, ok := err.(*net.OpError)
	return ok
}
