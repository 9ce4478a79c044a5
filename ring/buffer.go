// Package ring implements a fixed-capacity single-producer single-consumer
// byte ring that stores whole frames. Frames are committed atomically:
// the consumer either sees a complete frame or nothing at all.
package ring

import (
	"errors"
	"framering-toolkit/frame"
	"sync/atomic"
)

// DefaultDepth absorbs the expected burst profile without stalling the
// producer. It is a capacity tuning knob, not a protocol constant.
const DefaultDepth = 2048

var (
	ErrInsufficientSpace = errors.New("insufficient space in ring buffer")
	ErrFrameTooLarge     = errors.New("frame can never fit in ring buffer")
	ErrEmpty             = errors.New("ring buffer is empty")
	ErrCorrupt           = errors.New("ring buffer content is corrupt")
)

// Buffer is the framed ring. Cursors are logical, monotonically increasing
// byte counts; the physical cell address is cursor mod depth. Occupancy is
// always derived as write-read so the two can never disagree.
//
// Concurrency contract: exactly one goroutine calls TryPush and exactly one
// calls TryPop. Queries are safe from either side. Reset requires that no
// push or pop is in flight; that is a caller obligation, not an internal
// lock.
type Buffer struct {
	write uint64
	read  uint64

	depth uint64
	cells []byte
}

func New(depth int) *Buffer {
	if depth <= 0 {
		panic("Ring depth must be greater than zero")
	}
	return &Buffer{
		depth: uint64(depth),
		cells: make([]byte, depth),
	}
}

func (b *Buffer) Capacity() int {
	return int(b.depth)
}

// Occupancy is the number of buffered, unread bytes. The write cursor is
// loaded before the read cursor: the read cursor can only move towards a
// write cursor already observed, so the result is never negative and never
// exceeds capacity, even while the other side is mid-operation.
func (b *Buffer) Occupancy() int {
	w := atomic.LoadUint64(&b.write)
	r := atomic.LoadUint64(&b.read)
	return int(w - r)
}

func (b *Buffer) FreeSpace() int {
	return int(b.depth) - b.Occupancy()
}

func (b *Buffer) IsEmpty() bool {
	return b.Occupancy() == 0
}

func (b *Buffer) IsFull() bool {
	return b.Occupancy() == int(b.depth)
}

// TryPush appends one frame, all-or-nothing. It never blocks: when the
// frame cannot fit right now it returns ErrInsufficientSpace and leaves
// the ring untouched, and the caller retries later. A frame whose encoded
// size exceeds the ring depth can never fit and fails with
// ErrFrameTooLarge regardless of occupancy.
func (b *Buffer) TryPush(f frame.Frame) error {
	if err := f.Validate(); err != nil {
		return ErrFrameTooLarge
	}
	required := uint64(f.EncodedSize())
	if required > b.depth {
		return ErrFrameTooLarge
	}
	w := atomic.LoadUint64(&b.write)
	r := atomic.LoadUint64(&b.read)
	if b.depth-(w-r) < required {
		return ErrInsufficientSpace
	}
	b.setByte(w, byte(f.Len()))
	b.setByte(w+1, f.Type)
	b.copyIn(w+2, f.Payload)
	// Publish the cursor only after every byte is in place so the consumer
	// can never observe a partially written frame.
	atomic.StoreUint64(&b.write, w+required)
	return nil
}

// TryPop removes and returns the oldest complete frame. It never blocks:
// an empty ring yields ErrEmpty. A header that claims more bytes than the
// current occupancy, or a zero length byte, cannot have been committed by
// TryPush; both yield ErrCorrupt with the ring left untouched so the
// caller can Reset and re-synchronize.
func (b *Buffer) TryPop() (frame.Frame, error) {
	r := atomic.LoadUint64(&b.read)
	w := atomic.LoadUint64(&b.write)
	occupancy := w - r
	if occupancy == 0 {
		return frame.Frame{}, ErrEmpty
	}
	length := uint64(b.getByte(r))
	if length == 0 || occupancy < length+1 {
		return frame.Frame{}, ErrCorrupt
	}
	f := frame.Frame{
		Type:    b.getByte(r + 1),
		Payload: make([]byte, length-1),
	}
	b.copyOut(r+2, f.Payload)
	atomic.StoreUint64(&b.read, r+length+1)
	return f, nil
}

// Reset returns both cursors to zero. Storage is not cleared; stale bytes
// are never read because the read cursor tracks validity. The caller must
// guarantee no concurrent push or pop.
func (b *Buffer) Reset() {
	atomic.StoreUint64(&b.write, 0)
	atomic.StoreUint64(&b.read, 0)
}

func (b *Buffer) setByte(cursor uint64, v byte) {
	b.cells[cursor%b.depth] = v
}

func (b *Buffer) getByte(cursor uint64) byte {
	return b.cells[cursor%b.depth]
}

func (b *Buffer) copyIn(cursor uint64, p []byte) {
	off := int(cursor % b.depth)
	n := copy(b.cells[off:], p)
	if n < len(p) {
		copy(b.cells, p[n:])
	}
}

func (b *Buffer) copyOut(cursor uint64, p []byte) {
	off := int(cursor % b.depth)
	n := copy(p, b.cells[off:])
	if n < len(p) {
		copy(p[n:], b.cells)
	}
}
