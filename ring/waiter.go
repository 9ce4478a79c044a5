package ring

import (
	"framering-toolkit/frame"
	uerrors "framering-toolkit/util/errors"
	"time"
)

const (
	defaultInitialBackoff = 50 * time.Microsecond
	defaultMaxBackoff     = 5 * time.Millisecond
)

// Waiter layers blocking semantics on top of the non-blocking Buffer the
// way callers are meant to: polling with exponential backoff. The Buffer
// itself never blocks, so a Waiter on one side composes freely with a
// non-blocking caller on the other.
type Waiter struct {
	buf *Buffer

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewWaiter(buf *Buffer) *Waiter {
	return &Waiter{
		buf:            buf,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

func (w *Waiter) Buffer() *Buffer {
	return w.buf
}

// Push retries TryPush until it succeeds, fails permanently, or the
// deadline passes. A zero deadline means wait indefinitely. Deadline
// expiry yields uerrors.ErrTimeout.
func (w *Waiter) Push(f frame.Frame, deadline time.Time) error {
	backoff := w.initialBackoff
	for {
		err := w.buf.TryPush(f)
		if err != ErrInsufficientSpace {
			return err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return uerrors.ErrTimeout
		}
		time.Sleep(backoff)
		if backoff < w.maxBackoff {
			backoff *= 2
		}
	}
}

// Pop retries TryPop until a frame arrives, a permanent error surfaces,
// or the deadline passes. A zero deadline means wait indefinitely.
func (w *Waiter) Pop(deadline time.Time) (frame.Frame, error) {
	backoff := w.initialBackoff
	for {
		f, err := w.buf.TryPop()
		if err != ErrEmpty {
			return f, err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return frame.Frame{}, uerrors.ErrTimeout
		}
		time.Sleep(backoff)
		if backoff < w.maxBackoff {
			backoff *= 2
		}
	}
}
