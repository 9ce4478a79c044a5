package ring

import (
	"framering-toolkit/frame"
	uerrors "framering-toolkit/util/errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaiter(t *testing.T) {
	b := New(8)
	w := NewWaiter(b)

	t.Run("timeout", func(t *testing.T) {
		require := require.New(t)
		_, err := w.Pop(time.Now().Add(10 * time.Millisecond))
		require.Equal(uerrors.ErrTimeout, err)

		require.Nil(b.TryPush(frame.Frame{Type: 0x01, Payload: []byte{0xAA, 0xBB, 0xCC, 0xDD}}))
		require.Equal(6, b.Occupancy())
		err = w.Push(frame.Frame{Type: 0x02, Payload: []byte{0xEE}}, time.Now().Add(10*time.Millisecond))
		require.Equal(uerrors.ErrTimeout, err)
		b.Reset()
	})

	t.Run("permanent errors pass through", func(t *testing.T) {
		require := require.New(t)
		oversized := frame.Frame{Type: 0x03, Payload: make([]byte, 7)}
		require.Equal(ErrFrameTooLarge, w.Push(oversized, time.Time{}))
	})

	t.Run("blocking handoff", func(t *testing.T) {
		require := require.New(t)
		expected := frame.Frame{Type: 0x44, Payload: []byte{0x01, 0x02}}

		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(5 * time.Millisecond)
			if err := w.Buffer().TryPush(expected); err != nil {
				t.Error(err)
			}
		}()

		f, err := w.Pop(time.Now().Add(time.Second))
		require.Nil(err)
		require.Equal(expected, f)
		wg.Wait()
	})
}
