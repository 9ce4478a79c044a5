package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	require := require.New(t)

	f := Frame{Type: 0x44, Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	require.Nil(f.Validate())
	require.Equal(5, f.Len())
	require.Equal(6, f.EncodedSize())
	require.Equal([]byte{0x05, 0x44, 0xDE, 0xAD, 0xBE, 0xEF}, f.Encode())

	// Empty payload still carries the TYPE byte
	empty := Frame{Type: 0x10}
	require.Nil(empty.Validate())
	require.Equal(1, empty.Len())
	require.Equal([]byte{0x01, 0x10}, empty.Encode())

	oversized := Frame{Type: 0x20, Payload: make([]byte, MaxPayloadSize+1)}
	require.Equal(ErrPayloadTooLarge, oversized.Validate())
}

func TestFrameAppend(t *testing.T) {
	require := require.New(t)
	first := Frame{Type: 0x01, Payload: []byte{0xAA}}
	second := Frame{Type: 0x02, Payload: []byte{0xBB, 0xCC}}

	buf := first.Append(nil)
	buf = second.Append(buf)
	require.Equal([]byte{0x02, 0x01, 0xAA, 0x03, 0x02, 0xBB, 0xCC}, buf)
}

func TestReadWrite(t *testing.T) {
	require := require.New(t)
	buf := &bytes.Buffer{}
	expected := Frame{Type: 0x44, Payload: []byte("This is the expected content")}

	require.Nil(Write(buf, expected))
	actual, err := Read(buf)
	require.Nil(err)
	require.Equal(expected, actual)

	// Oversized frames must be rejected before anything hits the wire
	buf.Reset()
	oversized := Frame{Type: 0x44, Payload: make([]byte, MaxPayloadSize+1)}
	require.Equal(ErrPayloadTooLarge, Write(buf, oversized))
	require.Zero(buf.Len())

	// Zero LEN byte is a framing violation
	buf.Reset()
	buf.WriteByte(0x00)
	_, err = Read(buf)
	require.Equal(ErrInvalidLength, err)
}

func TestDecode(t *testing.T) {
	require := require.New(t)
	expected := Frame{Type: 0x30, Payload: []byte{0x01, 0x02, 0x03}}
	encoded := expected.Encode()
	buf := &bytes.Buffer{}

	// Feed the encoded frame one byte at a time; Decode must not consume
	// anything until the frame is complete
	for i := 0; i < len(encoded)-1; i++ {
		buf.WriteByte(encoded[i])
		_, ok, err := Decode(buf)
		require.Nil(err)
		require.False(ok)
		require.Equal(i+1, buf.Len())
	}
	buf.WriteByte(encoded[len(encoded)-1])
	actual, ok, err := Decode(buf)
	require.Nil(err)
	require.True(ok)
	require.Equal(expected, actual)
	require.Zero(buf.Len())

	// Back-to-back frames decode in order
	buf.Write(Frame{Type: 0x01, Payload: []byte{0xAA}}.Encode())
	buf.Write(Frame{Type: 0x02}.Encode())
	f1, ok, err := Decode(buf)
	require.Nil(err)
	require.True(ok)
	require.Equal(byte(0x01), f1.Type)
	f2, ok, err := Decode(buf)
	require.Nil(err)
	require.True(ok)
	require.Equal(byte(0x02), f2.Type)
	require.Empty(f2.Payload)

	// Zero LEN byte poisons the stream
	buf.Reset()
	buf.WriteByte(0x00)
	_, _, err = Decode(buf)
	require.Equal(ErrInvalidLength, err)
}
