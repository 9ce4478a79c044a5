// Package frame implements the length-prefixed record format used on the
// wire and inside the ring buffer: a 1-byte LEN counting TYPE+PAYLOAD,
// a 1-byte TYPE, then LEN-1 bytes of opaque payload.
package frame

import "errors"

const (
	// LEN counts the TYPE byte plus the payload, so the payload itself
	// can hold at most MaxBodySize-1 bytes.
	MaxBodySize    = 255
	MaxPayloadSize = MaxBodySize - 1

	// Encoded sizes include the LEN byte.
	MinEncodedSize = 2
	MaxEncodedSize = MaxBodySize + 1
)

var ErrPayloadTooLarge = errors.New("payload too large for 1-byte length framing")

type Frame struct {
	Type    byte
	Payload []byte
}

// Len is the value of the on-wire LEN byte: TYPE plus payload.
func (f Frame) Len() int {
	return 1 + len(f.Payload)
}

// EncodedSize is the total on-wire size including the LEN byte itself.
func (f Frame) EncodedSize() int {
	return f.Len() + 1
}

func (f Frame) Validate() error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	return nil
}

// Append encodes the frame onto dst and returns the extended slice.
// The frame must be valid.
func (f Frame) Append(dst []byte) []byte {
	dst = append(dst, byte(f.Len()), f.Type)
	return append(dst, f.Payload...)
}

func (f Frame) Encode() []byte {
	return f.Append(make([]byte, 0, f.EncodedSize()))
}
