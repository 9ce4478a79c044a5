package frame

import (
	"bytes"
	"errors"
	uio "framering-toolkit/util/io"
	"io"
)

// A LEN byte of zero cannot be produced by a conforming sender; the
// stream is unrecoverable once one is seen.
var ErrInvalidLength = errors.New("invalid frame length byte")

// Read assembles one complete frame from r, blocking until all of its
// bytes arrive. The sender is free to fragment a frame across any number
// of writes; io.ReadFull stitches the pieces back together.
func Read(r io.Reader) (Frame, error) {
	length, err := uio.ReadByte(r)
	if err != nil {
		return Frame{}, err
	}
	if length == 0 {
		return Frame{}, ErrInvalidLength
	}
	body, err := uio.ReadBytes(r, int(length))
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: body[0], Payload: body[1:]}, nil
}

func Write(w io.Writer, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return uio.WriteFull(w, f.Encode())
}

// Decode extracts one complete frame from the front of buf. It returns
// ok=false without consuming anything when buf holds only part of a
// frame, letting stream readers accumulate bytes until a frame closes.
func Decode(buf *bytes.Buffer) (Frame, bool, error) {
	data := buf.Bytes()
	if len(data) < 1 {
		return Frame{}, false, nil
	}
	length := int(data[0])
	if length == 0 {
		return Frame{}, false, ErrInvalidLength
	}
	if len(data) < length+1 {
		return Frame{}, false, nil
	}
	f := Frame{
		Type:    data[1],
		Payload: make([]byte, length-1),
	}
	copy(f.Payload, data[2:length+1])
	buf.Next(length + 1)
	return f, true, nil
}
