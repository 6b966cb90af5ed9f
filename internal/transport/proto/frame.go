package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes:
	// 4 bytes frame length + 4 bytes sequence + 1 byte message type.
	FrameHeaderSize = 9

	// MaxChunkSize is the largest buffer a single write-buffer unit carries.
	MaxChunkSize = 64 * 1024 * 1024 // 64 MiB

	// MaxFrameSize is the maximum allowed frame size (including header).
	// It leaves room for the msgpack envelope around a full chunk.
	MaxFrameSize = MaxChunkSize + 1024*1024 // 65 MiB

	// MaxReadSize caps the data returned by one read-buffer unit.
	MaxReadSize = 1024 * 1024 // 1 MiB
)

// Frame is a single protocol message on the wire.
type Frame struct {
	Payload []byte
	Seq     uint32
	MsgType byte
}

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteFrame writes a length-prefixed frame to w.
// Wire format: [4-byte length (big-endian)][4-byte sequence][1-byte msg type][payload]
// The length field includes the sequence, msg type and payload.
// Header and payload are combined into a single Write() call so a frame is
// never interleaved with partial writes on the underlying pipe.
//
//nolint:gosec // G115: payload length bounded by MaxFrameSize check
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload)+FrameHeaderSize > MaxFrameSize {
		return ErrFrameTooLarge
	}
	totalLen := uint32(4 + 1 + len(f.Payload))

	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], totalLen)
	binary.BigEndian.PutUint32(buf[4:8], f.Seq)
	buf[8] = f.MsgType
	copy(buf[FrameHeaderSize:], f.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads a length-prefixed frame from r. A clean end of stream
// before any header byte is reported as io.EOF.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	totalLen := binary.BigEndian.Uint32(header[0:4])
	if uint64(totalLen)+4 > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	if totalLen < 5 {
		return Frame{}, fmt.Errorf("frame too small: length %d", totalLen)
	}

	f := Frame{
		Seq:     binary.BigEndian.Uint32(header[4:8]),
		MsgType: header[8],
	}

	payloadLen := totalLen - 5 // subtract sequence (4) + msg type (1)
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}

	return f, nil
}
