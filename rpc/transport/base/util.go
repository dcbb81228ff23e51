package base

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"io"
	"net"
)

const (
	// frameHeaderSize is 8 bytes request id + 4 bytes content length
	frameHeaderSize = 12
	// MaxFrameSize is the largest payload accepted by readFrame
	MaxFrameSize = 64 * 1024 * 1024
)

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, requestID uint64, data []byte) error {
	if len(data) > MaxFrameSize {
		return &common.ProtocolError{Msg: fmt.Sprintf("frame of %d bytes exceeds limit of %d", len(data), MaxFrameSize)}
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(conn net.Conn, buf []byte) (uint64, []byte, error) {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err := io.ReadFull(conn, buf[:frameHeaderSize]); err != nil {
		return 0, nil, err
	}

	requestID := binary.BigEndian.Uint64(buf[:8])
	contentLength := binary.BigEndian.Uint32(buf[8:12])

	if contentLength > MaxFrameSize {
		return requestID, nil, &common.ProtocolError{
			Msg: fmt.Sprintf("frame of %d bytes exceeds limit of %d", contentLength, MaxFrameSize),
		}
	}

	if contentLength == 0 {
		return requestID, []byte{}, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return 0, nil, err
	}

	return requestID, buf[:contentLength], nil
}
