package common

import (
	"errors"
	"fmt"
	"net"
)

// --------------------------------------------------------------------------
// Lifecycle Errors
// --------------------------------------------------------------------------

var (
	// ErrClosed is returned by every operation on a client after Close was called
	ErrClosed = errors.New("xceiver: client is closed")

	// ErrAlreadyConnected is returned by Connect if the client already holds a live connection
	ErrAlreadyConnected = errors.New("xceiver: client is already connected to a host")
)

// --------------------------------------------------------------------------
// Structured Errors
// --------------------------------------------------------------------------

// TransportError is a handshake or I/O failure on the network layer.
type TransportError struct {
	Op   string // dial, upgrade, write, read
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ProtocolError is returned when a frame or message could not be encoded or decoded.
type ProtocolError struct {
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "protocol error: " + e.Msg
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Msg, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectionUnavailableError is returned when (re)connecting to the leader did
// not result in a live connection. Err holds the underlying cause.
type ConnectionUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionUnavailableError) Error() string {
	return fmt.Sprintf("connection to %s unavailable: %v", e.Endpoint, e.Err)
}

func (e *ConnectionUnavailableError) Unwrap() error { return e.Err }

// DispatchError is returned when a request failed for a reason that is neither
// a transport nor a protocol failure.
type DispatchError struct {
	Msg string
	Err error
}

func (e *DispatchError) Error() string {
	return e.Msg
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ContainerError is a failure reported by the remote node in a response.
type ContainerError struct {
	Result ResultCode
	Msg    string
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container error (%s): %s", e.Result, e.Msg)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// IsTransportFailure reports whether err is (or wraps) a transport or protocol error
func IsTransportFailure(err error) bool {
	var te *TransportError
	var pe *ProtocolError
	return errors.As(err, &te) || errors.As(err, &pe)
}
