package container

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IContainerStore stores chunks addressed by container id and local id.
// Write operations return only an error (nil on success), read operations
// return the requested data along with an error. Returned errors are of type *Error.
type IContainerStore interface {
	// PutChunk writes a chunk, creating the container if it does not exist.
	// An existing chunk with the same local id is overwritten.
	PutChunk(containerID, localID uint64, data []byte) error
	// ReadChunk returns a copy of the chunk data.
	ReadChunk(containerID, localID uint64) ([]byte, error)
	// DeleteChunk removes a chunk from its container.
	DeleteChunk(containerID, localID uint64) error
	// ListChunks returns the local ids of a container in ascending order.
	ListChunks(containerID uint64) ([]uint64, error)
	// Stats returns the number of containers, chunks and stored bytes.
	Stats() Stats
}

// Stats summarizes the content of a store
type Stats struct {
	Containers int
	Chunks     int
	Bytes      int64
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is lets errors.Is match on the return code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// RetCode is the return code of a failed store operation
type RetCode uint8

const (
	RetCInternalError     RetCode = iota // Unexpected failure of the store
	RetCContainerNotFound                // The container does not exist
	RetCNoSuchChunk                      // The chunk does not exist in the container
	RetCInvalidArgument                  // An argument is not allowed (e.g. container id 0)
)

func (c RetCode) String() string {
	switch c {
	case RetCInternalError:
		return "RetCInternalError"
	case RetCContainerNotFound:
		return "RetCContainerNotFound"
	case RetCNoSuchChunk:
		return "RetCNoSuchChunk"
	case RetCInvalidArgument:
		return "RetCInvalidArgument"
	default:
		return "RetCUnknown"
	}
}

// Sentinels for errors.Is, they match any message with the same code
var (
	ErrContainerNotFound = &Error{Code: RetCContainerNotFound}
	ErrNoSuchChunk       = &Error{Code: RetCNoSuchChunk}
	ErrInvalidArgument   = &Error{Code: RetCInvalidArgument}
)
