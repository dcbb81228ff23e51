package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single container command, used for both requests and
// responses. Which fields are used depends on the command type.
type Message struct {
	// Type of the command
	CmdType CommandType `json:"cmd_type"`

	// TraceID correlates a request with its response in logs
	TraceID string `json:"trace_id,omitempty"`

	// General fields
	ContainerID uint64   `json:"container_id,omitempty"` // Used for: PutChunk, ReadChunk, DeleteChunk, ListChunks
	LocalID     uint64   `json:"local_id,omitempty"`     // Used for: PutChunk, ReadChunk, DeleteChunk
	Data        []byte   `json:"data,omitempty"`         // Used for: Echo, PutChunk (request), ReadChunk (response)
	LocalIDs    []uint64 `json:"local_ids,omitempty"`    // Used for: ListChunks (response)

	// Response only fields
	Result ResultCode `json:"result,omitempty"` // Success if the command was executed
	Err    string     `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message
}

// IsSuccess reports whether a response carries the Success result
func (m *Message) IsSuccess() bool {
	return m.Result == ResultSuccess && m.CmdType != CmdError
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewEchoRequest creates a new Echo request, the server returns the payload unchanged
func NewEchoRequest(payload []byte) *Message {
	return &Message{
		CmdType: CmdEcho,
		Data:    payload,
	}
}

// NewPutChunkRequest creates a new PutChunk request
func NewPutChunkRequest(containerID, localID uint64, data []byte) *Message {
	return &Message{
		CmdType:     CmdPutChunk,
		ContainerID: containerID,
		LocalID:     localID,
		Data:        data,
	}
}

// NewReadChunkRequest creates a new ReadChunk request
func NewReadChunkRequest(containerID, localID uint64) *Message {
	return &Message{
		CmdType:     CmdReadChunk,
		ContainerID: containerID,
		LocalID:     localID,
	}
}

// NewDeleteChunkRequest creates a new DeleteChunk request
func NewDeleteChunkRequest(containerID, localID uint64) *Message {
	return &Message{
		CmdType:     CmdDeleteChunk,
		ContainerID: containerID,
		LocalID:     localID,
	}
}

// NewListChunksRequest creates a new ListChunks request
func NewListChunksRequest(containerID uint64) *Message {
	return &Message{
		CmdType:     CmdListChunks,
		ContainerID: containerID,
	}
}

// NewResponse creates a successful response for req. The command type,
// trace id and the addressed chunk are copied from the request.
func NewResponse(req *Message) *Message {
	return &Message{
		CmdType:     req.CmdType,
		TraceID:     req.TraceID,
		ContainerID: req.ContainerID,
		LocalID:     req.LocalID,
		Result:      ResultSuccess,
	}
}

// NewErrorResponse creates a failed response for req
func NewErrorResponse(req *Message, result ResultCode, err string) *Message {
	resp := NewResponse(req)
	resp.Result = result
	resp.Err = err
	return resp
}

// NewMalformedResponse creates a response for a request that could not be decoded
func NewMalformedResponse(err string) *Message {
	return &Message{
		CmdType: CmdError,
		Result:  ResultMalformedRequest,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Command Type Definition
// --------------------------------------------------------------------------

// CommandType defines the type of a container command.
type CommandType uint8

const (
	CmdUnknown     CommandType = iota
	CmdEcho                    // Round trip a payload
	CmdPutChunk                // Write a chunk
	CmdReadChunk               // Read a chunk
	CmdDeleteChunk             // Delete a chunk
	CmdListChunks              // List the chunks of a container
	CmdError                   // Response to a request that could not be decoded
)

var commandTypeNames = map[CommandType]string{
	CmdEcho:        "echo",
	CmdPutChunk:    "putChunk",
	CmdReadChunk:   "readChunk",
	CmdDeleteChunk: "deleteChunk",
	CmdListChunks:  "listChunks",
	CmdError:       "error",
}

// String returns the string representation of a CommandType.
func (t CommandType) String() string {
	if name, ok := commandTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for CommandType.
// This allows CommandType to be serialized as a string in JSON.
func (t CommandType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for CommandType.
func (t *CommandType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for cmd, name := range commandTypeNames {
		if name == s {
			*t = cmd
			return nil
		}
	}
	return fmt.Errorf("unknown command type: %s", s)
}

// --------------------------------------------------------------------------
// Result Codes
// --------------------------------------------------------------------------

// ResultCode is the outcome of a command as reported by the server
type ResultCode uint8

const (
	ResultSuccess          ResultCode = iota // 0: Command executed successfully.
	ResultUnsupported                        // 1: Command type not supported by the server.
	ResultMalformedRequest                   // 2: Request could not be decoded.
	ResultContainerMissing                   // 3: Container does not exist.
	ResultNoSuchChunk                        // 4: Chunk does not exist.
	ResultIOException                        // 5: Storage failure on the server.
)

// String returns the string representation of a ResultCode.
func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultUnsupported:
		return "UNSUPPORTED_REQUEST"
	case ResultMalformedRequest:
		return "MALFORMED_REQUEST"
	case ResultContainerMissing:
		return "CONTAINER_NOT_FOUND"
	case ResultNoSuchChunk:
		return "NO_SUCH_CHUNK"
	case ResultIOException:
		return "IO_EXCEPTION"
	default:
		return fmt.Sprintf("RESULT(%d)", uint8(r))
	}
}
