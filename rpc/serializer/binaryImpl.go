package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"math"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Header layout: CmdType (1 byte), Result (1 byte), flags (1 byte)
const headerSize = 3

// Bit flags to indicate which optional fields are present
const (
	hasTraceID     byte = 1 << 0
	hasContainerID byte = 1 << 1
	hasLocalID     byte = 1 << 2
	hasData        byte = 1 << 3
	hasLocalIDs    byte = 1 << 4
	hasErr         byte = 1 << 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if len(msg.TraceID) > math.MaxUint16 {
		return nil, fmt.Errorf("trace id too long: %d bytes", len(msg.TraceID))
	}

	result := make([]byte, b.sizeBytes(msg))
	result[0] = byte(msg.CmdType)
	result[1] = byte(msg.Result)

	var flags byte = 0
	pos := headerSize

	if msg.TraceID != "" {
		flags |= hasTraceID
		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(msg.TraceID)))
		pos += 2
		pos += copy(result[pos:], msg.TraceID)
	}

	if msg.ContainerID != 0 {
		flags |= hasContainerID
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.ContainerID)
		pos += 8
	}

	if msg.LocalID != 0 {
		flags |= hasLocalID
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.LocalID)
		pos += 8
	}

	// nil and empty payloads are distinguished by the flag
	if msg.Data != nil {
		flags |= hasData
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Data)))
		pos += 4
		pos += copy(result[pos:], msg.Data)
	}

	if msg.LocalIDs != nil {
		flags |= hasLocalIDs
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.LocalIDs)))
		pos += 4
		for _, id := range msg.LocalIDs {
			binary.BigEndian.PutUint64(result[pos:pos+8], id)
			pos += 8
		}
	}

	if msg.Err != "" {
		flags |= hasErr
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Err)))
		pos += 4
		copy(result[pos:], msg.Err)
	}

	result[2] = flags
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	msg.CmdType = common.CommandType(data[0])
	msg.Result = common.ResultCode(data[1])
	flags := data[2]
	pos := headerSize

	if flags&hasTraceID != 0 {
		if pos+2 > len(data) {
			return fmt.Errorf("data too short for trace id length")
		}
		traceLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+traceLen > len(data) {
			return fmt.Errorf("data too short for trace id")
		}
		msg.TraceID = string(data[pos : pos+traceLen])
		pos += traceLen
	} else {
		msg.TraceID = ""
	}

	if flags&hasContainerID != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for container id")
		}
		msg.ContainerID = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.ContainerID = 0
	}

	if flags&hasLocalID != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for local id")
		}
		msg.LocalID = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.LocalID = 0
	}

	if flags&hasData != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for payload length")
		}
		dataLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if dataLen < 0 || pos+dataLen > len(data) {
			return fmt.Errorf("data too short for payload")
		}

		// Allocate only if needed
		if msg.Data == nil || cap(msg.Data) < dataLen {
			msg.Data = make([]byte, dataLen)
		} else {
			msg.Data = msg.Data[:dataLen]
		}
		copy(msg.Data, data[pos:pos+dataLen])
		pos += dataLen
	} else {
		msg.Data = nil
	}

	if flags&hasLocalIDs != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for local id count")
		}
		count := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if count < 0 || count > (len(data)-pos)/8 {
			return fmt.Errorf("data too short for %d local ids", count)
		}
		msg.LocalIDs = make([]uint64, count)
		for i := range msg.LocalIDs {
			msg.LocalIDs[i] = binary.BigEndian.Uint64(data[pos : pos+8])
			pos += 8
		}
	} else {
		msg.LocalIDs = nil
	}

	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}
		errLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if errLen < 0 || pos+errLen > len(data) {
			return fmt.Errorf("data too short for error data")
		}
		msg.Err = string(data[pos : pos+errLen])
	} else {
		msg.Err = ""
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.TraceID != "" {
		size += 2 + len(msg.TraceID) // 2 bytes for length + trace id
	}
	if msg.ContainerID != 0 {
		size += 8
	}
	if msg.LocalID != 0 {
		size += 8
	}
	if msg.Data != nil {
		size += 4 + len(msg.Data) // 4 bytes for length + payload
	}
	if msg.LocalIDs != nil {
		size += 4 + 8*len(msg.LocalIDs) // 4 bytes for count + ids
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}

	return size
}
