// Package serializer provides message serialization for the container
// protocol. It defines a common interface and multiple implementations for
// encoding common.Message values between client and server.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A three byte header (command,
//     result, flags) is followed by only the fields whose flag is set. Nil and
//     empty payloads are kept apart by the flag.
//
//   - jsonSerializerImpl: JSON encoding, human readable and useful for debugging.
//
//   - gobSerializerImpl: Go's gob encoding. Larger and slower than binary, kept
//     for compatibility.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	  s := serializer.NewBinarySerializer()
//	  data, err := s.Serialize(*common.NewEchoRequest([]byte("ping")))
//	  // ... send data ...
//	  var resp common.Message
//	  err = s.Deserialize(receivedData, &resp)
package serializer
