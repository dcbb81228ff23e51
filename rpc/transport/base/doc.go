// Package base implements the transport functionality shared by all network
// protocols (TCP, Unix sockets). Protocol specific behaviour is injected
// through connectors.
//
// Key Components:
//
//   - clientHandler: owns one client connection. Every request takes a permit
//     from the admission gate before it is registered, the permit is released
//     when the request's future completes (response, timeout, cancellation,
//     connection loss or close). A single read loop completes futures by
//     request id, pending requests are kept in an xsync.MapOf.
//
//   - serverTransport: accepts connections in the background and processes
//     the requests of each connection with a bounded number of workers.
//     Responses carry the request id of their request and may be written out
//     of order.
//
// Wire Format:
//
//	Every frame is an 8 byte request id and a 4 byte payload length (both big
//	endian) followed by the payload. Frames are written with net.Buffers so
//	header and payload leave in one write. Payloads above MaxFrameSize are
//	rejected with a common.ProtocolError.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes to a connection are serialized
//	by a mutex, reads happen on a single goroutine per connection.
package base
