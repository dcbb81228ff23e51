// Package rpc provides the container protocol stack of xceiver. It is the
// communication layer between the stand-alone client and a datanode.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, the error types, configuration structures and logging.
//
//   - transport: Framed stream connections with pluggable connectors (TCP, Unix sockets).
//     One connection multiplexes many requests, responses are matched by request id.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The stand-alone client talking to the leader of a pipeline, plus typed
//     helpers for the container commands.
//
//   - server: The datanode side, executing container commands on a chunk store.
package rpc
