// Package server implements the stand-alone container server. It decodes
// container commands received through a server transport, executes them on a
// container store and encodes the responses.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes a request against a container store.
//
//   - NewContainerServerAdapter: Adapter translating container commands (echo,
//     put, read, delete, list) into container.IContainerStore calls. Store
//     failures are reported through the result code of the response. An
//     optional handler delay slows every response down, which makes the
//     client's admission gate observable.
//
//   - RPCServer: wires transport, serializer, adapter and store together.
//     Start listens in the background, Serve blocks until its context is done.
//
// Requests that cannot be decoded are answered with a CmdError response and
// the MALFORMED_REQUEST result.
//
// Thread Safety:
//
//	The server handles concurrent requests across multiple connections.
//	Start and Close are meant to be called once.
package server
