// Package transport defines the interfaces between the container client, the
// container server and the network. It provides a common contract that the
// tcp and unix implementations fulfill.
//
// Key Components:
//
//   - IClientConnector: dials one connection to a resolved host and port and
//     applies socket options to it.
//
//   - IResponseHandler / IHandlerFactory: a handler is bound once to an
//     established connection. It writes request frames, matches responses by
//     request id and reports liveness.
//
//   - Future / ExecutionError: the pending result of an asynchronous request and
//     the wrapper every handler failure arrives in.
//
//   - IRPCServerTransport / ServerHandleFunc: server side accept loop and the
//     request callback.
package transport
