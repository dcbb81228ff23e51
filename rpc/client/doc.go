// Package client implements the stand-alone container client. A client talks
// to the leader of one pipeline over a single connection and offers a
// blocking and a non-blocking way to send container commands.
//
// Key Components:
//
//   - IXceiverClient: the capability set every client variant implements
//     (connect, close, liveness, pipeline accessors, sync and async dispatch).
//
//   - StandaloneClient: the stand-alone implementation. It resolves the
//     leader's address with a pipeline.Selector, dials it through a
//     transport.IClientConnector and binds a response handler to the
//     connection. A dropped connection is re-established once by the next
//     request. All requests share one admission gate bounding the number of
//     outstanding requests.
//
//   - ResponseFuture: the pending response of SendAsync.
//
//   - Echo, PutChunk, ReadChunk, DeleteChunk, ListChunks: typed container
//     calls on top of any IXceiverClient.
//
// Errors:
//
//	Callers only see the errors defined in the common package. Handler
//	failures with a transport or protocol cause are returned as that cause,
//	common.ErrClosed is returned for requests cut off by Close, any other
//	failure becomes a *common.DispatchError. A failed reconnect is reported as
//	*common.ConnectionUnavailableError wrapping the dial error.
//
// Usage Example:
//
//	p, _ := pipeline.New("p1", []pipeline.Endpoint{
//		pipeline.NewEndpoint("dn1", "10.0.0.1", 0),
//	}, "dn1", pipeline.ReplicationStandAlone)
//
//	c, _ := client.NewStandaloneClient(p, common.DefaultClientConfig(),
//		tcp.NewClientConnector(), serializer.NewBinarySerializer())
//	defer c.Close()
//
//	if err := client.PutChunk(ctx, c, 1, 1, []byte("data")); err != nil {
//		// ...
//	}
//	data, err := client.ReadChunk(ctx, c, 1, 1)
//
// Thread Safety:
//
//	SendSync, SendAsync and IsConnected may be called concurrently. Connect,
//	Reconnect and Close are serialized internally.
package client
