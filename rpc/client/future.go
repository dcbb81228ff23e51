package client

import (
	"context"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"time"
)

// ResponseFuture is the pending response of a request sent with SendAsync
type ResponseFuture struct {
	future  *transport.Future
	client  *StandaloneClient
	traceID string
	start   time.Time
}

// Done returns a channel that is closed once the response (or failure) is available
func (f *ResponseFuture) Done() <-chan struct{} {
	return f.future.Done()
}

// TraceID returns the trace id the request was sent with
func (f *ResponseFuture) TraceID() string {
	return f.traceID
}

// Get waits for the response. Errors are translated the same way as for SendSync.
// If ctx is done first, the request keeps running and can be waited for again.
func (f *ResponseFuture) Get(ctx context.Context) (*common.Message, error) {
	data, err := f.future.Get(ctx)
	return f.client.finishRequest(f.start, data, err)
}
