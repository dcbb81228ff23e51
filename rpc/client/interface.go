package client

import (
	"context"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/common"
)

// IXceiverClient is the capability set of a client talking to the members of
// one pipeline. The stand-alone client is one implementation, a consensus
// replicated variant would be a sibling.
type IXceiverClient interface {
	// Connect establishes the connection to the pipeline's leader.
	// It fails with common.ErrAlreadyConnected if a live connection exists,
	// with common.ErrClosed after Close and with a *common.TransportError
	// if the dial or the protocol upgrade failed.
	Connect(ctx context.Context) error
	// Close closes the client. It is idempotent and never fails on a client
	// that was never connected. In-flight requests fail with common.ErrClosed.
	Close() error
	// IsConnected reports whether the connection is live right now
	IsConnected() bool
	// GetPipeline returns the pipeline the client was created for
	GetPipeline() *pipeline.Pipeline
	// GetPipelineType returns the replication type the client implements
	GetPipelineType() pipeline.ReplicationType
	// SendSync sends req and blocks until the matched response arrived
	SendSync(ctx context.Context, req *common.Message) (*common.Message, error)
	// SendAsync sends req and returns a future for the response
	SendAsync(ctx context.Context, req *common.Message) (*ResponseFuture, error)
	// CreatePipeline sets up the pipeline on its members, if the variant needs it
	CreatePipeline(ctx context.Context, id string, endpoints []pipeline.Endpoint) error
}

// ConnectionState is the externally observable lifecycle state of a client
type ConnectionState uint8

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateClosed // terminal
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
