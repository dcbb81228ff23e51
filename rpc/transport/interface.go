package transport

import (
	"context"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes the encoded request and returns the encoded response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every received request frame
	RegisterHandler(handler ServerHandleFunc)
	// Listen creates the listener and starts accepting connections in the background.
	// It returns once the listener is ready.
	Listen(config common.ServerConfig) error
	// Addr returns the address of the listener, nil before Listen
	Addr() net.Addr
	// Close stops accepting, closes all connections and waits for in-flight requests
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientConnector defines the transport specific connection operations of a client
type IClientConnector interface {
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
	// Connect establishes a single connection to host:port. The unix connector
	// treats host as the socket path and ignores port.
	Connect(ctx context.Context, host string, port int) (net.Conn, error)
	// UpgradeConnection applies protocol specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// IResponseHandler owns one established connection. It writes request frames,
// matches response frames to requests by id and fails all pending requests
// when the connection is lost or closed.
//
// All errors returned by a handler, directly or through a Future, are of type
// *ExecutionError.
type IResponseHandler interface {
	// SendSync sends req and blocks until the matched response arrived,
	// the request failed or ctx is done
	SendSync(ctx context.Context, req []byte) ([]byte, error)
	// SendAsync sends req and returns a Future once the request was admitted and written
	SendAsync(ctx context.Context, req []byte) (*Future, error)
	// IsActive reports whether the connection is still usable
	IsActive() bool
	// Close closes the connection and waits for the read loop to exit.
	// Pending requests fail with common.ErrClosed. Calling Close twice is a no-op.
	Close() error
	// RemoteAddr returns the endpoint the handler is bound to
	RemoteAddr() string
}

// IHandlerFactory binds a new response handler to an established connection
type IHandlerFactory interface {
	Bind(conn net.Conn, endpoint string) IResponseHandler
}
