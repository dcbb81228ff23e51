package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default values of the client configuration
const (
	DefaultMaxOutstandingRequests = 100
	DefaultContainerPort          = 9859
	DefaultTimeoutSecond          = 10
	DefaultConnectTimeoutSecond   = 5
)

// --------------------------------------------------------------------------
// Socket settings (shared by client and server)
// --------------------------------------------------------------------------

// SocketConf holds socket buffer sizes, 0 keeps the OS default
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 disables keep-alive tuning
	TCPLingerSec    int // negative keeps the OS default
}

// TransportConfig groups the socket options applied after a connection was established
type TransportConfig struct {
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a stand-alone container client.
type ClientConfig struct {
	// TimeoutSecond bounds a single request (write + matched response), 0 disables it
	TimeoutSecond int
	// ConnectTimeoutSecond bounds the dial and protocol upgrade, 0 disables it
	ConnectTimeoutSecond int
	// MaxOutstandingRequests is the number of permits of the admission gate
	MaxOutstandingRequests int
	// DefaultContainerPort is dialed when the leader does not announce a standalone port
	DefaultContainerPort int

	Transport TransportConfig
}

// DefaultClientConfig returns a client configuration with all defaults applied
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TimeoutSecond:          DefaultTimeoutSecond,
		ConnectTimeoutSecond:   DefaultConnectTimeoutSecond,
		MaxOutstandingRequests: DefaultMaxOutstandingRequests,
		DefaultContainerPort:   DefaultContainerPort,
		Transport: TransportConfig{
			TCPConf: TCPConf{
				TCPNoDelay:   true,
				TCPLingerSec: -1,
			},
		},
	}
}

// Validate checks the configuration for values the client cannot work with
func (c *ClientConfig) Validate() error {
	if c.MaxOutstandingRequests <= 0 {
		return fmt.Errorf("max outstanding requests must be > 0, got %d", c.MaxOutstandingRequests)
	}
	if c.DefaultContainerPort <= 0 || c.DefaultContainerPort > 65535 {
		return fmt.Errorf("invalid default container port %d", c.DefaultContainerPort)
	}
	if c.TimeoutSecond < 0 || c.ConnectTimeoutSecond < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// RequestTimeout returns the per-request timeout (0 = none)
func (c *ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ConnectTimeout returns the dial timeout (0 = none)
func (c *ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Request Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Connect Timeout", fmt.Sprintf("%d sec", c.ConnectTimeoutSecond))
	addField("Max Outstanding Requests", strconv.Itoa(c.MaxOutstandingRequests))
	addField("Default Container Port", strconv.Itoa(c.DefaultContainerPort))

	addSection("Transport")
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of a stand-alone container server.
type ServerConfig struct {
	// Endpoint the server listens on (host:port or socket path)
	Endpoint string
	// TimeoutSecond is the idle/write timeout of a connection, 0 disables it
	TimeoutSecond int64
	// MaxWorkersPerConn bounds the requests processed concurrently per connection
	MaxWorkersPerConn int
	// BufferSize is the size of the pooled read buffers
	BufferSize int
	// HandlerDelayMillisecond delays every response (used to demonstrate backpressure)
	HandlerDelayMillisecond int
	// MetricsEndpoint exposes Prometheus metrics over http if not empty
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	Transport TransportConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Container Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers per Conn", strconv.Itoa(c.MaxWorkersPerConn))
	addField("Buffer Size", fmt.Sprintf("%d bytes", c.BufferSize))
	addField("Handler Delay", fmt.Sprintf("%d ms", c.HandlerDelayMillisecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics", c.MetricsEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
