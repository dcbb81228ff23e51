package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/xceiver/lib/admission"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/serializer"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/ValentinKolb/xceiver/rpc/transport/base"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("rpc")

var (
	requestsTotal      = metrics.GetOrCreateCounter(`xceiver_client_requests_total`)
	requestErrorsTotal = metrics.GetOrCreateCounter(`xceiver_client_request_errors_total`)
	connectsTotal      = metrics.GetOrCreateCounter(`xceiver_client_connects_total`)
	reconnectsTotal    = metrics.GetOrCreateCounter(`xceiver_client_reconnects_total`)
	requestDuration    = metrics.GetOrCreateHistogram(`xceiver_client_request_duration_seconds`)
)

// errNotActive is the cause of a reconnect that returned without a live connection
var errNotActive = errors.New("connection is not active after connect")

// handlerRef lets the bound handler be swapped atomically
type handlerRef struct {
	handler transport.IResponseHandler
}

// StandaloneClient talks to the leader of a pipeline over a single direct
// connection. It implements IXceiverClient.
//
// Data plane calls (SendSync, SendAsync, IsConnected) are safe for concurrent
// use. A dropped connection is re-established by the first request that
// observes it, concurrent requests wait for that single attempt.
type StandaloneClient struct {
	pipeline   *pipeline.Pipeline
	config     common.ClientConfig
	selector   pipeline.Selector
	connector  transport.IClientConnector
	serializer serializer.IRPCSerializer
	gate       *admission.Gate
	factory    transport.IHandlerFactory

	mu        sync.Mutex // Serializes connect, reconnect and close
	handler   atomic.Pointer[handlerRef]
	closed    atomic.Bool
	closeDone chan struct{} // Closed once the first Close finished the shutdown
}

// NewStandaloneClient creates a client for the leader of p. The client does
// not connect until Connect is called or the first request is sent.
//
// Usage:
//
//	c, err := client.NewStandaloneClient(p, common.DefaultClientConfig(),
//		tcp.NewClientConnector(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	resp, err := c.SendSync(ctx, common.NewEchoRequest([]byte("ping")))
func NewStandaloneClient(
	p *pipeline.Pipeline,
	config common.ClientConfig,
	connector transport.IClientConnector,
	serializer serializer.IRPCSerializer,
) (*StandaloneClient, error) {
	return newStandaloneClient(p, config, connector, serializer, func(gate *admission.Gate) transport.IHandlerFactory {
		return base.NewHandlerFactory(gate, config.RequestTimeout())
	})
}

// newStandaloneClient creates the client with a custom handler factory
func newStandaloneClient(
	p *pipeline.Pipeline,
	config common.ClientConfig,
	connector transport.IClientConnector,
	serializer serializer.IRPCSerializer,
	newFactory func(gate *admission.Gate) transport.IHandlerFactory,
) (*StandaloneClient, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline must not be nil")
	}
	if connector == nil || serializer == nil {
		return nil, fmt.Errorf("connector and serializer must not be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	gate := admission.New(config.MaxOutstandingRequests)

	return &StandaloneClient{
		pipeline:   p,
		config:     config,
		selector:   pipeline.NewSelector(config.DefaultContainerPort),
		connector:  connector,
		serializer: serializer,
		gate:       gate,
		factory:    newFactory(gate),
		closeDone:  make(chan struct{}),
	}, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (c *StandaloneClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// Reconnect connects to the leader unless a live connection exists. Any
// failure is returned as a *common.ConnectionUnavailableError carrying the
// cause, only common.ErrClosed is returned as is.
func (c *StandaloneClient) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectLocked(ctx)
}

func (c *StandaloneClient) IsConnected() bool {
	if c.closed.Load() {
		return false
	}
	ref := c.handler.Load()
	return ref != nil && ref.handler.IsActive()
}

// State returns the current lifecycle state
func (c *StandaloneClient) State() ConnectionState {
	if c.closed.Load() {
		return StateClosed
	}
	if c.IsConnected() {
		return StateConnected
	}
	return StateDisconnected
}

func (c *StandaloneClient) Close() error {
	if c.closed.Swap(true) {
		// a concurrent Close may still be shutting down the handler
		<-c.closeDone
		return nil
	}
	defer close(c.closeDone)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ref := c.handler.Load(); ref != nil {
		if err := ref.handler.Close(); err != nil {
			Logger.Warningf("Error while closing connection to %s: %v", ref.handler.RemoteAddr(), err)
		}
	}
	Logger.Infof("Closed client for pipeline %s", c.pipeline.ID())
	return nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (c *StandaloneClient) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

func (c *StandaloneClient) GetPipelineType() pipeline.ReplicationType {
	return pipeline.ReplicationStandAlone
}

// CreatePipeline is a no-op, a stand-alone connection needs no pipeline setup
func (c *StandaloneClient) CreatePipeline(_ context.Context, id string, endpoints []pipeline.Endpoint) error {
	Logger.Debugf("CreatePipeline(%s, %d endpoints) is a no-op for stand-alone clients", id, len(endpoints))
	return nil
}

// Gate returns the admission gate shared by all requests of this client
func (c *StandaloneClient) Gate() *admission.Gate {
	return c.gate
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

func (c *StandaloneClient) SendSync(ctx context.Context, req *common.Message) (*common.Message, error) {
	handler, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	data, _, err := c.encode(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	respData, err := handler.SendSync(ctx, data)
	return c.finishRequest(start, respData, err)
}

func (c *StandaloneClient) SendAsync(ctx context.Context, req *common.Message) (*ResponseFuture, error) {
	handler, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	data, traceID, err := c.encode(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	future, err := handler.SendAsync(ctx, data)
	if err != nil {
		requestErrorsTotal.Inc()
		return nil, c.translateError(err)
	}

	return &ResponseFuture{
		future:  future,
		client:  c,
		traceID: traceID,
		start:   start,
	}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connectLocked dials the leader and binds a new handler, c.mu must be held
func (c *StandaloneClient) connectLocked(ctx context.Context) error {
	if c.closed.Load() {
		return common.ErrClosed
	}
	if ref := c.handler.Load(); ref != nil && ref.handler.IsActive() {
		return common.ErrAlreadyConnected
	}

	host, port := c.selector.Resolve(c.pipeline)
	target := c.selector.Target(c.pipeline)
	Logger.Infof("Connecting to %s (leader of pipeline %s) using %s", target, c.pipeline.ID(), c.connector.GetName())

	dialCtx := ctx
	if timeout := c.config.ConnectTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := c.connector.Connect(dialCtx, host, port)
	if err != nil {
		Logger.Errorf("Error while connecting to %s: %v", target, err)
		return &common.TransportError{Op: "dial", Addr: target, Err: err}
	}

	if err := c.connector.UpgradeConnection(conn, c.config); err != nil {
		_ = conn.Close()
		Logger.Errorf("Error while upgrading connection to %s: %v", target, err)
		return &common.TransportError{Op: "upgrade", Addr: target, Err: err}
	}

	// the previous handler already failed, closing it only waits for its read loop
	if old := c.handler.Load(); old != nil {
		_ = old.handler.Close()
	}

	handler := c.factory.Bind(conn, target)
	c.handler.Store(&handlerRef{handler: handler})
	connectsTotal.Inc()

	// Close only marks the client before it waits for c.mu
	if c.closed.Load() {
		_ = handler.Close()
		return common.ErrClosed
	}

	Logger.Infof("Connected to %s", target)
	return nil
}

// reconnectLocked is Reconnect with c.mu held
func (c *StandaloneClient) reconnectLocked(ctx context.Context) error {
	err := c.connectLocked(ctx)
	switch {
	case err == nil, errors.Is(err, common.ErrAlreadyConnected):
	case errors.Is(err, common.ErrClosed):
		return common.ErrClosed
	default:
		return &common.ConnectionUnavailableError{Endpoint: c.selector.Target(c.pipeline), Err: err}
	}

	if !c.IsConnected() {
		return &common.ConnectionUnavailableError{Endpoint: c.selector.Target(c.pipeline), Err: errNotActive}
	}
	return nil
}

// ensureConnected returns the live handler, reconnecting once if there is none
func (c *StandaloneClient) ensureConnected(ctx context.Context) (transport.IResponseHandler, error) {
	if c.closed.Load() {
		return nil, common.ErrClosed
	}
	if ref := c.handler.Load(); ref != nil && ref.handler.IsActive() {
		return ref.handler, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another request may have reconnected while we waited for the lock
	if c.closed.Load() {
		return nil, common.ErrClosed
	}
	if ref := c.handler.Load(); ref != nil && ref.handler.IsActive() {
		return ref.handler, nil
	}

	reconnectsTotal.Inc()
	if err := c.reconnectLocked(ctx); err != nil {
		return nil, err
	}
	return c.handler.Load().handler, nil
}

// encode assigns a trace id (if missing) and serializes the request
func (c *StandaloneClient) encode(req *common.Message) ([]byte, string, error) {
	if req == nil {
		return nil, "", &common.ProtocolError{Msg: "request must not be nil"}
	}

	msg := *req
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}

	data, err := c.serializer.Serialize(msg)
	if err != nil {
		return nil, "", &common.ProtocolError{Msg: "failed to encode request", Err: err}
	}
	return data, msg.TraceID, nil
}

// finishRequest translates the handler result into a response or a client error
func (c *StandaloneClient) finishRequest(start time.Time, data []byte, err error) (*common.Message, error) {
	requestsTotal.Inc()
	if err != nil {
		requestErrorsTotal.Inc()
		return nil, c.translateError(err)
	}
	requestDuration.UpdateDuration(start)

	resp := &common.Message{}
	if err := c.serializer.Deserialize(data, resp); err != nil {
		requestErrorsTotal.Inc()
		return nil, &common.ProtocolError{Msg: "failed to decode response", Err: err}
	}
	return resp, nil
}

// translateError maps handler failures to the client's error vocabulary:
// transport and protocol causes are returned unmodified, ErrClosed as is,
// everything else becomes a *common.DispatchError.
func (c *StandaloneClient) translateError(err error) error {
	var ee *transport.ExecutionError
	if !errors.As(err, &ee) {
		return err
	}
	cause := ee.Err

	if errors.Is(cause, common.ErrClosed) {
		return common.ErrClosed
	}

	var te *common.TransportError
	if errors.As(cause, &te) {
		return te
	}
	var pe *common.ProtocolError
	if errors.As(cause, &pe) {
		return pe
	}

	return &common.DispatchError{
		Msg: fmt.Sprintf("request to %s failed: %v", c.selector.Target(c.pipeline), cause),
		Err: cause,
	}
}
