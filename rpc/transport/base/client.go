package base

import (
	"context"
	"github.com/ValentinKolb/xceiver/lib/admission"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	framesSentTotal     = metrics.GetOrCreateCounter(`xceiver_transport_frames_sent_total`)
	framesReceivedTotal = metrics.GetOrCreateCounter(`xceiver_transport_frames_received_total`)
	requestTimeoutTotal = metrics.GetOrCreateCounter(`xceiver_transport_request_timeouts_total`)
	connFailuresTotal   = metrics.GetOrCreateCounter(`xceiver_transport_connection_failures_total`)
)

// -----------------------------------------------------------
// Handler Factory
// -----------------------------------------------------------

// handlerFactory creates response handlers that share one admission gate
type handlerFactory struct {
	gate    *admission.Gate
	timeout time.Duration
}

// NewHandlerFactory creates a factory for response handlers. Every request sent
// through a bound handler holds one permit of gate until it is completed.
// requestTimeout bounds each request (0 disables the bound).
func NewHandlerFactory(gate *admission.Gate, requestTimeout time.Duration) transport.IHandlerFactory {
	return &handlerFactory{
		gate:    gate,
		timeout: requestTimeout,
	}
}

// Bind starts the read loop of a new handler owning conn
func (f *handlerFactory) Bind(conn net.Conn, endpoint string) transport.IResponseHandler {
	h := &clientHandler{
		conn:     conn,
		endpoint: endpoint,
		gate:     f.gate,
		timeout:  f.timeout,
		pending:  xsync.NewMapOf[uint64, *pendingRequest](),
		done:     make(chan struct{}),
	}
	h.active.Store(true)

	go h.readResponses()

	return h
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// pendingRequest is a request that was written but not yet answered
type pendingRequest struct {
	future *transport.Future
	timer  atomic.Pointer[time.Timer]
}

// clientHandler implements transport.IResponseHandler for one connection
type clientHandler struct {
	conn     net.Conn
	endpoint string
	gate     *admission.Gate
	timeout  time.Duration

	nextRequestID atomic.Uint64
	pending       *xsync.MapOf[uint64, *pendingRequest]
	writeMu       sync.Mutex // Protects writes to the connection

	active    atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{} // Closed when the read loop exited

	failMu  sync.Mutex
	failure error // First cause that made the handler inactive
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IResponseHandler)
// --------------------------------------------------------------------------

func (h *clientHandler) SendSync(ctx context.Context, req []byte) ([]byte, error) {
	future, requestID, err := h.send(ctx, req)
	if err != nil {
		return nil, err
	}

	select {
	case <-future.Done():
		resp, _, err := future.Result()
		return resp, err
	case <-ctx.Done():
		// abandon the request, a late response is dropped by the read loop
		h.finish(requestID, nil, ctx.Err())
		resp, _, err := future.Result()
		return resp, err
	}
}

func (h *clientHandler) SendAsync(ctx context.Context, req []byte) (*transport.Future, error) {
	future, _, err := h.send(ctx, req)
	return future, err
}

func (h *clientHandler) IsActive() bool {
	return h.active.Load()
}

func (h *clientHandler) Close() error {
	h.closeOnce.Do(func() {
		h.closing.Store(true)
		h.fail(common.ErrClosed)
		<-h.done
		Logger.Debugf("Handler for %s closed", h.endpoint)
	})
	return nil
}

func (h *clientHandler) RemoteAddr() string {
	return h.endpoint
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send admits, registers and writes one request
func (h *clientHandler) send(ctx context.Context, req []byte) (*transport.Future, uint64, error) {
	if !h.active.Load() {
		return nil, 0, &transport.ExecutionError{Err: h.failureCause()}
	}

	// Blocks while maxOutstanding requests are in flight
	if err := h.gate.Acquire(ctx); err != nil {
		return nil, 0, &transport.ExecutionError{Err: err}
	}

	requestID := h.nextRequestID.Add(1)
	pr := &pendingRequest{future: transport.NewFuture(h.gate.Release)}
	h.pending.Store(requestID, pr)

	// The connection may have failed between the first check and Store,
	// in that case failAll may already have run without seeing this request
	if !h.active.Load() {
		h.finish(requestID, nil, h.failureCause())
		_, _, err := pr.future.Result()
		return nil, 0, err
	}

	if h.timeout > 0 {
		pr.timer.Store(time.AfterFunc(h.timeout, func() {
			if h.finish(requestID, nil, &common.TransportError{Op: "read", Addr: h.endpoint, Err: os.ErrDeadlineExceeded}) {
				requestTimeoutTotal.Inc()
				Logger.Warningf("Request %d to %s timed out after %s", requestID, h.endpoint, h.timeout)
			}
		}))
	}

	h.writeMu.Lock()
	if h.timeout > 0 {
		_ = h.conn.SetWriteDeadline(time.Now().Add(h.timeout))
	}
	err := writeFrame(h.conn, requestID, req)
	h.writeMu.Unlock()

	if err != nil {
		var cause error = &common.TransportError{Op: "write", Addr: h.endpoint, Err: err}
		if common.IsTransportFailure(err) {
			// frame could not be built, the connection itself is still fine
			cause = err
		} else {
			h.fail(cause)
		}
		h.finish(requestID, nil, cause)
		_, _, err := pr.future.Result()
		return nil, 0, err
	}
	framesSentTotal.Inc()

	return pr.future, requestID, nil
}

// finish completes and removes a pending request and reports whether it was still pending
func (h *clientHandler) finish(requestID uint64, resp []byte, err error) bool {
	pr, ok := h.pending.LoadAndDelete(requestID)
	if !ok {
		return false
	}
	if t := pr.timer.Load(); t != nil {
		t.Stop()
	}
	pr.future.Complete(resp, err)
	return true
}

// fail marks the handler inactive, closes the connection and fails all pending requests
func (h *clientHandler) fail(cause error) {
	h.failMu.Lock()
	if h.failure == nil {
		h.failure = cause
	}
	h.failMu.Unlock()

	if h.active.Swap(false) && !h.closing.Load() {
		connFailuresTotal.Inc()
		Logger.Errorf("Connection to %s failed: %v", h.endpoint, cause)
	}
	_ = h.conn.Close()

	cause = h.failureCause()
	h.pending.Range(func(requestID uint64, _ *pendingRequest) bool {
		h.finish(requestID, nil, cause)
		return true
	})
}

// failureCause returns the error pending and new requests fail with.
// A recorded failure wins over closing: a handler replaced after its
// connection was lost keeps reporting the loss, not ErrClosed.
func (h *clientHandler) failureCause() error {
	h.failMu.Lock()
	failure := h.failure
	h.failMu.Unlock()

	switch {
	case failure != nil:
		return failure
	case h.closing.Load():
		return common.ErrClosed
	default:
		return &common.TransportError{Op: "write", Addr: h.endpoint, Err: net.ErrClosed}
	}
}

// readResponses reads responses in a loop and completes the matching requests
func (h *clientHandler) readResponses() {
	defer close(h.done)

	for {
		requestID, data, err := readFrame(h.conn, nil)
		if err != nil {
			if h.closing.Load() {
				h.fail(common.ErrClosed)
			} else if common.IsTransportFailure(err) {
				h.fail(err)
			} else {
				h.fail(&common.TransportError{Op: "read", Addr: h.endpoint, Err: err})
			}
			return
		}
		framesReceivedTotal.Inc()

		if !h.finish(requestID, data, nil) {
			Logger.Warningf("Received response for unknown request ID %d from %s", requestID, h.endpoint)
		}
	}
}
