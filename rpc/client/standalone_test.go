package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/xceiver/lib/admission"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/serializer"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

var errRefused = errors.New("connection refused")

// fakeConnector counts dials and records the dialed address
type fakeConnector struct {
	dials atomic.Int32
	fail  atomic.Bool

	mu   sync.Mutex
	host string
	port int
}

func (c *fakeConnector) GetName() string { return "fake" }

func (c *fakeConnector) Connect(_ context.Context, host string, port int) (net.Conn, error) {
	c.dials.Add(1)
	c.mu.Lock()
	c.host, c.port = host, port
	c.mu.Unlock()

	if c.fail.Load() {
		return nil, errRefused
	}
	local, remote := net.Pipe()
	_ = remote.Close()
	return local, nil
}

func (c *fakeConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

func (c *fakeConnector) dialed() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host, c.port
}

// fakeHandler answers requests with a configurable function
type fakeHandler struct {
	conn   net.Conn
	sends  *atomic.Int32
	send   func(req []byte) ([]byte, error)
	active atomic.Bool
	closes atomic.Int32

	closeGate chan struct{} // if set, Close blocks until it is closed
}

func (h *fakeHandler) SendSync(_ context.Context, req []byte) ([]byte, error) {
	h.sends.Add(1)
	return h.send(req)
}

func (h *fakeHandler) SendAsync(ctx context.Context, req []byte) (*transport.Future, error) {
	f := transport.NewFuture(nil)
	resp, err := h.SendSync(ctx, req)
	f.Complete(resp, err)
	return f, nil
}

func (h *fakeHandler) IsActive() bool { return h.active.Load() }

func (h *fakeHandler) Close() error {
	h.closes.Add(1)
	if h.closeGate != nil {
		<-h.closeGate
	}
	h.active.Store(false)
	return h.conn.Close()
}

func (h *fakeHandler) RemoteAddr() string { return "fake" }

// fakeFactory binds fakeHandlers and remembers them
type fakeFactory struct {
	sends     atomic.Int32
	send      func(req []byte) ([]byte, error)
	closeGate chan struct{}

	mu       sync.Mutex
	handlers []*fakeHandler
}

func (f *fakeFactory) Bind(conn net.Conn, _ string) transport.IResponseHandler {
	h := &fakeHandler{conn: conn, sends: &f.sends, send: f.send, closeGate: f.closeGate}
	h.active.Store(true)
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
	return h
}

func (f *fakeFactory) last() *fakeHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[len(f.handlers)-1]
}

// echoSend answers every request with a successful response carrying the request data
func echoSend(req []byte) ([]byte, error) {
	s := serializer.NewBinarySerializer()
	var msg common.Message
	if err := s.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	resp := common.NewResponse(&msg)
	resp.Data = msg.Data
	return s.Serialize(*resp)
}

func testPipeline(t *testing.T, port int) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New("pipeline-1", []pipeline.Endpoint{
		pipeline.NewEndpoint("dn-1", "10.0.0.1", 1111),
		pipeline.NewEndpoint("dn-2", "10.0.0.2", port),
	}, "dn-2", pipeline.ReplicationStandAlone)
	require.NoError(t, err)
	return p
}

func newTestClient(t *testing.T, send func([]byte) ([]byte, error)) (*StandaloneClient, *fakeConnector, *fakeFactory) {
	t.Helper()
	connector := &fakeConnector{}
	factory := &fakeFactory{send: send}
	c, err := newStandaloneClient(testPipeline(t, 0), common.DefaultClientConfig(), connector,
		serializer.NewBinarySerializer(), func(*admission.Gate) transport.IHandlerFactory { return factory })
	require.NoError(t, err)
	return c, connector, factory
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestNewStandaloneClientValidates(t *testing.T) {
	conf := common.DefaultClientConfig()
	conf.MaxOutstandingRequests = 0
	_, err := NewStandaloneClient(testPipeline(t, 0), conf, &fakeConnector{}, serializer.NewBinarySerializer())
	require.Error(t, err)

	_, err = NewStandaloneClient(nil, common.DefaultClientConfig(), &fakeConnector{}, serializer.NewBinarySerializer())
	require.Error(t, err)
}

func TestConnectWhenConnected(t *testing.T) {
	c, connector, _ := newTestClient(t, echoSend)
	defer c.Close()

	require.Equal(t, StateDisconnected, c.State())
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, StateConnected, c.State())

	require.ErrorIs(t, c.Connect(context.Background()), common.ErrAlreadyConnected)
	require.Equal(t, StateConnected, c.State())
	require.Equal(t, int32(1), connector.dials.Load())
}

func TestConnectFailure(t *testing.T) {
	c, connector, _ := newTestClient(t, echoSend)
	defer c.Close()
	connector.fail.Store(true)

	err := c.Connect(context.Background())
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	require.ErrorIs(t, err, errRefused)
	require.Equal(t, "dial", te.Op)

	require.False(t, c.IsConnected())
	require.Equal(t, StateDisconnected, c.State())
}

func TestClosedClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, _, factory := newTestClient(t, echoSend)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, StateClosed, c.State())
	require.False(t, c.IsConnected())
	require.Equal(t, int32(1), factory.last().closes.Load())

	require.ErrorIs(t, c.Connect(context.Background()), common.ErrClosed)
	require.ErrorIs(t, c.Reconnect(context.Background()), common.ErrClosed)

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	require.ErrorIs(t, err, common.ErrClosed)

	_, err = c.SendAsync(context.Background(), common.NewEchoRequest(nil))
	require.ErrorIs(t, err, common.ErrClosed)

	require.Equal(t, int32(0), factory.sends.Load())
}

func TestCloseWithoutConnect(t *testing.T) {
	c, connector, _ := newTestClient(t, echoSend)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, StateClosed, c.State())
	require.Equal(t, int32(0), connector.dials.Load())
}

func TestConcurrentCloseWaitsForShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, _, factory := newTestClient(t, echoSend)
	factory.closeGate = make(chan struct{})
	require.NoError(t, c.Connect(context.Background()))
	h := factory.last()

	first := make(chan struct{})
	go func() {
		assert.NoError(t, c.Close())
		close(first)
	}()
	require.Eventually(t, func() bool { return h.closes.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan struct{})
	go func() {
		assert.NoError(t, c.Close())
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("second Close returned before the handler was shut down")
	case <-time.After(50 * time.Millisecond):
	}

	close(factory.closeGate)
	<-first
	<-second

	require.False(t, h.IsActive())
	require.Equal(t, int32(1), h.closes.Load())
	require.Equal(t, StateClosed, c.State())
}

// pipeConnector hands out net.Pipe ends and keeps the remote ends
type pipeConnector struct {
	mu      sync.Mutex
	remotes []net.Conn
}

func (c *pipeConnector) GetName() string { return "pipe" }

func (c *pipeConnector) Connect(context.Context, string, int) (net.Conn, error) {
	local, remote := net.Pipe()
	c.mu.Lock()
	c.remotes = append(c.remotes, remote)
	c.mu.Unlock()
	return local, nil
}

func (c *pipeConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

func (c *pipeConnector) remote(i int) net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remotes[i]
}

func (c *pipeConnector) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.remotes {
		_ = r.Close()
	}
}

func TestReplacedHandlerReportsConnectionLoss(t *testing.T) {
	defer goleak.VerifyNone(t)

	connector := &pipeConnector{}
	defer connector.closeAll()

	c, err := NewStandaloneClient(testPipeline(t, 0), common.DefaultClientConfig(), connector, serializer.NewBinarySerializer())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	// a request holding the handler from before the connection dropped
	stale := c.handler.Load().handler
	require.NoError(t, connector.remote(0).Close())
	require.Eventually(t, func() bool { return !stale.IsActive() }, time.Second, time.Millisecond)

	// another request reconnects, which closes the stale handler
	require.NoError(t, c.Reconnect(ctx))
	require.True(t, c.IsConnected())

	data, _, err := c.encode(common.NewEchoRequest([]byte("late")))
	require.NoError(t, err)
	_, err = stale.SendSync(ctx, data)
	err = c.translateError(err)

	require.NotErrorIs(t, err, common.ErrClosed)
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "read", te.Op)
	require.Equal(t, StateConnected, c.State())
	require.Equal(t, 0, c.Gate().InUse())
}

func TestReconnectReflectsConnectivity(t *testing.T) {
	c, connector, _ := newTestClient(t, echoSend)
	defer c.Close()

	connector.fail.Store(true)
	err := c.Reconnect(context.Background())
	var cu *common.ConnectionUnavailableError
	require.True(t, errors.As(err, &cu))
	require.ErrorIs(t, err, errRefused)
	require.False(t, c.IsConnected())

	connector.fail.Store(false)
	require.NoError(t, c.Reconnect(context.Background()))
	require.True(t, c.IsConnected())

	// reconnect on a live connection keeps it
	require.NoError(t, c.Reconnect(context.Background()))
	require.Equal(t, int32(2), connector.dials.Load())
}

func TestPortResolution(t *testing.T) {
	for _, tc := range []struct {
		name       string
		leaderPort int
		expected   int
	}{
		{"unspecified port uses default", 0, 9859},
		{"announced port is used", 7777, 7777},
	} {
		t.Run(tc.name, func(t *testing.T) {
			connector := &fakeConnector{}
			factory := &fakeFactory{send: echoSend}
			c, err := newStandaloneClient(testPipeline(t, tc.leaderPort), common.DefaultClientConfig(), connector,
				serializer.NewBinarySerializer(), func(*admission.Gate) transport.IHandlerFactory { return factory })
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.Connect(context.Background()))
			host, port := connector.dialed()
			require.Equal(t, "10.0.0.2", host)
			require.Equal(t, tc.expected, port)
		})
	}
}

func TestPipelineTypeIsConstant(t *testing.T) {
	c, _, _ := newTestClient(t, echoSend)

	require.Equal(t, pipeline.ReplicationStandAlone, c.GetPipelineType())
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, pipeline.ReplicationStandAlone, c.GetPipelineType())
	require.NoError(t, c.Close())
	require.Equal(t, pipeline.ReplicationStandAlone, c.GetPipelineType())

	require.Equal(t, "pipeline-1", c.GetPipeline().ID())
	require.Same(t, c.GetPipeline(), c.GetPipeline())
	require.NoError(t, c.CreatePipeline(context.Background(), "pipeline-2", nil))
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

func TestSendSyncReconnectsExactlyOnce(t *testing.T) {
	c, connector, factory := newTestClient(t, echoSend)
	defer c.Close()

	connector.fail.Store(true)
	_, err := c.SendSync(context.Background(), common.NewEchoRequest([]byte("x")))

	var cu *common.ConnectionUnavailableError
	require.True(t, errors.As(err, &cu))
	require.Equal(t, int32(1), connector.dials.Load())
	require.Equal(t, int32(0), factory.sends.Load())

	connector.fail.Store(false)
	resp, err := c.SendSync(context.Background(), common.NewEchoRequest([]byte("x")))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), resp.Data)
	require.Equal(t, int32(2), connector.dials.Load())
	require.Equal(t, int32(1), factory.sends.Load())
}

func TestSendReplacesDeadConnection(t *testing.T) {
	c, connector, factory := newTestClient(t, echoSend)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	first := factory.last()
	first.active.Store(false)
	require.False(t, c.IsConnected())

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	require.NoError(t, err)

	require.Equal(t, int32(2), connector.dials.Load())
	require.Equal(t, int32(1), first.closes.Load())
	require.NotSame(t, first, factory.last())
}

func TestConcurrentSendsReconnectOnce(t *testing.T) {
	c, connector, _ := newTestClient(t, echoSend)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.SendSync(context.Background(), common.NewEchoRequest([]byte("x")))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), connector.dials.Load())
}

func TestTransportCauseIsRethrown(t *testing.T) {
	te := &common.TransportError{Op: "read", Addr: "10.0.0.2:9859", Err: io.ErrUnexpectedEOF}
	c, _, _ := newTestClient(t, func([]byte) ([]byte, error) {
		return nil, &transport.ExecutionError{Err: te}
	})
	defer c.Close()

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	require.Same(t, te, err)

	f, err := c.SendAsync(context.Background(), common.NewEchoRequest(nil))
	require.NoError(t, err)
	_, err = f.Get(context.Background())
	require.Same(t, te, err)
}

func TestProtocolCauseIsRethrown(t *testing.T) {
	pe := &common.ProtocolError{Msg: "frame too large"}
	c, _, _ := newTestClient(t, func([]byte) ([]byte, error) {
		return nil, &transport.ExecutionError{Err: pe}
	})
	defer c.Close()

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	require.Same(t, pe, err)
}

func TestOtherCauseBecomesDispatchError(t *testing.T) {
	boom := errors.New("boom")
	c, _, _ := newTestClient(t, func([]byte) ([]byte, error) {
		return nil, &transport.ExecutionError{Err: boom}
	})
	defer c.Close()

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))

	var de *common.DispatchError
	require.True(t, errors.As(err, &de))
	require.ErrorIs(t, err, boom)
	require.Contains(t, de.Error(), "boom")

	var ee *transport.ExecutionError
	require.False(t, errors.As(err, &ee))
}

func TestClosedCauseIsErrClosed(t *testing.T) {
	c, _, _ := newTestClient(t, func([]byte) ([]byte, error) {
		return nil, &transport.ExecutionError{Err: common.ErrClosed}
	})
	defer c.Close()

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	require.Same(t, common.ErrClosed, err)
}

func TestUndecodableResponse(t *testing.T) {
	c, _, _ := newTestClient(t, func([]byte) ([]byte, error) {
		return []byte{1}, nil
	})
	defer c.Close()

	_, err := c.SendSync(context.Background(), common.NewEchoRequest(nil))
	var pe *common.ProtocolError
	require.True(t, errors.As(err, &pe))
}

func TestTraceIDAssigned(t *testing.T) {
	var seen atomic.Value
	c, _, _ := newTestClient(t, func(req []byte) ([]byte, error) {
		var msg common.Message
		if err := serializer.NewBinarySerializer().Deserialize(req, &msg); err != nil {
			return nil, err
		}
		seen.Store(msg.TraceID)
		return echoSend(req)
	})
	defer c.Close()

	req := common.NewEchoRequest(nil)
	_, err := c.SendSync(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, seen.Load().(string), 36)
	require.Empty(t, req.TraceID, "the caller's message is not modified")

	req.TraceID = "my-trace"
	f, err := c.SendAsync(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "my-trace", f.TraceID())
	resp, err := f.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "my-trace", resp.TraceID)
}
