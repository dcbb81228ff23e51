package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/xceiver/lib/container"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/serializer"
	"github.com/ValentinKolb/xceiver/rpc/server"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/ValentinKolb/xceiver/rpc/transport/tcp"
	"github.com/ValentinKolb/xceiver/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// startContainerServer starts a datanode on a loopback port
func startContainerServer(t *testing.T, config common.ServerConfig, tr transport.IRPCServerTransport) *server.RPCServer {
	t.Helper()
	s := server.NewRPCServer(config, tr, serializer.NewBinarySerializer(), container.NewMemStore())
	require.NoError(t, s.Start())
	return s
}

// loopbackPipeline returns a pipeline whose leader is the given address
func loopbackPipeline(t *testing.T, addr net.Addr) *pipeline.Pipeline {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p, err := pipeline.New("pipeline-it", []pipeline.Endpoint{
		pipeline.NewEndpoint("dn-1", host, port),
	}, "dn-1", pipeline.ReplicationStandAlone)
	require.NoError(t, err)
	return p
}

func newTCPClient(t *testing.T, p *pipeline.Pipeline, maxOutstanding int) *StandaloneClient {
	t.Helper()
	conf := common.DefaultClientConfig()
	conf.MaxOutstandingRequests = maxOutstanding
	c, err := NewStandaloneClient(p, conf, tcp.NewClientConnector(), serializer.NewBinarySerializer())
	require.NoError(t, err)
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestContainerCallsOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := startContainerServer(t, common.ServerConfig{Endpoint: "127.0.0.1:0"}, tcp.NewTCPServerTransport(0, 4))
	defer srv.Close()

	c := newTCPClient(t, loopbackPipeline(t, srv.Addr()), 4)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))

	echoed, err := Echo(ctx, c, []byte("ping"))
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), echoed)

	require.NoError(t, PutChunk(ctx, c, 7, 2, []byte("second")))
	require.NoError(t, PutChunk(ctx, c, 7, 1, []byte("first")))

	data, err := ReadChunk(ctx, c, 7, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), data)

	ids, err := ListChunks(ctx, c, 7)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	require.NoError(t, DeleteChunk(ctx, c, 7, 1))

	_, err = ReadChunk(ctx, c, 7, 1)
	var ce *common.ContainerError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, common.ResultNoSuchChunk, ce.Result)

	_, err = ListChunks(ctx, c, 99)
	require.True(t, errors.As(err, &ce))
	require.Equal(t, common.ResultContainerMissing, ce.Result)
}

func TestMaxOutstandingRequestsOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t)

	var current, peak atomic.Int32
	release := make(chan struct{})

	// the raw transport echoes the request, which decodes as a successful response
	srvTransport := tcp.NewTCPServerTransport(0, 8)
	srvTransport.RegisterHandler(func(req []byte) []byte {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		current.Add(-1)
		return req
	})
	require.NoError(t, srvTransport.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}))
	defer srvTransport.Close()

	c := newTCPClient(t, loopbackPipeline(t, srvTransport.Addr()), 2)
	defer c.Close()

	var wg sync.WaitGroup
	var completed atomic.Int32
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.SendSync(context.Background(), common.NewEchoRequest([]byte("x")))
			assert.NoError(t, err)
			completed.Add(1)
		}()
	}

	require.Eventually(t, func() bool { return current.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// the third request waits for a permit
	require.Equal(t, int32(2), current.Load())
	require.Equal(t, int32(0), completed.Load())
	require.Equal(t, 2, c.Gate().InUse())

	close(release)
	wg.Wait()

	require.Equal(t, int32(3), completed.Load())
	require.Equal(t, int32(2), peak.Load())
	require.Equal(t, 0, c.Gate().InUse())
}

func TestCloseFailsInFlightRequests(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	srvTransport := tcp.NewTCPServerTransport(0, 4)
	srvTransport.RegisterHandler(func(req []byte) []byte {
		<-release
		return req
	})
	require.NoError(t, srvTransport.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}))
	defer srvTransport.Close()
	defer close(release)

	c := newTCPClient(t, loopbackPipeline(t, srvTransport.Addr()), 4)

	f, err := c.SendAsync(context.Background(), common.NewEchoRequest([]byte("pending")))
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, err = f.Get(context.Background())
	require.ErrorIs(t, err, common.ErrClosed)
	require.Equal(t, 0, c.Gate().InUse())
}

func TestConnectRefused(t *testing.T) {
	defer goleak.VerifyNone(t)

	// reserve a port and free it again so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr()
	require.NoError(t, ln.Close())

	c := newTCPClient(t, loopbackPipeline(t, addr), 1)
	defer c.Close()

	err = c.Connect(context.Background())
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	require.False(t, c.IsConnected())

	_, err = c.SendSync(context.Background(), common.NewEchoRequest(nil))
	var cu *common.ConnectionUnavailableError
	require.True(t, errors.As(err, &cu))
}

func TestReconnectAfterServerRestartOverUnix(t *testing.T) {
	defer goleak.VerifyNone(t)

	socket := filepath.Join(t.TempDir(), "dn.sock")
	config := common.ServerConfig{Endpoint: socket}

	srv := startContainerServer(t, config, unix.NewUnixServerTransport(0, 2))

	p, err := pipeline.New("pipeline-unix", []pipeline.Endpoint{
		pipeline.NewEndpoint("dn-1", socket, 0),
	}, "", pipeline.ReplicationStandAlone)
	require.NoError(t, err)

	c, err := NewStandaloneClient(p, common.DefaultClientConfig(), unix.NewClientConnector(), serializer.NewBinarySerializer())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, PutChunk(ctx, c, 1, 1, []byte("before restart")))
	require.True(t, c.IsConnected())

	require.NoError(t, srv.Close())
	require.Eventually(t, func() bool { return !c.IsConnected() }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, StateDisconnected, c.State())

	srv = startContainerServer(t, config, unix.NewUnixServerTransport(0, 2))
	defer srv.Close()

	// the next request reconnects, the new server has an empty store
	_, err = ReadChunk(ctx, c, 1, 1)
	var ce *common.ContainerError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, common.ResultContainerMissing, ce.Result)
	require.True(t, c.IsConnected())
}
