package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/xceiver/lib/container"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/serializer"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

var requestDuration = metrics.GetOrCreateHistogram(`xceiver_server_request_duration_seconds`)

// NewRPCServer creates a new container server
// It takes a config, transport, serializer and the store the commands are executed on
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(config.BufferSize, config.MaxWorkersPerConn),
//		serializer.NewBinarySerializer(),
//		container.NewMemStore(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	store container.IContainerStore,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      store,
		adapter:    NewContainerServerAdapter(time.Duration(config.HandlerDelayMillisecond) * time.Millisecond),
	}
}

// RPCServer serves container commands of stand-alone clients
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      container.IContainerStore
	adapter    IRPCServerAdapter
}

// handle decodes one request, executes it and encodes the response
func (s *RPCServer) handle(req []byte) []byte {
	start := time.Now()
	defer requestDuration.UpdateDuration(start)

	var msg common.Message
	var respMsg *common.Message

	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewMalformedResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = s.adapter.Handle(&msg, s.store)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("Failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(&msg, common.ResultIOException,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Start registers the request handler and starts listening in the background
func (s *RPCServer) Start() error {
	Logger.Infof("Starting container server")
	Logger.Infof(s.config.String())

	s.transport.RegisterHandler(s.handle)
	if err := s.transport.Listen(s.config); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	return nil
}

// Serve starts the server and blocks until ctx is done, then closes it
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

// Addr returns the address the server listens on (nil before Start)
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

// Close stops the transport and waits for in-flight requests
func (s *RPCServer) Close() error {
	stats := s.store.Stats()
	Logger.Infof("Stopping container server (%d containers, %d chunks, %d bytes)",
		stats.Containers, stats.Chunks, stats.Bytes)
	return s.transport.Close()
}
