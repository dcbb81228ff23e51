package serve

import (
	"context"
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/xceiver/cmd/util"
	"github.com/ValentinKolb/xceiver/lib/container"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/server"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/ValentinKolb/xceiver/rpc/transport/tcp"
	"github.com/ValentinKolb/xceiver/rpc/transport/unix"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"time"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an in-memory datanode",
		Long:    `Start a datanode serving the container protocol from an in-memory chunk store. The configuration can be set via command line flags or environment variables. The format of the environment variables is XCEIVER_<flag> (e.g. XCEIVER_WORKERS_PER_CONN=32)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, fmt.Sprintf("0.0.0.0:%d", common.DefaultContainerPort), cmdUtil.WrapString("The address on which the datanode will listen (e.g. localhost:9859, /tmp/xceiver.sock, ...)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Idle and write timeout of a connection in seconds (0 disables it)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("How many requests of one connection are processed concurrently. Further requests stay unread in the socket"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Size of the pooled read buffers in KB (0 uses the transport default)"))

	key = "handler-delay"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Delay every response by this many milliseconds (to observe client side backpressure)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, Prometheus metrics are served on http://<metrics-endpoint>/metrics (e.g. localhost:9860)"))

	cmdUtil.SetupTransportFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.BufferSize = viper.GetInt("buffer-size") * 1024
	serveCmdConfig.HandlerDelayMillisecond = viper.GetInt("handler-delay")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = cmdUtil.GetTransportConfig()

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if serveCmdConfig.HandlerDelayMillisecond < 0 {
		return fmt.Errorf("handler delay must not be negative")
	}

	return nil
}

// run starts the datanode and blocks until the command context is cancelled
func run(cmd *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "tcp":
		t = tcp.NewTCPServerTransport(serveCmdConfig.BufferSize, serveCmdConfig.MaxWorkersPerConn)
	case "unix":
		t = unix.NewUnixServerTransport(serveCmdConfig.BufferSize, serveCmdConfig.MaxWorkersPerConn)
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	ctx := cmd.Context()

	if serveCmdConfig.MetricsEndpoint != "" {
		stop := serveMetrics(serveCmdConfig.MetricsEndpoint)
		defer stop()
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
		container.NewMemStore(),
	)

	return serv.Serve(ctx)
}

// serveMetrics exposes the metrics of the process on /metrics and returns a function stopping the http server
func serveMetrics(endpoint string) func() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		cmdUtil.Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cmdUtil.Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
