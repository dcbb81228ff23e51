package util

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/client"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/ValentinKolb/xceiver/rpc/serializer"
	"github.com/ValentinKolb/xceiver/rpc/transport"
	"github.com/ValentinKolb/xceiver/rpc/transport/tcp"
	"github.com/ValentinKolb/xceiver/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"time"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and lets viper read XCEIVER_<FLAG> environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("xceiver")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// InitLogging sets the level of all loggers from the log-level flag
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupTransportFlags adds the socket option flags shared by client and server
func SetupTransportFlags(cmd *cobra.Command) {
	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (tcp only, 0 disables tuning)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time in seconds (tcp only, negative keeps the OS default)"))
}

// GetTransportConfig reads the socket options from viper
func GetTransportConfig() common.TransportConfig {
	return common.TransportConfig{
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
	}
}

// SetupClientFlags adds the pipeline and client flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "pipeline-id"
	cmd.PersistentFlags().String(key, "pipeline-1", WrapString("ID of the pipeline the client talks to"))

	key = "nodes"
	cmd.PersistentFlags().String(key, fmt.Sprintf("dn-1=localhost:%d", common.DefaultContainerPort), WrapString("Comma-separated list of pipeline members in the format 'id=host[:port]'. Unix socket paths are accepted as host"))

	key = "leader"
	cmd.PersistentFlags().String(key, "", WrapString("ID of the member requests are sent to (defaults to the first member)"))

	key = "max-outstanding"
	cmd.PersistentFlags().Int(key, common.DefaultMaxOutstandingRequests, WrapString("How many requests may be in flight at the same time"))

	key = "default-port"
	cmd.PersistentFlags().Int(key, common.DefaultContainerPort, WrapString("Port dialed when a member does not announce one"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("The timeout of a single request in seconds (0 disables it)"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultConnectTimeoutSecond, WrapString("The timeout of the connection setup in seconds (0 disables it)"))

	key = "wait"
	cmd.PersistentFlags().Int(key, 0, WrapString("How many times the initial connect is retried with exponential backoff (e.g. while the datanode is starting)"))

	SetupTransportFlags(cmd)
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond:          viper.GetInt("timeout"),
		ConnectTimeoutSecond:   viper.GetInt("connect-timeout"),
		MaxOutstandingRequests: viper.GetInt("max-outstanding"),
		DefaultContainerPort:   viper.GetInt("default-port"),
		Transport:              GetTransportConfig(),
	}
}

// GetPipeline builds the pipeline from the pipeline-id, nodes and leader flags
func GetPipeline() (*pipeline.Pipeline, error) {
	endpoints, err := pipeline.ParseEndpoints(viper.GetString("nodes"))
	if err != nil {
		return nil, err
	}
	return pipeline.New(viper.GetString("pipeline-id"), endpoints, viper.GetString("leader"), pipeline.ReplicationStandAlone)
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	s, ok := serializer.ByName(viper.GetString("serializer"))
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
	return s, nil
}

// GetConnector creates the client connector based on configuration
func GetConnector() (transport.IClientConnector, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewClientConnector(), nil
	case "unix":
		return unix.NewClientConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// ConnectWithRetry connects c and retries up to retries times with exponential
// backoff. An already connected client counts as success.
func ConnectWithRetry(ctx context.Context, c client.IXceiverClient, retries int) error {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		err := c.Connect(ctx)
		if err == nil || errors.Is(err, common.ErrAlreadyConnected) {
			return nil
		}
		if errors.Is(err, common.ErrClosed) || int(b.Attempt()) >= retries {
			return err
		}

		d := b.Duration()
		Logger.Warningf("Connect failed (attempt %.0f of %d), retrying in %s: %v", b.Attempt(), retries, d, err)

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
