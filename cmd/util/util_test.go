package util

import (
	"context"
	"errors"
	"github.com/ValentinKolb/xceiver/lib/pipeline"
	"github.com/ValentinKolb/xceiver/rpc/client"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

// connectOnlyClient fails Connect until failures reaches zero
type connectOnlyClient struct {
	client.IXceiverClient
	failures int
	calls    int
	err      error
}

func (c *connectOnlyClient) Connect(context.Context) error {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return c.err
	}
	return nil
}

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		require.LessOrEqual(t, len(line), Wrap)
	}
	require.Equal(t, "short text", WrapString("  short   text "))
}

func TestConnectWithRetry(t *testing.T) {
	refused := &common.TransportError{Op: "dial", Addr: "dn-1", Err: errors.New("refused")}

	t.Run("succeeds after retries", func(t *testing.T) {
		c := &connectOnlyClient{failures: 2, err: refused}
		require.NoError(t, ConnectWithRetry(context.Background(), c, 3))
		require.Equal(t, 3, c.calls)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		c := &connectOnlyClient{failures: 5, err: refused}
		err := ConnectWithRetry(context.Background(), c, 1)
		require.ErrorIs(t, err, refused)
		require.Equal(t, 2, c.calls)
	})

	t.Run("no retries", func(t *testing.T) {
		c := &connectOnlyClient{failures: 1, err: refused}
		require.Error(t, ConnectWithRetry(context.Background(), c, 0))
		require.Equal(t, 1, c.calls)
	})

	t.Run("already connected", func(t *testing.T) {
		c := &connectOnlyClient{failures: 1, err: common.ErrAlreadyConnected}
		require.NoError(t, ConnectWithRetry(context.Background(), c, 0))
	})

	t.Run("closed is not retried", func(t *testing.T) {
		c := &connectOnlyClient{failures: 3, err: common.ErrClosed}
		require.ErrorIs(t, ConnectWithRetry(context.Background(), c, 5), common.ErrClosed)
		require.Equal(t, 1, c.calls)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &connectOnlyClient{failures: 3, err: refused}
		require.ErrorIs(t, ConnectWithRetry(ctx, c, 5), context.Canceled)
	})
}

func TestConfigFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("pipeline-id", "p-7")
	viper.Set("nodes", "dn-1=10.0.0.1:9000,dn-2=10.0.0.2")
	viper.Set("leader", "dn-2")
	viper.Set("serializer", "gob")
	viper.Set("transport", "unix")
	viper.Set("max-outstanding", 8)
	viper.Set("default-port", 9859)
	viper.Set("timeout", 3)
	viper.Set("transport-write-buffer", 4)
	viper.Set("transport-tcp-linger", -1)

	p, err := GetPipeline()
	require.NoError(t, err)
	require.Equal(t, "p-7", p.ID())
	require.Equal(t, "dn-2", p.Leader().ID)
	require.Equal(t, pipeline.ReplicationStandAlone, p.Type())

	conf := GetClientConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, 8, conf.MaxOutstandingRequests)
	require.Equal(t, 3, conf.TimeoutSecond)
	require.Equal(t, 4096, conf.Transport.WriteBufferSize)
	require.Equal(t, -1, conf.Transport.TCPLingerSec)

	_, err = GetSerializer()
	require.NoError(t, err)

	connector, err := GetConnector()
	require.NoError(t, err)
	require.Equal(t, "unix", connector.GetName())

	viper.Set("serializer", "xml")
	_, err = GetSerializer()
	require.Error(t, err)

	viper.Set("transport", "http")
	_, err = GetConnector()
	require.Error(t, err)

	viper.Set("leader", "dn-9")
	_, err = GetPipeline()
	require.Error(t, err)
}
