package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"strings"
	"testing"
)

func TestErrorUnwrapping(t *testing.T) {
	te := &TransportError{Op: "dial", Addr: "localhost:1", Err: io.ErrUnexpectedEOF}
	cu := &ConnectionUnavailableError{Endpoint: "localhost:1", Err: te}

	require.ErrorIs(t, cu, io.ErrUnexpectedEOF)

	var got *TransportError
	require.True(t, errors.As(cu, &got))
	require.Same(t, te, got)

	de := &DispatchError{Msg: "unexpected", Err: ErrClosed}
	require.ErrorIs(t, de, ErrClosed)
	require.Equal(t, "unexpected", de.Error())
}

func TestIsTransportFailure(t *testing.T) {
	require.True(t, IsTransportFailure(&TransportError{Op: "read", Err: io.EOF}))
	require.True(t, IsTransportFailure(fmt.Errorf("wrapped: %w", &ProtocolError{Msg: "bad frame"})))
	require.False(t, IsTransportFailure(errors.New("other")))
	require.False(t, IsTransportFailure(ErrClosed))
	require.False(t, IsTransportFailure(nil))
}

func TestTransportErrorTimeout(t *testing.T) {
	require.True(t, (&TransportError{Op: "read", Err: os.ErrDeadlineExceeded}).Timeout())
	require.False(t, (&TransportError{Op: "read", Err: io.EOF}).Timeout())
}

func TestCommandTypeJSON(t *testing.T) {
	for cmd := CmdEcho; cmd <= CmdError; cmd++ {
		data, err := json.Marshal(cmd)
		require.NoError(t, err)

		var got CommandType
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, cmd, got)
	}

	var got CommandType
	require.Error(t, json.Unmarshal([]byte(`"nope"`), &got))
}

func TestResponseFactories(t *testing.T) {
	req := NewReadChunkRequest(7, 9)
	req.TraceID = "trace-1"

	resp := NewResponse(req)
	require.True(t, resp.IsSuccess())
	require.Equal(t, CmdReadChunk, resp.CmdType)
	require.Equal(t, "trace-1", resp.TraceID)
	require.Equal(t, uint64(7), resp.ContainerID)
	require.Equal(t, uint64(9), resp.LocalID)

	failed := NewErrorResponse(req, ResultNoSuchChunk, "missing")
	require.False(t, failed.IsSuccess())
	require.Equal(t, "missing", failed.Err)

	require.False(t, NewMalformedResponse("garbage").IsSuccess())
}

func TestClientConfigValidate(t *testing.T) {
	conf := DefaultClientConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, DefaultMaxOutstandingRequests, conf.MaxOutstandingRequests)
	require.Equal(t, 9859, conf.DefaultContainerPort)

	bad := conf
	bad.MaxOutstandingRequests = 0
	require.Error(t, bad.Validate())

	bad = conf
	bad.DefaultContainerPort = 70000
	require.Error(t, bad.Validate())

	bad = conf
	bad.TimeoutSecond = -1
	require.Error(t, bad.Validate())

	require.Contains(t, conf.String(), "Max Outstanding Requests")
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, err := ParseLogLevel(lvl)
		require.NoError(t, err, lvl)
	}
	_, err := ParseLogLevel("verbose")
	require.Error(t, err)
	require.Error(t, InitLoggers("verbose"))
}

func TestLoggerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("transport/rpc", &buf, 0)

	l.Debugf("hidden %d", 1)
	l.Infof("connected to %s", "dn-1")
	l.Warningf("slow")
	require.Equal(t,
		"INFO  | transport/rpc | connected to dn-1\n"+
			"WARN  | transport/rpc | slow\n",
		buf.String())

	buf.Reset()
	l.SetLevel(logger.ERROR)
	l.Warningf("dropped")
	l.Errorf("failed")
	require.Equal(t, "ERROR | transport/rpc | failed\n", buf.String())

	buf.Reset()
	require.PanicsWithValue(t, "boom", func() { l.Panicf("boom") })
	require.True(t, strings.HasPrefix(buf.String(), "PANIC | transport/rpc"))
}

func TestLoggersWriteToStderr(t *testing.T) {
	require.Equal(t, io.Writer(os.Stderr), logOutput)
}
