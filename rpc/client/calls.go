package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/xceiver/rpc/common"
)

// --------------------------------------------------------------------------
// Typed Container Calls
// --------------------------------------------------------------------------

// Echo sends payload to the leader and returns what it echoed back
func Echo(ctx context.Context, c IXceiverClient, payload []byte) ([]byte, error) {
	resp, err := invoke(ctx, c, common.NewEchoRequest(payload))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// PutChunk writes a chunk into a container, the container is created on demand
func PutChunk(ctx context.Context, c IXceiverClient, containerID, localID uint64, data []byte) error {
	_, err := invoke(ctx, c, common.NewPutChunkRequest(containerID, localID, data))
	return err
}

// ReadChunk reads a chunk from a container
func ReadChunk(ctx context.Context, c IXceiverClient, containerID, localID uint64) ([]byte, error) {
	resp, err := invoke(ctx, c, common.NewReadChunkRequest(containerID, localID))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteChunk deletes a chunk from a container
func DeleteChunk(ctx context.Context, c IXceiverClient, containerID, localID uint64) error {
	_, err := invoke(ctx, c, common.NewDeleteChunkRequest(containerID, localID))
	return err
}

// ListChunks returns the local ids of all chunks in a container
func ListChunks(ctx context.Context, c IXceiverClient, containerID uint64) ([]uint64, error) {
	resp, err := invoke(ctx, c, common.NewListChunksRequest(containerID))
	if err != nil {
		return nil, err
	}
	return resp.LocalIDs, nil
}

// invoke sends req and validates the response.
// Failures reported by the server are returned as *common.ContainerError,
// a response of the wrong type as *common.ProtocolError.
func invoke(ctx context.Context, c IXceiverClient, req *common.Message) (*common.Message, error) {
	resp, err := c.SendSync(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		result := resp.Result
		if resp.CmdType == common.CmdError && result == common.ResultSuccess {
			result = common.ResultMalformedRequest
		}
		return nil, &common.ContainerError{Result: result, Msg: resp.Err}
	}

	if resp.CmdType != req.CmdType {
		return nil, &common.ProtocolError{
			Msg: fmt.Sprintf("unexpected response type %s, expected %s", resp.CmdType, req.CmdType),
		}
	}

	return resp, nil
}
