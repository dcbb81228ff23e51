package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/xceiver/lib/container"
	"github.com/ValentinKolb/xceiver/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var adapterLogger = logger.GetLogger("container")

// NewContainerServerAdapter creates an adapter executing container commands
// against an IContainerStore. Every response is delayed by handlerDelay.
func NewContainerServerAdapter(handlerDelay time.Duration) IRPCServerAdapter {
	return &containerServerAdapter{handlerDelay: handlerDelay}
}

type containerServerAdapter struct {
	handlerDelay time.Duration
}

func (adapter *containerServerAdapter) Handle(req *common.Message, store container.IContainerStore) *common.Message {
	if store == nil {
		return common.NewErrorResponse(req, common.ResultIOException, "handler: store is nil")
	}

	if adapter.handlerDelay > 0 {
		time.Sleep(adapter.handlerDelay)
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`xceiver_server_requests_total{cmd=%q}`, req.CmdType)).Inc()

	resp := common.NewResponse(req)

	switch req.CmdType {
	case common.CmdEcho:
		resp.Data = req.Data
		return resp
	case common.CmdPutChunk:
		if err := store.PutChunk(req.ContainerID, req.LocalID, req.Data); err != nil {
			return storeErrorResponse(req, err)
		}
		return resp
	case common.CmdReadChunk:
		data, err := store.ReadChunk(req.ContainerID, req.LocalID)
		if err != nil {
			return storeErrorResponse(req, err)
		}
		resp.Data = data
		return resp
	case common.CmdDeleteChunk:
		if err := store.DeleteChunk(req.ContainerID, req.LocalID); err != nil {
			return storeErrorResponse(req, err)
		}
		return resp
	case common.CmdListChunks:
		ids, err := store.ListChunks(req.ContainerID)
		if err != nil {
			return storeErrorResponse(req, err)
		}
		resp.LocalIDs = ids
		return resp
	default:
		return common.NewErrorResponse(req, common.ResultUnsupported,
			fmt.Sprintf("container adapter - unsupported command type: %s", req.CmdType))
	}
}

// storeErrorResponse maps a store error to the result code of the response
func storeErrorResponse(req *common.Message, err error) *common.Message {
	result := common.ResultIOException

	var storeErr *container.Error
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case container.RetCContainerNotFound:
			result = common.ResultContainerMissing
		case container.RetCNoSuchChunk:
			result = common.ResultNoSuchChunk
		case container.RetCInvalidArgument:
			result = common.ResultMalformedRequest
		}
	}

	if result == common.ResultIOException {
		adapterLogger.Errorf("%s on container %d failed: %v", req.CmdType, req.ContainerID, err)
	} else {
		adapterLogger.Debugf("%s on container %d: %v", req.CmdType, req.ContainerID, err)
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`xceiver_server_errors_total{result=%q}`, result)).Inc()

	return common.NewErrorResponse(req, result, err.Error())
}
