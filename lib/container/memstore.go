package container

import (
	"fmt"
	"github.com/puzpuzpuz/xsync/v3"
	"slices"
	"sync/atomic"
)

// memContainer holds the chunks of one container
type memContainer struct {
	chunks *xsync.MapOf[uint64, []byte]
}

// memStore implements IContainerStore in memory
type memStore struct {
	containers *xsync.MapOf[uint64, *memContainer]
	chunks     atomic.Int64
	bytes      atomic.Int64
}

// NewMemStore creates an empty in-memory container store
//
// Thread-safe: all methods are safe for concurrent use
func NewMemStore() IContainerStore {
	return &memStore{
		containers: xsync.NewMapOf[uint64, *memContainer](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see container.IContainerStore)
// --------------------------------------------------------------------------

func (s *memStore) PutChunk(containerID, localID uint64, data []byte) error {
	if containerID == 0 {
		return &Error{Code: RetCInvalidArgument, Msg: "container id 0 is reserved"}
	}

	c, _ := s.containers.LoadOrCompute(containerID, func() *memContainer {
		return &memContainer{chunks: xsync.NewMapOf[uint64, []byte]()}
	})

	stored := slices.Clone(data)
	if stored == nil {
		stored = []byte{}
	}

	old, loaded := c.chunks.LoadAndStore(localID, stored)
	if loaded {
		s.bytes.Add(int64(len(stored) - len(old)))
	} else {
		s.chunks.Add(1)
		s.bytes.Add(int64(len(stored)))
	}
	return nil
}

func (s *memStore) ReadChunk(containerID, localID uint64) ([]byte, error) {
	c, err := s.container(containerID)
	if err != nil {
		return nil, err
	}
	data, ok := c.chunks.Load(localID)
	if !ok {
		return nil, noSuchChunk(containerID, localID)
	}
	return slices.Clone(data), nil
}

func (s *memStore) DeleteChunk(containerID, localID uint64) error {
	c, err := s.container(containerID)
	if err != nil {
		return err
	}
	old, ok := c.chunks.LoadAndDelete(localID)
	if !ok {
		return noSuchChunk(containerID, localID)
	}
	s.chunks.Add(-1)
	s.bytes.Add(-int64(len(old)))
	return nil
}

func (s *memStore) ListChunks(containerID uint64) ([]uint64, error) {
	c, err := s.container(containerID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, c.chunks.Size())
	c.chunks.Range(func(localID uint64, _ []byte) bool {
		ids = append(ids, localID)
		return true
	})
	slices.Sort(ids)
	return ids, nil
}

func (s *memStore) Stats() Stats {
	return Stats{
		Containers: s.containers.Size(),
		Chunks:     int(s.chunks.Load()),
		Bytes:      s.bytes.Load(),
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *memStore) container(containerID uint64) (*memContainer, error) {
	c, ok := s.containers.Load(containerID)
	if !ok {
		return nil, &Error{Code: RetCContainerNotFound, Msg: fmt.Sprintf("container %d does not exist", containerID)}
	}
	return c, nil
}

func noSuchChunk(containerID, localID uint64) error {
	return &Error{Code: RetCNoSuchChunk, Msg: fmt.Sprintf("chunk %d does not exist in container %d", localID, containerID)}
}
