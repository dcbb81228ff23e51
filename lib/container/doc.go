// Package container provides the chunk storage behind the stand-alone
// container server. Chunks are addressed by a container id and a local id
// that is unique within its container.
//
// Key Components:
//
//   - IContainerStore: the storage contract used by the server adapter.
//
//   - memStore: in-memory implementation built on xsync.MapOf, one map of
//     chunks per container. Data is copied on write and on read, so callers
//     may reuse their buffers.
//
//   - Error / RetCode: typed failures (container not found, no such chunk,
//     invalid argument). The exported sentinels match any error with the same
//     code through errors.Is.
package container
