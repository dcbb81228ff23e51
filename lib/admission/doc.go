// Package admission implements the admission gate that bounds the number of
// concurrently outstanding requests of a single client.
//
// A Gate hands out a fixed number of permits. A request must hold a permit from
// the moment it is written to the connection until its response was matched or
// the request failed. The transport layer acquires the permit, the completion of
// the request releases it, so the gate protects both the remote node and the
// local client from unbounded queues.
//
// Key Components:
//
//   - Gate: permit pool on top of golang.org/x/sync/semaphore with an atomic
//     in-use counter. Acquire blocks (FIFO) and honours context cancellation,
//     Release panics on a release without a matching acquire.
//
// Metrics:
//
//	Permit acquisitions, releases, cancelled waits and the time spent waiting
//	are exported through github.com/VictoriaMetrics/metrics.
package admission
