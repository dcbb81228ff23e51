package admission

import (
	"context"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/semaphore"
	"sync/atomic"
	"time"
)

var (
	acquiredTotal = metrics.GetOrCreateCounter(`xceiver_admission_permits_acquired_total`)
	releasedTotal = metrics.GetOrCreateCounter(`xceiver_admission_permits_released_total`)
	rejectedTotal = metrics.GetOrCreateCounter(`xceiver_admission_acquire_cancelled_total`)
	waitSeconds   = metrics.GetOrCreateHistogram(`xceiver_admission_wait_seconds`)
)

// Gate is a counting permit pool that bounds the number of outstanding
// requests of one client. Waiters are granted permits in FIFO order.
//
// Thread-safe: all methods are safe for concurrent use
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
}

// New creates a gate with maxOutstanding permits. A non-positive capacity is a
// programming error (configuration is validated before a gate is built).
func New(maxOutstanding int) *Gate {
	if maxOutstanding <= 0 {
		panic(fmt.Sprintf("admission: capacity must be > 0, got %d", maxOutstanding))
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(maxOutstanding)),
		capacity: int64(maxOutstanding),
	}
}

// Acquire blocks until a permit is available. It only fails when ctx is done
// before a permit could be granted, in which case no permit is held.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		rejectedTotal.Inc()
		return err
	}
	waitSeconds.Update(time.Since(start).Seconds())
	g.inUse.Add(1)
	acquiredTotal.Inc()
	return nil
}

// TryAcquire takes a permit without blocking and reports whether it succeeded.
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inUse.Add(1)
	acquiredTotal.Inc()
	return true
}

// Release returns a permit. Every successful Acquire/TryAcquire must be paired
// with exactly one Release; releasing a permit that is not held panics.
func (g *Gate) Release() {
	if g.inUse.Add(-1) < 0 {
		g.inUse.Add(1)
		panic("admission: release without a matching acquire")
	}
	g.sem.Release(1)
	releasedTotal.Inc()
}

// InUse returns the number of permits currently held.
func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}

// Capacity returns the maximum number of permits.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// String implements fmt.Stringer
func (g *Gate) String() string {
	return fmt.Sprintf("gate(%d/%d)", g.InUse(), g.capacity)
}
