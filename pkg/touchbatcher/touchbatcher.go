// Package touchbatcher coalesces per-Get access-time and access-count bumps
// into small periodic batch writes against the Metadata Index, so a hot
// object does not incur a synchronous index write on every read.
package touchbatcher

import (
	"sync"
	"time"

	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/metrics"
)

const (
	queueCapacity = 1000
	maxBatchSize  = 100
	maxBatchDelay = 100 * time.Millisecond
)

// Touch is a single access-time/access-count bump for id.
type Touch struct {
	ID         []byte
	AccessedAt int64
}

// Applier persists a batch of touches to the Metadata Index. Implemented by
// the Storage Facade.
type Applier interface {
	ApplyTouches(touches []Touch) error
}

// Batcher drains touches off a bounded channel and flushes them to an
// Applier in batches of up to 100 or every 100ms, whichever comes first.
// Enqueue never blocks: under sustained overload, touches are dropped
// rather than backpressuring the read path.
type Batcher struct {
	applier Applier
	queue   chan Touch
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a Batcher backed by applier. Call Close to flush and stop it.
func New(applier Applier) *Batcher {
	b := &Batcher{
		applier: applier,
		queue:   make(chan Touch, queueCapacity),
		done:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Enqueue submits a touch. If the queue is full the touch is dropped and
// fabrik_touch_queue_dropped_total is incremented.
func (b *Batcher) Enqueue(t Touch) {
	select {
	case b.queue <- t:
	default:
		metrics.TouchQueueDroppedTotal.Inc()
	}
}

func (b *Batcher) run() {
	defer b.wg.Done()
	logger := log.WithComponent("touchbatcher")

	batch := make([]Touch, 0, maxBatchSize)
	timer := time.NewTimer(maxBatchDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := b.applier.ApplyTouches(batch); err != nil {
			logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("failed to apply touch batch")
		} else {
			metrics.TouchBatchSize.Observe(float64(len(batch)))
		}
		batch = make([]Touch, 0, maxBatchSize)
	}

	for {
		select {
		case t := <-b.queue:
			batch = append(batch, t)
			if len(batch) >= maxBatchSize {
				flush()
				timer.Reset(maxBatchDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(maxBatchDelay)
		case <-b.done:
			// Drain whatever is already queued before the final flush.
			for {
				select {
				case t := <-b.queue:
					batch = append(batch, t)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops the worker and flushes any pending touches. Calls after the
// first return nil without doing anything.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
	return nil
}
