package touchbatcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApplier struct {
	mu      sync.Mutex
	batches [][]Touch
}

func (f *fakeApplier) ApplyTouches(touches []Touch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]Touch, len(touches))
	copy(cp, touches)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeApplier) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestEnqueueFlushesOnTimer(t *testing.T) {
	applier := &fakeApplier{}
	b := New(applier)
	defer b.Close()

	b.Enqueue(Touch{ID: []byte{0x01}, AccessedAt: 1})
	b.Enqueue(Touch{ID: []byte{0x02}, AccessedAt: 2})

	require.Eventually(t, func() bool {
		return applier.total() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestEnqueueFlushesOnBatchSize(t *testing.T) {
	applier := &fakeApplier{}
	b := New(applier)
	defer b.Close()

	for i := 0; i < maxBatchSize; i++ {
		b.Enqueue(Touch{ID: []byte{byte(i)}, AccessedAt: int64(i)})
	}

	require.Eventually(t, func() bool {
		return applier.total() == maxBatchSize
	}, time.Second, 10*time.Millisecond)
}

func TestCloseFlushesPending(t *testing.T) {
	applier := &fakeApplier{}
	b := New(applier)

	b.Enqueue(Touch{ID: []byte{0x09}, AccessedAt: 9})
	require.NoError(t, b.Close())

	assert.Equal(t, 1, applier.total())
}

func TestCloseIsIdempotent(t *testing.T) {
	applier := &fakeApplier{}
	b := New(applier)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestEnqueueDropsOnFullQueueWithoutBlocking(t *testing.T) {
	applier := &blockingApplier{release: make(chan struct{})}
	b := New(applier)
	defer func() {
		close(applier.release)
		b.Close()
	}()

	// The worker is blocked on its first flush; fill the queue well past
	// capacity to exercise the drop-on-full path without ever blocking
	// the caller.
	for i := 0; i < queueCapacity*2; i++ {
		b.Enqueue(Touch{ID: []byte{byte(i % 256)}, AccessedAt: int64(i)})
	}
}

type blockingApplier struct {
	once    sync.Once
	release chan struct{}
}

func (b *blockingApplier) ApplyTouches(touches []Touch) error {
	b.once.Do(func() { <-b.release })
	return nil
}
