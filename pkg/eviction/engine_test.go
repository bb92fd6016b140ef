package eviction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrikdev/fabrik/pkg/index"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

func openFacade(t *testing.T) *storage.Facade {
	t.Helper()
	f, err := storage.Open(storage.Config{CacheDir: t.TempDir(), IndexBackend: index.BackendBolt})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRunOnceNoOpUnderCeiling(t *testing.T) {
	f := openFacade(t)
	require.NoError(t, f.Put([]byte{0x01}, []byte("small")))

	e := NewEngine(f, Config{MaxSizeBytes: 1 << 20, Policy: PolicyLRU})
	evicted, err := e.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, evicted)
}

func TestRunOnceEvictsUntilTargetRatio(t *testing.T) {
	f := openFacade(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, f.Put([]byte{byte(i)}, []byte(fmt.Sprintf("payload-%d", i))))
	}

	stats := f.Stats()
	e := NewEngine(f, Config{
		MaxSizeBytes:       stats.TotalBytes - 1,
		Policy:             PolicyLRU,
		TargetRatio:        0.5,
		MaxEvictionsPerRun: 100,
	})

	evicted, err := e.RunOnce()
	require.NoError(t, err)
	assert.Greater(t, evicted, 0)

	after := f.Stats()
	assert.LessOrEqual(t, after.TotalBytes, stats.TotalBytes/2+1)
}

func TestRunOnceRespectsMaxEvictionsPerRun(t *testing.T) {
	f := openFacade(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, f.Put([]byte{byte(i)}, []byte("x")))
	}

	stats := f.Stats()
	e := NewEngine(f, Config{
		MaxSizeBytes:       stats.TotalBytes - 1,
		Policy:             PolicyLRU,
		TargetRatio:        0.01,
		MaxEvictionsPerRun: 2,
	})

	evicted, err := e.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)
}

func TestStartStopDoesNotPanic(t *testing.T) {
	f := openFacade(t)
	e := NewEngine(f, Config{MaxSizeBytes: 1 << 20, Policy: PolicyLRU})
	e.Start()
	e.Wake()
	e.Stop()
}
