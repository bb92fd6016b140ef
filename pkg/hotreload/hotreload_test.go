package hotreload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrikdev/fabrik/pkg/config"
)

func writeConfigFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestReloadOnFileChangeBroadcastsSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "cache:\n  dir: "+dir+"\n  max_size: 1GB\n")

	initial, err := config.Load(path)
	require.NoError(t, err)

	sup, err := NewSupervisor(path, initial)
	require.NoError(t, err)
	defer sup.Stop()

	sub := sup.Subscribe()
	sup.Start()

	writeConfigFile(t, path, "cache:\n  dir: "+dir+"\n  max_size: 2GB\n")

	select {
	case event := <-sub:
		assert.True(t, event.Success)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	assert.Equal(t, "2GB", sup.Current().Cache.MaxSize)
}

func TestReloadFailurePreservesOldConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "cache:\n  dir: "+dir+"\n  max_size: 1GB\n")

	initial, err := config.Load(path)
	require.NoError(t, err)

	sup, err := NewSupervisor(path, initial)
	require.NoError(t, err)
	defer sup.Stop()

	sub := sup.Subscribe()
	sup.Start()

	writeConfigFile(t, path, "cache:\n  dir: "+dir+"\n  max_size: 1GB\n  eviction_policy: fifo\n")

	select {
	case event := <-sub:
		assert.False(t, event.Success)
		assert.Error(t, event.Err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	assert.Equal(t, "1GB", sup.Current().Cache.MaxSize)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "cache:\n  dir: "+dir+"\n  max_size: 1GB\n")

	initial, err := config.Load(path)
	require.NoError(t, err)

	sup, err := NewSupervisor(path, initial)
	require.NoError(t, err)
	defer sup.Stop()

	sub := sup.Subscribe()
	sup.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok)
}
