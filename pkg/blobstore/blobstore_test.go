package blobstore

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0x4a, 0x5f, 0x01}
	require.NoError(t, store.Write(id, []byte("hello world")))

	data, ok, err := store.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(data))
}

func TestReadMissingReturnsFalse(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Read([]byte{0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0xff, 0xff, 0xff}
	require.NoError(t, store.Remove(id))
	require.NoError(t, store.Write(id, []byte("x")))
	require.NoError(t, store.Remove(id))
	require.NoError(t, store.Remove(id))

	ok, err := store.Exists(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverwritePreservesLastWriter(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0xaa}
	require.NoError(t, store.Write(id, []byte("v1")))
	require.NoError(t, store.Write(id, []byte("v2")))

	data, ok, err := store.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(data))
}

func TestConcurrentWritesNeverProduceTornBlob(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0xbb}
	v1 := bytes.Repeat([]byte{1}, 512)
	v2 := bytes.Repeat([]byte{2}, 512)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = store.Write(id, v1) }()
	go func() { defer wg.Done(); _ = store.Write(id, v2) }()
	wg.Wait()

	data, ok, err := store.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	if !bytes.Equal(data, v1) && !bytes.Equal(data, v2) {
		t.Fatalf("read returned mixed content of length %d", len(data))
	}
}

func TestReadAtStreamsBlob(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0xcc}
	payload := bytes.Repeat([]byte("x"), 1024)
	require.NoError(t, store.Write(id, payload))

	rc, size, ok, err := store.ReadAt(id)
	require.NoError(t, err)
	require.True(t, ok)
	defer rc.Close()
	assert.Equal(t, int64(len(payload)), size)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLargeBlobRoundTripsAtChunkBoundarySizes(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	const chunkSize = 64 * 1024
	sizes := map[string]int{
		"below-one-chunk":     chunkSize - 1,
		"exactly-one-chunk":   chunkSize,
		"just-over-one-chunk": chunkSize + 1,
		"multi-chunk-1mib":    1 << 20,
		"multi-chunk-10mib":   10 << 20,
	}

	for name, size := range sizes {
		t.Run(name, func(t *testing.T) {
			id := []byte(name)
			payload := bytes.Repeat([]byte{0x5a}, size)
			require.NoError(t, store.Write(id, payload))

			data, ok, err := store.Read(id)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, payload, data)
		})
	}
}

func TestEmptyBlobRoundTrips(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	id := []byte{0x01}
	require.NoError(t, store.Write(id, []byte{}))

	data, ok, err := store.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, data)
}
