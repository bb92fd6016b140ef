package client_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/fabrikdev/fabrik/pkg/cacheservice"
	fabrikclient "github.com/fabrikdev/fabrik/pkg/client"
	"github.com/fabrikdev/fabrik/pkg/fabrikpb"
	"github.com/fabrikdev/fabrik/pkg/index"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

const bufSize = 1 << 20

// newTestServer spins up a real TCP listener (not bufconn) backing a fresh
// Storage Facade + cache service, so client.New's own dialer path gets
// exercised rather than only the raw fabrikpb client.
func newTestServer(t *testing.T) string {
	t.Helper()

	facade, err := storage.Open(storage.Config{CacheDir: t.TempDir(), IndexBackend: index.BackendBolt})
	require.NoError(t, err)
	t.Cleanup(func() { _ = facade.Close() })

	svc := cacheservice.New(facade)
	server := grpc.NewServer()
	fabrikpb.RegisterFabrikCacheServer(server, svc)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func TestClientNewPutGetDeleteRoundTrip(t *testing.T) {
	addr := newTestServer(t)

	c, err := fabrikclient.New(addr, fabrikclient.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	hash := hex.EncodeToString([]byte("fedcba9876543210"))
	data := []byte("hello from client.Client")

	putResp, err := c.Put(hash, data)
	require.NoError(t, err)
	assert.True(t, putResp.Success)
	assert.Equal(t, int64(len(data)), putResp.SizeBytes)

	existsResp, err := c.Exists(hash)
	require.NoError(t, err)
	assert.True(t, existsResp.Exists)
	assert.Equal(t, int64(len(data)), existsResp.SizeBytes)

	got, err := c.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	statsResp, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), statsResp.ArtifactCount)
	assert.Equal(t, uint64(len(data)), statsResp.TotalBytes)

	delResp, err := c.Delete(hash)
	require.NoError(t, err)
	assert.True(t, delResp.Existed)

	existsResp, err = c.Exists(hash)
	require.NoError(t, err)
	assert.False(t, existsResp.Exists)
}

// randomPayload returns n pseudo-random bytes, for exercising chunk-boundary
// accumulation rather than a handful of literal bytes.
func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func TestClientPutGetChunkBoundarySizes(t *testing.T) {
	addr := newTestServer(t)

	c, err := fabrikclient.New(addr, fabrikclient.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

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
			data := randomPayload(t, size)
			hash := hex.EncodeToString(append([]byte(name+"-"), data[:8]...))

			putResp, err := c.Put(hash, data)
			require.NoError(t, err)
			require.True(t, putResp.Success)
			require.Equal(t, int64(size), putResp.SizeBytes)

			got, err := c.Get(hash)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, got), "round-tripped data must match for size %d", size)
		})
	}
}

// Since client.New dials by address string and bufconn needs a custom
// dialer, these tests exercise the fabrikpb client directly against a
// bufconn-backed connection rather than through client.Client's New.
func dialBufconn(t *testing.T, lis *bufconn.Listener) fabrikpb.FabrikCacheClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return fabrikpb.NewFabrikCacheClient(conn)
}

func TestClientPutGetDeleteRoundTrip(t *testing.T) {
	facade, err := storage.Open(storage.Config{CacheDir: t.TempDir(), IndexBackend: index.BackendBolt})
	require.NoError(t, err)
	t.Cleanup(func() { _ = facade.Close() })

	svc := cacheservice.New(facade)
	server := grpc.NewServer()
	fabrikpb.RegisterFabrikCacheServer(server, svc)

	lis := bufconn.Listen(bufSize)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	rawClient := dialBufconn(t, lis)
	hash := hex.EncodeToString([]byte("0123456789abcdef"))

	putStream, err := rawClient.Put(context.Background())
	require.NoError(t, err)
	require.NoError(t, putStream.Send(&fabrikpb.PutChunk{Hash: hash, Chunk: []byte("hello")}))
	putResp, err := putStream.CloseAndRecv()
	require.NoError(t, err)
	assert.True(t, putResp.Success)

	existsResp, err := rawClient.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: hash})
	require.NoError(t, err)
	assert.True(t, existsResp.Exists)

	getStream, err := rawClient.Get(context.Background(), &fabrikpb.GetRequest{Hash: hash})
	require.NoError(t, err)
	var data []byte
	for {
		chunk, err := getStream.Recv()
		if err != nil {
			break
		}
		data = append(data, chunk.Chunk...)
	}
	assert.Equal(t, "hello", string(data))

	delResp, err := rawClient.Delete(context.Background(), &fabrikpb.DeleteRequest{Hash: hash})
	require.NoError(t, err)
	assert.True(t, delResp.Existed)
}
