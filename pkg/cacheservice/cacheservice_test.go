package cacheservice

import (
	"context"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/fabrikdev/fabrik/pkg/fabrikpb"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

type fakeFacade struct {
	objects map[string][]byte
	touched []string
}

func newFakeFacade() *fakeFacade { return &fakeFacade{objects: map[string][]byte{}} }

func (f *fakeFacade) Touch(id []byte) {
	f.touched = append(f.touched, string(id))
}

func (f *fakeFacade) Exists(id []byte) (bool, error) {
	_, ok := f.objects[string(id)]
	return ok, nil
}

func (f *fakeFacade) Size(id []byte) (uint64, bool, error) {
	data, ok := f.objects[string(id)]
	return uint64(len(data)), ok, nil
}

func (f *fakeFacade) Get(id []byte) ([]byte, bool, error) {
	data, ok := f.objects[string(id)]
	return data, ok, nil
}

func (f *fakeFacade) Put(id []byte, data []byte) error {
	f.objects[string(id)] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFacade) Delete(id []byte) error {
	delete(f.objects, string(id))
	return nil
}

func (f *fakeFacade) Stats() storage.Stats {
	total := uint64(0)
	for _, v := range f.objects {
		total += uint64(len(v))
	}
	return storage.Stats{ObjectCount: uint64(len(f.objects)), TotalBytes: total}
}

const testHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestExistsNotFound(t *testing.T) {
	svc := New(newFakeFacade())
	resp, err := svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: testHash})
	require.NoError(t, err)
	assert.False(t, resp.Exists)
}

func TestPutAndExists(t *testing.T) {
	facade := newFakeFacade()
	id, _ := hex.DecodeString(testHash)
	require.NoError(t, facade.Put(id, []byte("test data")))

	svc := New(facade)
	resp, err := svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: testHash})
	require.NoError(t, err)
	assert.True(t, resp.Exists)
	assert.Equal(t, int64(9), resp.SizeBytes)
}

func TestExistsTouchesOnHit(t *testing.T) {
	facade := newFakeFacade()
	id, _ := hex.DecodeString(testHash)
	require.NoError(t, facade.Put(id, []byte("test data")))

	svc := New(facade)
	_, err := svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: testHash})
	require.NoError(t, err)
	assert.Equal(t, []string{string(id)}, facade.touched)
}

func TestExistsDoesNotTouchOnMiss(t *testing.T) {
	facade := newFakeFacade()
	svc := New(facade)
	_, err := svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: testHash})
	require.NoError(t, err)
	assert.Empty(t, facade.touched)
}

func TestGetNotFound(t *testing.T) {
	svc := New(newFakeFacade())
	err := svc.Get(&fabrikpb.GetRequest{Hash: testHash}, &fakeGetServer{})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDelete(t *testing.T) {
	facade := newFakeFacade()
	id, _ := hex.DecodeString(testHash)
	require.NoError(t, facade.Put(id, []byte("test data")))

	svc := New(facade)
	resp, err := svc.Delete(context.Background(), &fabrikpb.DeleteRequest{Hash: testHash})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Existed)

	exists, _ := facade.Exists(id)
	assert.False(t, exists)
}

func TestGetStatsReportsRealCounters(t *testing.T) {
	facade := newFakeFacade()
	svc := New(facade)

	resp, err := svc.GetStats(context.Background(), &fabrikpb.GetStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), resp.CacheHits)
	assert.Equal(t, uint64(0), resp.CacheMisses)

	_, _ = svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: testHash})
	_ = svc.Get(&fabrikpb.GetRequest{Hash: testHash}, &fakeGetServer{})

	resp, err = svc.GetStats(context.Background(), &fabrikpb.GetStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), resp.CacheHits)
	assert.Equal(t, uint64(1), resp.CacheMisses)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, uint64(0))
}

func TestInvalidHashRejected(t *testing.T) {
	svc := New(newFakeFacade())
	_, err := svc.Exists(context.Background(), &fabrikpb.ExistsRequest{Hash: "not-hex!"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// fakeGetServer implements fabrikpb.FabrikCache_GetServer without a live
// gRPC transport, for exercising Service.Get in isolation.
type fakeGetServer struct {
	chunks [][]byte
}

func (s *fakeGetServer) Send(chunk *fabrikpb.GetChunk) error {
	s.chunks = append(s.chunks, chunk.Chunk)
	return nil
}

func (s *fakeGetServer) SetHeader(metadata.MD) error  { return nil }
func (s *fakeGetServer) SendHeader(metadata.MD) error { return nil }
func (s *fakeGetServer) SetTrailer(metadata.MD)       {}
func (s *fakeGetServer) Context() context.Context     { return context.Background() }
func (s *fakeGetServer) SendMsg(m any) error { return nil }
func (s *fakeGetServer) RecvMsg(m any) error { return io.EOF }
