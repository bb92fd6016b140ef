package bazel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFacade struct {
	objects map[string][]byte
}

func newFakeFacade() *fakeFacade { return &fakeFacade{objects: map[string][]byte{}} }

func (f *fakeFacade) Exists(id []byte) (bool, error) {
	_, ok := f.objects[string(id)]
	return ok, nil
}

func (f *fakeFacade) Get(id []byte) ([]byte, bool, error) {
	data, ok := f.objects[string(id)]
	return data, ok, nil
}

func (f *fakeFacade) Put(id []byte, data []byte) error {
	f.objects[string(id)] = data
	return nil
}

func TestCASKeyFormat(t *testing.T) {
	assert.Equal(t, []byte("cas:abc123:42"), CASKey("abc123", 42))
}

func TestActionCacheKeyFormat(t *testing.T) {
	assert.Equal(t, []byte("action_cache:default:abc123:42"), ActionCacheKey("default", "abc123", 42))
}

func TestCASRoundTrip(t *testing.T) {
	facade := newFakeFacade()
	cas := NewCAS(facade)

	require.NoError(t, cas.Put("deadbeef", 4, []byte("data")))
	data, ok, err := cas.Get("deadbeef", 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "data", string(data))
}

func TestActionCacheRoundTrip(t *testing.T) {
	facade := newFakeFacade()
	ac := NewActionCache(facade)

	require.NoError(t, ac.UpdateActionResult("default", "deadbeef", 4, []byte("result")))
	data, ok, err := ac.GetActionResult("default", "deadbeef", 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "result", string(data))
}
