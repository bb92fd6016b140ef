// Package bazel translates Bazel Remote Execution API CAS and ActionCache
// lookups into Storage Facade keys. It is a reference adapter: a full
// ByteStream/ActionCache gRPC server is out of scope, but the key-shaping
// contract those services would sit on top of is implemented and tested
// here.
package bazel

import "fmt"

// CASKey builds the Storage Facade key for a content-addressable blob
// identified by its hex digest and size, matching the reference
// implementation's "cas:<hash>:<size>" layout.
func CASKey(hash string, sizeBytes int64) []byte {
	return []byte(fmt.Sprintf("cas:%s:%d", hash, sizeBytes))
}

// ActionCacheKey builds the Storage Facade key for a cached ActionResult,
// scoped by Bazel instance name, matching the reference implementation's
// "action_cache:<instance>:<hash>:<size>" layout.
func ActionCacheKey(instanceName, hash string, sizeBytes int64) []byte {
	return []byte(fmt.Sprintf("action_cache:%s:%s:%d", instanceName, hash, sizeBytes))
}

// Facade is the subset of the Storage Facade the adapter depends on.
type Facade interface {
	Exists(id []byte) (bool, error)
	Get(id []byte) ([]byte, bool, error)
	Put(id []byte, data []byte) error
}

// CAS is a thin Bazel-CAS-shaped view over a Facade.
type CAS struct {
	facade Facade
}

// NewCAS wraps facade with CAS-style lookups.
func NewCAS(facade Facade) *CAS {
	return &CAS{facade: facade}
}

func (c *CAS) Exists(hash string, sizeBytes int64) (bool, error) {
	return c.facade.Exists(CASKey(hash, sizeBytes))
}

func (c *CAS) Get(hash string, sizeBytes int64) ([]byte, bool, error) {
	return c.facade.Get(CASKey(hash, sizeBytes))
}

func (c *CAS) Put(hash string, sizeBytes int64, data []byte) error {
	return c.facade.Put(CASKey(hash, sizeBytes), data)
}

// ActionCache is a thin Bazel-ActionCache-shaped view over a Facade.
type ActionCache struct {
	facade Facade
}

// NewActionCache wraps facade with ActionCache-style lookups.
func NewActionCache(facade Facade) *ActionCache {
	return &ActionCache{facade: facade}
}

func (a *ActionCache) GetActionResult(instanceName, hash string, sizeBytes int64) ([]byte, bool, error) {
	return a.facade.Get(ActionCacheKey(instanceName, hash, sizeBytes))
}

func (a *ActionCache) UpdateActionResult(instanceName, hash string, sizeBytes int64, serialized []byte) error {
	return a.facade.Put(ActionCacheKey(instanceName, hash, sizeBytes), serialized)
}
