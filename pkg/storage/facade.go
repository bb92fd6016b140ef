// Package storage implements the Storage Facade: the single entry point the
// Cache Service and Eviction Engine use to read and write cached objects,
// combining the Blob Store, the Metadata Index, and the Touch Batcher into
// one crash-consistent API.
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fabrikdev/fabrik/pkg/blobstore"
	"github.com/fabrikdev/fabrik/pkg/index"
	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/metrics"
	"github.com/fabrikdev/fabrik/pkg/touchbatcher"
)

// ErrNotFound names an object that is absent from both the blob store and
// the metadata index. The Facade's own methods do not return it: Get and
// Size report absence through their ok result.
var ErrNotFound = errors.New("storage: object not found")

// Stats summarizes the current occupancy of the cache, used by GetStats and
// the Eviction Engine's high-watermark check.
type Stats struct {
	ObjectCount uint64
	TotalBytes  uint64
}

// Facade is the crash-consistent façade over the Blob Store and Metadata
// Index. Concurrent callers may safely Put, Get, and Delete the same id;
// Put always writes the blob before the metadata record and, on Delete,
// removes the metadata record before the blob, so a crash leaves at worst
// an orphaned blob rather than metadata pointing at nothing. An orphaned
// blob is not swept; it is replaced when the next Put for that id arrives.
type Facade struct {
	blobs *blobstore.Store
	idx   index.Index
	touch *touchbatcher.Batcher

	memCache *lru.Cache[string, []byte]

	mu          sync.RWMutex
	objectCount uint64
	totalBytes  uint64
}

// Config configures facade construction.
type Config struct {
	CacheDir      string
	IndexBackend  index.Backend
	MemoryCacheMB int
}

// Open assembles a Facade from the configured blob store and metadata index
// backends, priming the occupancy counters from an initial index scan.
func Open(cfg Config) (*Facade, error) {
	blobs, err := blobstore.Open(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	idx, err := index.Open(cfg.IndexBackend, cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open metadata index: %w", err)
	}

	f := &Facade{blobs: blobs, idx: idx}

	if err := idx.Scan(func(id []byte, meta index.ObjectMetadata) error {
		f.objectCount++
		f.totalBytes += meta.Size
		return nil
	}); err != nil {
		idx.Close()
		return nil, fmt.Errorf("prime occupancy counters: %w", err)
	}
	metrics.CacheObjectsTotal.Set(float64(f.objectCount))
	metrics.CacheBytesTotal.Set(float64(f.totalBytes))

	if cfg.MemoryCacheMB > 0 {
		// Sized by entry count, not bytes: a rough floor assuming an
		// average hot object is well under 1MiB. Concrete sizing is left
		// to operators via memory_cache_mb.
		entries := cfg.MemoryCacheMB * 8
		cache, err := lru.New[string, []byte](entries)
		if err != nil {
			idx.Close()
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
		f.memCache = cache
	}

	f.touch = touchbatcher.New(facadeApplier{f})
	return f, nil
}

// facadeApplier adapts Facade to touchbatcher.Applier without exposing
// ApplyTouches on the public API.
type facadeApplier struct{ f *Facade }

func (a facadeApplier) ApplyTouches(touches []touchbatcher.Touch) error {
	return a.f.applyTouches(touches)
}

func (f *Facade) applyTouches(touches []touchbatcher.Touch) error {
	updates := make([]index.Update, 0, len(touches))
	for _, t := range touches {
		prev, ok, err := f.idx.Get(t.ID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		next := prev
		next.AccessedAt = t.AccessedAt
		next.AccessCount = prev.AccessCount + 1
		updates = append(updates, index.Update{ID: t.ID, Metadata: next, PrevMetadata: prev, PrevValid: true})
	}
	if len(updates) == 0 {
		return nil
	}
	return f.idx.WriteBatch(updates)
}

// Put stores data under id, writing the blob first and the metadata record
// second (the resolved crash-consistency rule: a crash between the two
// steps leaves an orphaned blob, never metadata pointing at a missing
// blob). Overwrites preserve the original created_at.
func (f *Facade) Put(id []byte, data []byte) error {
	now := time.Now().Unix()

	prev, hadPrev, err := f.idx.Get(id)
	if err != nil {
		return fmt.Errorf("lookup existing metadata: %w", err)
	}

	if err := f.blobs.Write(id, data); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}

	createdAt := now
	if hadPrev {
		createdAt = prev.CreatedAt
	}
	meta := index.ObjectMetadata{
		Size:        uint64(len(data)),
		CreatedAt:   createdAt,
		AccessedAt:  now,
		AccessCount: 0,
	}
	update := index.Update{ID: id, Metadata: meta}
	if hadPrev {
		update.PrevMetadata, update.PrevValid = prev, true
	}
	if err := f.idx.WriteBatch([]index.Update{update}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	f.mu.Lock()
	if !hadPrev {
		f.objectCount++
		metrics.CacheObjectsTotal.Inc()
	} else {
		f.totalBytes -= prev.Size
		metrics.CacheBytesTotal.Sub(float64(prev.Size))
	}
	f.totalBytes += meta.Size
	f.mu.Unlock()
	metrics.CacheBytesTotal.Add(float64(meta.Size))

	if f.memCache != nil {
		f.memCache.Add(string(id), data)
	}

	return nil
}

// Get returns the blob under id and bumps its access-time/access-count via
// the Touch Batcher. The second return value is false if id is absent.
func (f *Facade) Get(id []byte) ([]byte, bool, error) {
	if f.memCache != nil {
		if data, ok := f.memCache.Get(string(id)); ok {
			f.Touch(id)
			metrics.CacheHitsTotal.Inc()
			return data, true, nil
		}
	}

	data, ok, err := f.blobs.Read(id)
	if err != nil {
		return nil, false, fmt.Errorf("read blob: %w", err)
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false, nil
	}

	f.Touch(id)
	metrics.CacheHitsTotal.Inc()

	if f.memCache != nil {
		f.memCache.Add(string(id), data)
	}
	return data, true, nil
}

// Touch enqueues an access-time/access-count bump for id without reading its
// blob, for callers (e.g. a protocol-level Exists check) that only need to
// record the access.
func (f *Facade) Touch(id []byte) {
	f.touch.Enqueue(touchbatcher.Touch{ID: append([]byte(nil), id...), AccessedAt: time.Now().Unix()})
}

// Exists reports presence without bumping access metadata.
func (f *Facade) Exists(id []byte) (bool, error) {
	if f.memCache != nil {
		if _, ok := f.memCache.Get(string(id)); ok {
			return true, nil
		}
	}
	return f.blobs.Exists(id)
}

// Size returns the stored size of id, or ok=false if absent.
func (f *Facade) Size(id []byte) (uint64, bool, error) {
	meta, ok, err := f.idx.Get(id)
	if err != nil || !ok {
		return 0, false, err
	}
	return meta.Size, true, nil
}

// Delete removes id's metadata record before its blob (the inverse order of
// Put), so a crash mid-delete leaves at worst an orphaned blob rather than
// metadata pointing at nothing.
func (f *Facade) Delete(id []byte) error {
	meta, ok, err := f.idx.Get(id)
	if err != nil {
		return fmt.Errorf("lookup metadata: %w", err)
	}
	if !ok {
		return nil
	}

	if err := f.idx.Delete(id); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if err := f.blobs.Remove(id); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}

	f.mu.Lock()
	f.objectCount--
	f.totalBytes -= meta.Size
	f.mu.Unlock()
	metrics.CacheObjectsTotal.Dec()
	metrics.CacheBytesTotal.Sub(float64(meta.Size))

	if f.memCache != nil {
		f.memCache.Remove(string(id))
	}
	return nil
}

// ListIDs invokes fn for every id currently in the index, used by the
// Eviction Engine to build candidate lists.
func (f *Facade) ListIDs(fn func(id []byte, meta index.ObjectMetadata) error) error {
	return f.idx.Scan(fn)
}

// Stats returns the current occupancy of the cache.
func (f *Facade) Stats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Stats{ObjectCount: f.objectCount, TotalBytes: f.totalBytes}
}

// Close flushes the Touch Batcher and closes the Metadata Index, in that
// order, so no touch write races a closed index handle.
func (f *Facade) Close() error {
	logger := log.WithComponent("storage")
	if err := f.touch.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to flush touch batcher on close")
	}
	return f.idx.Close()
}
