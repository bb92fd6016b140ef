// Package index implements the Metadata Index: an embedded ordered
// key-value store holding per-object metadata plus the access-time and
// access-count secondary indices used by the Eviction Engine.
//
// Two backends satisfy the Index interface: a bbolt-backed default
// (pkg/index's BoltIndex) and a Badger-backed alternative (BadgerIndex)
// that actually meets the configuration floor of background compaction,
// a large write buffer, and parallel compaction the reference
// implementation's RocksDB engine relies on.
package index

import (
	"encoding/binary"
	"fmt"
)

// metadataSize is the fixed width of an encoded ObjectMetadata record.
const metadataSize = 32

// ObjectMetadata is the fixed-width 32-byte per-object record.
type ObjectMetadata struct {
	Size        uint64
	CreatedAt   int64
	AccessedAt  int64
	AccessCount uint64
}

// MarshalBinary encodes the record as size|created_at|accessed_at|access_count,
// each field little-endian, matching the wire layout named by the data model.
func (m ObjectMetadata) MarshalBinary() []byte {
	buf := make([]byte, metadataSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.Size)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.CreatedAt))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(m.AccessedAt))
	binary.LittleEndian.PutUint64(buf[24:32], m.AccessCount)
	return buf
}

// UnmarshalMetadata decodes a 32-byte record produced by MarshalBinary.
func UnmarshalMetadata(buf []byte) (ObjectMetadata, error) {
	if len(buf) != metadataSize {
		return ObjectMetadata{}, fmt.Errorf("metadata record must be %d bytes, got %d", metadataSize, len(buf))
	}
	return ObjectMetadata{
		Size:        binary.LittleEndian.Uint64(buf[0:8]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(buf[8:16])),
		AccessedAt:  int64(binary.LittleEndian.Uint64(buf[16:24])),
		AccessCount: binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}

// accessedKey builds the access-time secondary index key: u64_be(accessed_at) ∥ id.
func accessedKey(id []byte, accessedAt int64) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key[0:8], uint64(accessedAt))
	copy(key[8:], id)
	return key
}

// accessCountKey builds the access-count secondary index key: u64_be(access_count) ∥ id.
func accessCountKey(id []byte, accessCount uint64) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key[0:8], accessCount)
	copy(key[8:], id)
	return key
}

// Update is one entry of an atomic metadata write batch.
type Update struct {
	ID       []byte
	Metadata ObjectMetadata
	// PrevMetadata, if PrevValid, is the record being replaced — needed to
	// remove its now-stale secondary index entries in the same batch.
	PrevMetadata ObjectMetadata
	PrevValid    bool
}

// Index is the embedded-KV contract the Storage Facade and Eviction Engine
// consume. Inserts and updates flow through WriteBatch and removals through
// Delete, each updating metadata and both secondary indices atomically; Scan
// must tolerate concurrent writes via a snapshot iterator.
type Index interface {
	// Get returns the metadata for id, or ok=false if absent.
	Get(id []byte) (meta ObjectMetadata, ok bool, err error)

	// WriteBatch atomically applies one or more metadata + secondary-index
	// updates.
	WriteBatch(updates []Update) error

	// Delete removes the metadata record and both secondary-index entries
	// for id. Idempotent.
	Delete(id []byte) error

	// Scan invokes fn for every id in the default partition. fn's error
	// aborts the scan and is returned.
	Scan(fn func(id []byte, meta ObjectMetadata) error) error

	// Close releases the underlying database handle.
	Close() error
}

// Backend names a concrete Index implementation, selected at process start
// and non-reloadable thereafter.
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendBadger Backend = "badger"
)

// Open opens the metadata index at dir using the named backend.
func Open(backend Backend, dir string) (Index, error) {
	switch backend {
	case "", BackendBolt:
		return openBolt(dir)
	case BackendBadger:
		return openBadger(dir)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}
