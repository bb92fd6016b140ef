package index

import (
	"bytes"
	"fmt"
	"runtime"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog"

	"github.com/fabrikdev/fabrik/pkg/log"
)

// Badger has no column-family concept, so the three logical partitions the
// bolt backend keeps as buckets are emulated here as key prefixes within a
// single LSM keyspace.
var (
	prefixDefault     = []byte{0x00}
	prefixAccessed    = []byte{0x01}
	prefixAccessCount = []byte{0x02}
)

// BadgerIndex implements Index using Badger's LSM engine, configured to
// meet the background-compaction / write-buffer / parallelism floor the
// reference implementation's RocksDB settings require.
type BadgerIndex struct {
	db *badger.DB
}

func openBadger(dir string) (*BadgerIndex, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogAdapter{log.WithComponent("index.badger")}).
		WithMemTableSize(64 << 20).
		WithNumCompactors(max(2, runtime.NumCPU())).
		WithCompression(options.Snappy).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger index: %w", err)
	}
	return &BadgerIndex{db: db}, nil
}

func (idx *BadgerIndex) Close() error {
	return idx.db.Close()
}

func withPrefix(prefix, id []byte) []byte {
	key := make([]byte, len(prefix)+len(id))
	copy(key, prefix)
	copy(key[len(prefix):], id)
	return key
}

func (idx *BadgerIndex) Get(id []byte) (ObjectMetadata, bool, error) {
	var meta ObjectMetadata
	found := false
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(withPrefix(prefixDefault, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			m, err := UnmarshalMetadata(val)
			if err != nil {
				return err
			}
			meta, found = m, true
			return nil
		})
	})
	return meta, found, err
}

func (idx *BadgerIndex) WriteBatch(updates []Update) error {
	wb := idx.db.NewWriteBatch()
	defer wb.Cancel()

	for _, u := range updates {
		if u.PrevValid {
			if err := wb.Delete(withPrefix(prefixAccessed, accessedKey(u.ID, u.PrevMetadata.AccessedAt))); err != nil {
				return err
			}
			if err := wb.Delete(withPrefix(prefixAccessCount, accessCountKey(u.ID, u.PrevMetadata.AccessCount))); err != nil {
				return err
			}
		}
		if err := wb.Set(withPrefix(prefixDefault, u.ID), u.Metadata.MarshalBinary()); err != nil {
			return err
		}
		if err := wb.Set(withPrefix(prefixAccessed, accessedKey(u.ID, u.Metadata.AccessedAt)), nil); err != nil {
			return err
		}
		if err := wb.Set(withPrefix(prefixAccessCount, accessCountKey(u.ID, u.Metadata.AccessCount)), nil); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (idx *BadgerIndex) Delete(id []byte) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		key := withPrefix(prefixDefault, id)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var meta ObjectMetadata
		if err := item.Value(func(val []byte) error {
			m, err := UnmarshalMetadata(val)
			meta = m
			return err
		}); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		if err := txn.Delete(withPrefix(prefixAccessed, accessedKey(id, meta.AccessedAt))); err != nil {
			return err
		}
		return txn.Delete(withPrefix(prefixAccessCount, accessCountKey(id, meta.AccessCount)))
	})
}

func (idx *BadgerIndex) Scan(fn func(id []byte, meta ObjectMetadata) error) error {
	return idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefixDefault); it.ValidForPrefix(prefixDefault); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			id := bytes.TrimPrefix(key, prefixDefault)

			var meta ObjectMetadata
			if err := item.Value(func(val []byte) error {
				m, err := UnmarshalMetadata(val)
				meta = m
				return err
			}); err != nil {
				return err
			}
			if err := fn(id, meta); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogAdapter routes Badger's internal logging through this package's
// structured logger instead of its default stderr logger.
type badgerLogAdapter struct {
	logger zerolog.Logger
}

func (a badgerLogAdapter) Errorf(f string, args ...interface{})   { a.logger.Error().Msgf(f, args...) }
func (a badgerLogAdapter) Warningf(f string, args ...interface{}) { a.logger.Warn().Msgf(f, args...) }
func (a badgerLogAdapter) Infof(f string, args ...interface{})    { a.logger.Info().Msgf(f, args...) }
func (a badgerLogAdapter) Debugf(f string, args ...interface{})   { a.logger.Debug().Msgf(f, args...) }
