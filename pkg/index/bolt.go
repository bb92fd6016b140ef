package index

import (
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDefault           = []byte("default")
	bucketIndexAccessed     = []byte("index_accessed")
	bucketIndexAccessCount  = []byte("index_access_count")
)

// BoltIndex implements Index using bbolt, adapted from this codebase's
// CRUD idiom: db.Update/db.View closures over named buckets.
type BoltIndex struct {
	db *bolt.DB
}

func openBolt(dir string) (*BoltIndex, error) {
	dbPath := filepath.Join(dir, "metadata.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketDefault, bucketIndexAccessed, bucketIndexAccessCount} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltIndex{db: db}, nil
}

func (idx *BoltIndex) Close() error {
	return idx.db.Close()
}

func (idx *BoltIndex) Get(id []byte) (ObjectMetadata, bool, error) {
	var meta ObjectMetadata
	found := false
	err := idx.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDefault).Get(id)
		if data == nil {
			return nil
		}
		m, err := UnmarshalMetadata(data)
		if err != nil {
			return err
		}
		meta, found = m, true
		return nil
	})
	return meta, found, err
}

func (idx *BoltIndex) WriteBatch(updates []Update) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		def := tx.Bucket(bucketDefault)
		accessed := tx.Bucket(bucketIndexAccessed)
		accessCount := tx.Bucket(bucketIndexAccessCount)

		for _, u := range updates {
			if u.PrevValid {
				if err := accessed.Delete(accessedKey(u.ID, u.PrevMetadata.AccessedAt)); err != nil {
					return err
				}
				if err := accessCount.Delete(accessCountKey(u.ID, u.PrevMetadata.AccessCount)); err != nil {
					return err
				}
			}
			if err := def.Put(u.ID, u.Metadata.MarshalBinary()); err != nil {
				return err
			}
			if err := accessed.Put(accessedKey(u.ID, u.Metadata.AccessedAt), nil); err != nil {
				return err
			}
			if err := accessCount.Put(accessCountKey(u.ID, u.Metadata.AccessCount), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (idx *BoltIndex) Delete(id []byte) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		def := tx.Bucket(bucketDefault)
		data := def.Get(id)
		if data == nil {
			return nil
		}
		meta, err := UnmarshalMetadata(data)
		if err != nil {
			return err
		}
		if err := def.Delete(id); err != nil {
			return err
		}
		if err := tx.Bucket(bucketIndexAccessed).Delete(accessedKey(id, meta.AccessedAt)); err != nil {
			return err
		}
		return tx.Bucket(bucketIndexAccessCount).Delete(accessCountKey(id, meta.AccessCount))
	})
}

func (idx *BoltIndex) Scan(fn func(id []byte, meta ObjectMetadata) error) error {
	return idx.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefault).ForEach(func(k, v []byte) error {
			meta, err := UnmarshalMetadata(v)
			if err != nil {
				return err
			}
			idCopy := append([]byte(nil), k...)
			return fn(idCopy, meta)
		})
	})
}
