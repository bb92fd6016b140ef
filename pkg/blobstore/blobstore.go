// Package blobstore implements the crash-safe, content-addressed blob
// layer of the Fabrik cache: a sharded directory tree under
// <cache_dir>/objects, with atomic temp-file-then-rename writes.
package blobstore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fabrikdev/fabrik/pkg/log"
)

// Store is a sharded, crash-safe file-per-object blob store.
type Store struct {
	root string
}

// Open ensures the object directory exists and returns a Store rooted there.
func Open(cacheDir string) (*Store, error) {
	root := filepath.Join(cacheDir, "objects")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object directory: %w", err)
	}
	s := &Store{root: root}
	s.sweepTempFiles()
	return s, nil
}

// path computes the two-character-sharded path for a hex-encoded id.
func (s *Store) path(id []byte) (dir, file string) {
	h := hex.EncodeToString(id)
	if len(h) < 3 {
		// Degenerate short IDs still shard on whatever prefix exists.
		dir = filepath.Join(s.root, h)
		return dir, filepath.Join(dir, h)
	}
	dir = filepath.Join(s.root, h[:2])
	return dir, filepath.Join(dir, h[2:])
}

// Write stores bytes under id via write-to-temp, fsync, atomic rename. No
// reader ever observes a partially-written blob: concurrent writers of the
// same id race only at the rename, which the filesystem performs atomically.
func (s *Store) Write(id []byte, data []byte) error {
	dir, dest := s.path(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	tmp, err := tempPath(dest)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Read returns the full contents of the blob under id, or (nil, false) if
// absent.
func (s *Store) Read(id []byte) ([]byte, bool, error) {
	_, path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read blob: %w", err)
	}
	return data, true, nil
}

// Exists reports whether a blob is present under id.
func (s *Store) Exists(id []byte) (bool, error) {
	_, path := s.path(id)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob: %w", err)
}

// Remove deletes the blob under id. Missing files are not an error.
func (s *Store) Remove(id []byte) error {
	_, path := s.path(id)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func tempPath(dest string) (string, error) {
	var salt [8]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", fmt.Errorf("generate temp suffix: %w", err)
	}
	return fmt.Sprintf("%s.tmp.%d.%s", dest, os.Getpid(), hex.EncodeToString(salt[:])), nil
}

// sweepTempFiles best-effort removes leftover .tmp.* files from a prior
// crash during put. Failure to sweep is logged, never fatal.
func (s *Store) sweepTempFiles() {
	logger := log.WithComponent("blobstore")
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, shard := range entries {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(s.root, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			continue
		}
		for _, f := range files {
			if isTempFile(f.Name()) {
				if err := os.Remove(filepath.Join(shardPath, f.Name())); err != nil {
					logger.Warn().Err(err).Str("file", f.Name()).Msg("failed to sweep stale temp file")
				}
			}
		}
	}
}

func isTempFile(name string) bool {
	for i := 0; i+5 <= len(name); i++ {
		if name[i:i+5] == ".tmp." {
			return true
		}
	}
	return false
}

// ReadAt returns a reader for the blob under id for streaming callers, along
// with its size. Used by the Cache Service to chunk large blobs without
// holding the full payload twice.
func (s *Store) ReadAt(id []byte) (io.ReadCloser, int64, bool, error) {
	_, path := s.path(id)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("open blob: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, false, fmt.Errorf("stat blob: %w", err)
	}
	return f, info.Size(), true, nil
}
