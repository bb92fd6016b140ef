// Package cacheservice implements the Fabrik cache gRPC protocol against
// the Storage Facade: Exists, streaming Get/Put, Delete, and GetStats.
package cacheservice

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fabrikdev/fabrik/pkg/fabrikpb"
	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/metrics"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

const getChunkSize = 64 * 1024

// Facade is the subset of *storage.Facade the service depends on, narrowed
// for testability.
type Facade interface {
	Exists(id []byte) (bool, error)
	Size(id []byte) (uint64, bool, error)
	Get(id []byte) ([]byte, bool, error)
	Put(id []byte, data []byte) error
	Delete(id []byte) error
	Touch(id []byte)
	Stats() storage.Stats
}

// Service implements fabrikpb.FabrikCacheServer against a Facade.
type Service struct {
	facade    Facade
	startedAt time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New constructs a Service bound to facade.
func New(facade Facade) *Service {
	return &Service{facade: facade, startedAt: time.Now()}
}

func hashToID(hash string) ([]byte, error) {
	id, err := hex.DecodeString(hash)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid hash format: %v", err)
	}
	if len(id) == 0 {
		return nil, status.Error(codes.InvalidArgument, "hash must not be empty")
	}
	return id, nil
}

func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

// Exists reports whether an object is present, touching its access time on
// a hit.
func (s *Service) Exists(ctx context.Context, req *fabrikpb.ExistsRequest) (*fabrikpb.ExistsResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "Exists")

	id, err := hashToID(req.Hash)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Exists", "error").Inc()
		return nil, err
	}

	exists, err := s.facade.Exists(id)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Exists", "error").Inc()
		return nil, status.Errorf(codes.Internal, "storage error: %v", err)
	}

	var size int64
	if exists {
		s.facade.Touch(id)
		if n, ok, err := s.facade.Size(id); err == nil && ok {
			size = int64(n)
		}
	}

	metrics.APIRequestsTotal.WithLabelValues("Exists", "ok").Inc()
	return &fabrikpb.ExistsResponse{Exists: exists, SizeBytes: size}, nil
}

// Get streams a cached object's bytes to the client in 64KiB chunks.
func (s *Service) Get(req *fabrikpb.GetRequest, stream fabrikpb.FabrikCache_GetServer) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "Get")
	logger := log.WithComponent("cacheservice")

	id, err := hashToID(req.Hash)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Get", "error").Inc()
		return err
	}

	data, ok, err := s.facade.Get(id)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Get", "error").Inc()
		return status.Errorf(codes.Internal, "storage error: %v", err)
	}
	if !ok {
		s.misses.Add(1)
		metrics.APIRequestsTotal.WithLabelValues("Get", "not_found").Inc()
		return status.Errorf(codes.NotFound, "artifact not found: %s", req.Hash)
	}
	s.hits.Add(1)

	logger.Info().Str("hash", shortHash(req.Hash)).Int("size", len(data)).Msg("serving artifact")
	metrics.GetBytesTotal.Add(float64(len(data)))

	for off := 0; off < len(data); off += getChunkSize {
		end := off + getChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := stream.Send(&fabrikpb.GetChunk{Chunk: data[off:end]}); err != nil {
			return fmt.Errorf("send chunk: %w", err)
		}
	}

	metrics.APIRequestsTotal.WithLabelValues("Get", "ok").Inc()
	return nil
}

// Put accumulates a streamed object, keyed by the hash carried in the
// stream's first message, then stores it.
func (s *Service) Put(stream fabrikpb.FabrikCache_PutServer) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "Put")

	var hash string
	var data []byte
	first := true

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues("Put", "error").Inc()
			return status.Errorf(codes.Internal, "stream error: %v", err)
		}
		if first {
			hash = chunk.Hash
			first = false
		}
		data = append(data, chunk.Chunk...)
	}

	if hash == "" {
		metrics.APIRequestsTotal.WithLabelValues("Put", "error").Inc()
		return status.Error(codes.InvalidArgument, "hash not provided in stream")
	}

	id, err := hashToID(hash)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Put", "error").Inc()
		return err
	}

	if err := s.facade.Put(id, data); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Put", "error").Inc()
		return status.Errorf(codes.Internal, "storage error: %v", err)
	}

	metrics.PutBytesTotal.Add(float64(len(data)))
	metrics.APIRequestsTotal.WithLabelValues("Put", "ok").Inc()
	log.WithComponent("cacheservice").Info().Str("hash", shortHash(hash)).Int("size", len(data)).Msg("stored artifact")

	return stream.SendAndClose(&fabrikpb.PutResponse{Success: true, SizeBytes: int64(len(data))})
}

// Delete removes an object, reporting whether it existed beforehand.
func (s *Service) Delete(ctx context.Context, req *fabrikpb.DeleteRequest) (*fabrikpb.DeleteResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "Delete")

	id, err := hashToID(req.Hash)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Delete", "error").Inc()
		return nil, err
	}

	existed, err := s.facade.Exists(id)
	if err != nil {
		existed = false
	}

	if err := s.facade.Delete(id); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("Delete", "error").Inc()
		return nil, status.Errorf(codes.Internal, "storage error: %v", err)
	}

	metrics.APIRequestsTotal.WithLabelValues("Delete", "ok").Inc()
	return &fabrikpb.DeleteResponse{Success: true, Existed: existed}, nil
}

// GetStats reports the cache's live occupancy, hit/miss counters, and
// process uptime, unlike the stubbed-zero counters of the implementation
// this protocol traces back to.
func (s *Service) GetStats(ctx context.Context, req *fabrikpb.GetStatsRequest) (*fabrikpb.GetStatsResponse, error) {
	stats := s.facade.Stats()
	return &fabrikpb.GetStatsResponse{
		ArtifactCount: stats.ObjectCount,
		TotalBytes:    stats.TotalBytes,
		CacheHits:     s.hits.Load(),
		CacheMisses:   s.misses.Load(),
		UptimeSeconds: uint64(time.Since(s.startedAt).Seconds()),
	}, nil
}

