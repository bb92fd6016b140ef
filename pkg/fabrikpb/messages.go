// Package fabrikpb defines the wire messages and service contract of the
// Fabrik cache protocol. No .proto/.pb.go toolchain is available in this
// tree, so these are hand-authored in the shape protoc-gen-go would
// produce, serialized over gRPC via the JSON codec registered in codec.go
// rather than protobuf wire format.
package fabrikpb

// ExistsRequest asks whether an object identified by its hex-encoded
// content hash is present in the cache.
type ExistsRequest struct {
	Hash string `json:"hash"`
}

// ExistsResponse reports whether the requested object is present and, if
// so, its stored size.
type ExistsResponse struct {
	Exists    bool  `json:"exists"`
	SizeBytes int64 `json:"size_bytes"`
}

// GetRequest asks for a cached object's contents, streamed back in chunks.
type GetRequest struct {
	Hash string `json:"hash"`
}

// GetChunk is one chunk of a streamed Get response.
type GetChunk struct {
	Chunk []byte `json:"chunk"`
}

// PutChunk is one chunk of a streamed Put request. Hash must be set on the
// first message of the stream and is ignored on subsequent messages.
type PutChunk struct {
	Hash  string `json:"hash,omitempty"`
	Chunk []byte `json:"chunk"`
}

// PutResponse acknowledges a completed Put.
type PutResponse struct {
	Success   bool  `json:"success"`
	SizeBytes int64 `json:"size_bytes"`
}

// DeleteRequest asks for an object, identified by its hex-encoded content
// hash, to be removed from the cache.
type DeleteRequest struct {
	Hash string `json:"hash"`
}

// DeleteResponse reports whether the delete succeeded and whether the
// object existed beforehand.
type DeleteResponse struct {
	Success bool `json:"success"`
	Existed bool `json:"existed"`
}

// GetStatsRequest carries no fields; present for symmetry with the other
// RPCs and to leave room for future filtering.
type GetStatsRequest struct{}

// GetStatsResponse reports the cache's current occupancy and lifetime
// request counters.
type GetStatsResponse struct {
	ArtifactCount uint64 `json:"artifact_count"`
	TotalBytes    uint64 `json:"total_bytes"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheMisses   uint64 `json:"cache_misses"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}
