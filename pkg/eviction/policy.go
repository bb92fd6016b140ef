package eviction

import (
	"sort"
	"time"

	"github.com/fabrikdev/fabrik/pkg/index"
)

// Policy selects which candidates to evict from a scanned snapshot of the
// cache, in the order they should be removed.
type Policy string

const (
	// PolicyLRU evicts the least recently accessed objects first.
	PolicyLRU Policy = "lru"
	// PolicyLFU evicts the least frequently accessed objects first.
	PolicyLFU Policy = "lfu"
	// PolicyTTL evicts objects whose age exceeds the configured TTL,
	// oldest first.
	PolicyTTL Policy = "ttl"
	// PolicyTTLWithFallbackLRU evicts expired objects first, then falls
	// back to LRU among the rest once the TTL sweep alone does not reach
	// the target occupancy.
	PolicyTTLWithFallbackLRU Policy = "ttl-lru"
	// PolicyTTLWithFallbackLFU is PolicyTTLWithFallbackLRU with an LFU
	// fallback instead of LRU.
	PolicyTTLWithFallbackLFU Policy = "ttl-lfu"
)

// Candidate is one scanned object considered for eviction.
type Candidate struct {
	ID   []byte
	Meta index.ObjectMetadata
}

// SelectCandidates orders candidates for eviction under policy and, for the
// TTL policies, ttl and now. The Eviction Engine walks the returned slice
// from the front, evicting until enough space is reclaimed or the
// per-run cap is hit.
func SelectCandidates(policy Policy, candidates []Candidate, ttl time.Duration, now time.Time) []Candidate {
	switch policy {
	case PolicyLRU:
		return sortByAccessedAt(candidates)
	case PolicyLFU:
		return sortByAccessCount(candidates)
	case PolicyTTL:
		return filterExpired(candidates, ttl, now)
	case PolicyTTLWithFallbackLRU:
		return ttlWithFallback(candidates, ttl, now, sortByAccessedAt)
	case PolicyTTLWithFallbackLFU:
		return ttlWithFallback(candidates, ttl, now, sortByAccessCount)
	default:
		return sortByAccessedAt(candidates)
	}
}

func sortByAccessedAt(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta.AccessedAt < out[j].Meta.AccessedAt
	})
	return out
}

func sortByCreatedAt(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta.CreatedAt < out[j].Meta.CreatedAt
	})
	return out
}

func sortByAccessCount(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meta.AccessCount != out[j].Meta.AccessCount {
			return out[i].Meta.AccessCount < out[j].Meta.AccessCount
		}
		return out[i].Meta.AccessedAt < out[j].Meta.AccessedAt
	})
	return out
}

func filterExpired(candidates []Candidate, ttl time.Duration, now time.Time) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if isExpired(c, ttl, now) {
			out = append(out, c)
		}
	}
	return sortByCreatedAt(out)
}

func isExpired(c Candidate, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	age := now.Sub(time.Unix(c.Meta.CreatedAt, 0))
	return age > ttl
}

// ttlWithFallback orders expired objects first (oldest first), then
// appends the remaining non-expired objects ordered by fallback.
func ttlWithFallback(candidates []Candidate, ttl time.Duration, now time.Time, fallback func([]Candidate) []Candidate) []Candidate {
	var expired, rest []Candidate
	for _, c := range candidates {
		if isExpired(c, ttl, now) {
			expired = append(expired, c)
		} else {
			rest = append(rest, c)
		}
	}
	out := sortByCreatedAt(expired)
	out = append(out, fallback(rest)...)
	return out
}
