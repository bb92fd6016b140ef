// Package eviction implements the background reclamation loop that keeps
// the cache's on-disk footprint under its configured ceiling.
package eviction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabrikdev/fabrik/pkg/index"
	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/metrics"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

// Config configures an Engine's behavior.
type Config struct {
	// MaxSizeBytes is the ceiling that triggers a reclamation run once
	// crossed.
	MaxSizeBytes uint64
	// Policy selects which objects are evicted first.
	Policy Policy
	// DefaultTTL is consulted by the TTL and TTL-with-fallback policies.
	DefaultTTL time.Duration
	// TargetRatio is the fraction of MaxSizeBytes a run reclaims down to.
	// Defaults to 0.9 if zero.
	TargetRatio float64
	// MaxEvictionsPerRun caps how many objects a single run removes, to
	// bound the pause a large reclamation imposes. Zero means unbounded.
	MaxEvictionsPerRun int
	// ScanInterval is how often the engine checks occupancy even absent a
	// wake signal. Defaults to 10s if zero.
	ScanInterval time.Duration
}

func (c Config) targetRatio() float64 {
	if c.TargetRatio <= 0 {
		return 0.9
	}
	return c.TargetRatio
}

func (c Config) scanInterval() time.Duration {
	if c.ScanInterval <= 0 {
		return 10 * time.Second
	}
	return c.ScanInterval
}

// Engine periodically scans the Storage Facade's occupancy and evicts
// objects under the configured Policy until usage falls back under
// MaxSizeBytes * TargetRatio.
type Engine struct {
	facade *storage.Facade
	cfg    Config

	mu      sync.Mutex
	wakeCh  chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewEngine constructs an Engine bound to facade.
func NewEngine(facade *storage.Facade, cfg Config) *Engine {
	return &Engine{
		facade: facade,
		cfg:    cfg,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Start begins the background reclamation loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop halts the loop and waits up to 5s for the in-flight run, if any, to
// finish, logging a warning if it does not.
func (e *Engine) Stop() {
	close(e.stopCh)
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.WithComponent("eviction").Warn().Msg("eviction engine did not stop within 5s")
	}
}

// Wake requests an out-of-band occupancy check, e.g. immediately after a
// large Put. Non-blocking: a pending wake is coalesced with any other.
func (e *Engine) Wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	logger := log.WithComponent("eviction")
	ticker := time.NewTicker(e.cfg.scanInterval())
	defer ticker.Stop()

	logger.Info().Msg("eviction engine started")

	for {
		select {
		case <-ticker.C:
			e.maybeRun(logger)
		case <-e.wakeCh:
			e.maybeRun(logger)
		case <-e.stopCh:
			logger.Info().Msg("eviction engine stopped")
			return
		}
	}
}

func (e *Engine) maybeRun(logger zerolog.Logger) {
	if _, err := e.RunOnce(); err != nil {
		logger.Error().Err(err).Msg("eviction run failed")
	}
}

// RunOnce performs a single reclamation pass if current usage exceeds
// MaxSizeBytes, returning the number of objects evicted. Exported so
// callers (and tests) can drive a run synchronously without waiting on the
// ticker.
func (e *Engine) RunOnce() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.NewString()
	logger := log.WithRunID(runID)

	stats := e.facade.Stats()
	if e.cfg.MaxSizeBytes == 0 || stats.TotalBytes <= e.cfg.MaxSizeBytes {
		return 0, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EvictionRunDuration)
	metrics.EvictionRunsTotal.Inc()

	target := uint64(float64(e.cfg.MaxSizeBytes) * e.cfg.targetRatio())

	var candidates []Candidate
	if err := e.facade.ListIDs(func(id []byte, meta index.ObjectMetadata) error {
		idCopy := append([]byte(nil), id...)
		candidates = append(candidates, Candidate{ID: idCopy, Meta: meta})
		return nil
	}); err != nil {
		return 0, err
	}

	ordered := SelectCandidates(e.cfg.Policy, candidates, e.cfg.DefaultTTL, time.Now())

	evicted := 0
	reclaimed := uint64(0)
	current := stats.TotalBytes
	for _, c := range ordered {
		if current <= target {
			break
		}
		if e.cfg.MaxEvictionsPerRun > 0 && evicted >= e.cfg.MaxEvictionsPerRun {
			break
		}
		if err := e.facade.Delete(c.ID); err != nil {
			logger.Warn().Err(err).Str("object_id", string(c.ID)).Msg("failed to evict candidate, continuing")
			continue
		}
		current -= c.Meta.Size
		reclaimed += c.Meta.Size
		evicted++
	}

	metrics.EvictionsTotal.Add(float64(evicted))
	metrics.BytesEvictedTotal.Add(float64(reclaimed))
	logger.Info().Int("evicted", evicted).Uint64("bytes_reclaimed", reclaimed).Msg("eviction run complete")

	return evicted, nil
}
