// Package hotreload watches the daemon's config file and SIGHUP signal,
// atomically swapping in a revalidated config and broadcasting which
// fields changed to subscribers.
package hotreload

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/fabrikdev/fabrik/pkg/config"
	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/metrics"
)

const debounceWindow = 500 * time.Millisecond

// ReloadEvent is broadcast to subscribers after each reload attempt,
// successful or not.
type ReloadEvent struct {
	Success bool
	Err     error
	Diff    config.ReloadableDiff
	At      time.Time
}

// Subscriber is a channel that receives reload events.
type Subscriber chan ReloadEvent

// Supervisor owns the live, atomically-swappable Config and watches for
// changes to the config file on disk and SIGHUP.
type Supervisor struct {
	path    string
	current atomic.Pointer[config.Config]

	mu          sync.RWMutex
	subscribers map[Subscriber]bool

	watcher *fsnotify.Watcher
	sigCh   chan os.Signal
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSupervisor constructs a Supervisor serving initial as the current
// config, loaded from path.
func NewSupervisor(path string, initial *config.Config) (*Supervisor, error) {
	s := &Supervisor{
		path:        path,
		subscribers: make(map[Subscriber]bool),
		sigCh:       make(chan os.Signal, 1),
		stopCh:      make(chan struct{}),
	}
	s.current.Store(initial)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	s.watcher = watcher

	return s, nil
}

// Current returns the presently active config.
func (s *Supervisor) Current() *config.Config {
	return s.current.Load()
}

// Subscribe returns a channel that receives every subsequent ReloadEvent.
func (s *Supervisor) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := make(Subscriber, 10)
	s.subscribers[sub] = true
	return sub
}

// Unsubscribe stops delivery to sub and closes it.
func (s *Supervisor) Unsubscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[sub] {
		delete(s.subscribers, sub)
		close(sub)
	}
}

// Start begins watching the config file and SIGHUP in the background.
func (s *Supervisor) Start() {
	signal.Notify(s.sigCh, syscall.SIGHUP)
	s.wg.Add(1)
	go s.run()
}

// Stop halts watching and releases the file watcher.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	signal.Stop(s.sigCh)
	s.wg.Wait()
	s.watcher.Close()
}

func (s *Supervisor) run() {
	defer s.wg.Done()
	logger := log.WithComponent("hotreload")

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}
			debounceCh = debounce.C

		case <-debounceCh:
			s.reload(logger)
			debounceCh = nil

		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

		case <-s.sigCh:
			logger.Info().Msg("received SIGHUP, reloading config")
			s.reload(logger)

		case <-s.stopCh:
			return
		}
	}
}

func (s *Supervisor) reload(logger zerolog.Logger) {
	next, err := config.Load(s.path)
	event := ReloadEvent{At: time.Now()}

	if err != nil {
		event.Success = false
		event.Err = err
		metrics.ConfigReloadsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("config reload failed, keeping previous config")
		s.broadcast(event)
		return
	}

	prev := s.current.Load()
	diff := config.Diff(prev, next)
	s.current.Store(next)

	event.Success = true
	event.Diff = diff
	metrics.ConfigReloadsTotal.WithLabelValues("success").Inc()
	logger.Info().
		Strs("reloaded", diff.Reloadable).
		Strs("unchanged_non_reloadable", diff.NonReloadable).
		Msg("config reloaded")

	s.broadcast(event)
}

func (s *Supervisor) broadcast(event ReloadEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
