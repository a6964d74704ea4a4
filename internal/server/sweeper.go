package server

import (
	"log/slog"
	"sync"
	"time"
)

// SweepInterval is how often expired sessions are removed.
const SweepInterval = 10 * time.Minute

// Sweeper periodically removes expired sessions from a Store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates a sweeper for store.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep goroutine.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	slog.Info("session sweeper started", "interval", s.interval)
}

// Stop stops the sweep goroutine and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if removed := s.store.Sweep(); removed > 0 {
				slog.Info("expired sessions removed", "removed", removed, "remaining", s.store.Len())
			}
		}
	}
}
