package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// LiveFunc returns the identities of the connections currently open.
type LiveFunc func() []string

// Janitor periodically drops bindings whose connection is gone. The
// connection loop unbinds on exit, so the janitor only has work after a
// crash or restart left stale entries in a shared backend.
type Janitor struct {
	registry Registry
	live     LiveFunc
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	isRunning bool
}

// NewJanitor creates a janitor. A zero interval defaults to 5 minutes.
func NewJanitor(registry Registry, live LiveFunc, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{
		registry: registry,
		live:     live,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the prune loop.
func (j *Janitor) Start() {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = true
	j.ticker = time.NewTicker(j.interval)
	j.mu.Unlock()

	log.Printf("[SessionJanitor] Started - Interval: %v", j.interval)
	go j.run()
}

func (j *Janitor) run() {
	for {
		select {
		case <-j.ticker.C:
			if _, err := j.RunNow(); err != nil {
				log.Printf("[SessionJanitor] Error during prune: %v", err)
			}
		case <-j.stopCh:
			log.Printf("[SessionJanitor] Stopped")
			return
		}
	}
}

// RunNow prunes immediately and returns the number of bindings removed.
func (j *Janitor) RunNow() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := j.registry.Prune(ctx, j.live())
	if err != nil {
		return pruned, err
	}
	if pruned > 0 {
		log.Printf("[SessionJanitor] Pruned %d stale bindings", pruned)
	}
	return pruned, nil
}

// Stop stops the prune loop.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		defer j.mu.Unlock()

		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.stopCh)
		j.isRunning = false
	})
}
