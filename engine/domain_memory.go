package engine

import (
	"strings"
	"sync"
	"time"
)

// DomainMemory remembers which engine last fetched each host, so later
// pages of the same site go straight to it. Index pages and target pages of
// one harvest usually share a host, which makes the first escalation the
// only one.
type DomainMemory struct {
	mu      sync.Mutex
	winners map[string]remembered
	ttl     time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type remembered struct {
	engine  string
	expires time.Time
}

// NewDomainMemory creates a DomainMemory whose entries live for ttl, and
// starts an hourly sweep of expired entries. Call Stop to end it.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		winners: make(map[string]remembered),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go dm.sweepLoop()
	return dm
}

// hostKey folds "www." so both forms of a host share one entry.
func hostKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// Get returns the engine remembered for host, or "" when there is none or it
// expired. A nil DomainMemory remembers nothing.
func (dm *DomainMemory) Get(host string) string {
	if dm == nil {
		return ""
	}
	key := hostKey(host)

	dm.mu.Lock()
	defer dm.mu.Unlock()
	w, ok := dm.winners[key]
	if !ok {
		return ""
	}
	if dm.now().After(w.expires) {
		delete(dm.winners, key)
		return ""
	}
	return w.engine
}

// Set remembers engineName as the working engine for host.
func (dm *DomainMemory) Set(host, engineName string) {
	if dm == nil {
		return
	}
	dm.mu.Lock()
	dm.winners[hostKey(host)] = remembered{engine: engineName, expires: dm.now().Add(dm.ttl)}
	dm.mu.Unlock()
}

// Delete forgets host, typically after its remembered engine failed.
func (dm *DomainMemory) Delete(host string) {
	if dm == nil {
		return
	}
	dm.mu.Lock()
	delete(dm.winners, hostKey(host))
	dm.mu.Unlock()
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (dm *DomainMemory) Stop() {
	if dm == nil {
		return
	}
	dm.stopOnce.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) sweepLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.sweep()
		}
	}
}

func (dm *DomainMemory) sweep() {
	now := dm.now()
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for host, w := range dm.winners {
		if now.After(w.expires) {
			delete(dm.winners, host)
		}
	}
}
