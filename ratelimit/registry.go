// Package ratelimit gates mutation volume per upstream resource with
// continuously-refilling token buckets. The registry is purely an admission
// control: it knows nothing about credentials or retries.
//
// State is in-process only. Two replicas each enforce the ceiling
// independently, doubling the effective limit; that is a known scaling gap
// carried over deliberately, not something this package tries to solve.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// MaxTokens is the bucket capacity: the provider allows 10 edits per
	// resource before throttling.
	MaxTokens = 10.0

	// RefillPerMinute is the continuous refill rate.
	RefillPerMinute = 1.0

	janitorInterval = 5 * time.Minute
	idleEviction    = 10 * time.Minute
)

type bucket struct {
	tokens      float64
	lastRefill  time.Time
	lastTouched time.Time
}

// Status is a read-only snapshot of one resource's bucket.
type Status struct {
	Available  float64
	Max        float64
	Wait       time.Duration
	Admittable bool
}

// Registry holds one bucket per resource id, created lazily on first
// admission check. Construct once at process start and inject by reference.
type Registry struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewRegistry() *Registry {
	r := &Registry{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Allow refills the resource's bucket, then admits the call if at least one
// token is available, consuming it. Denied calls consume nothing.
func (r *Registry) Allow(resourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b := r.bucketLocked(resourceID, now)
	r.refillLocked(b, now)
	b.lastTouched = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// WaitTime reports how long until the resource would be admittable.
// Zero means a call would be admitted right now.
func (r *Registry) WaitTime(resourceID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waitLocked(resourceID)
}

// StatusOf returns a snapshot without touching the bucket's idle clock.
func (r *Registry) StatusOf(resourceID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[resourceID]
	if !ok {
		return Status{Available: MaxTokens, Max: MaxTokens, Admittable: true}
	}
	r.refillLocked(b, r.now())
	return Status{
		Available:  b.tokens,
		Max:        MaxTokens,
		Wait:       tokensToWait(b.tokens),
		Admittable: b.tokens >= 1,
	}
}

// Close stops the background eviction loop.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Registry) bucketLocked(resourceID string, now time.Time) *bucket {
	b, ok := r.buckets[resourceID]
	if !ok {
		b = &bucket{tokens: MaxTokens, lastRefill: now, lastTouched: now}
		r.buckets[resourceID] = b
	}
	return b
}

func (r *Registry) refillLocked(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Minutes()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * RefillPerMinute
	if b.tokens > MaxTokens {
		b.tokens = MaxTokens
	}
	b.lastRefill = now
}

func (r *Registry) waitLocked(resourceID string) time.Duration {
	b, ok := r.buckets[resourceID]
	if !ok {
		return 0
	}
	r.refillLocked(b, r.now())
	return tokensToWait(b.tokens)
}

func tokensToWait(tokens float64) time.Duration {
	if tokens >= 1 {
		return 0
	}
	minutes := (1 - tokens) / RefillPerMinute
	return time.Duration(minutes * float64(time.Minute))
}

// janitor evicts buckets that sat untouched at full capacity long enough,
// to bound memory when many resources are edited once and forgotten.
func (r *Registry) janitor() {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-t.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, b := range r.buckets {
		r.refillLocked(b, now)
		if b.tokens >= MaxTokens && now.Sub(b.lastTouched) >= idleEviction {
			delete(r.buckets, id)
		}
	}
}
