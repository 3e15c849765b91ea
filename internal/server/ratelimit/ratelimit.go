// Package ratelimit limits requests per client and endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// idleTTL is how long an unused bucket is kept before cleanup drops it.
const idleTTL = time.Hour

// bucket refills continuously at rate tokens per second up to capacity.
type bucket struct {
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time
	seen     time.Time
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		last:     now,
		seen:     now,
	}
}

// take refills, then consumes one token if available. When it is not,
// retry is the time until the next whole token.
func (b *bucket) take(now time.Time) (allowed bool, remaining int, reset time.Time, retry time.Duration) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = now
	b.seen = now

	allowed = b.tokens >= 1
	if allowed {
		b.tokens--
	} else {
		retry = seconds((1 - b.tokens) / b.rate)
	}

	reset = now
	if b.tokens < b.capacity {
		reset = now.Add(seconds((b.capacity - b.tokens) / b.rate))
	}
	return allowed, int(b.tokens), reset, retry
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Info describes the limit applied to one request.
// Limit is 0 when the request was not subject to a limit.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter keeps one bucket per client, path and method.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a limiter. A nil config means DefaultConfig.
// A cleanup goroutine runs until Stop when CleanupInterval is positive.
func NewLimiter(config *Config, opts ...Option) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.ticker = time.NewTicker(config.CleanupInterval)
		l.stop = make(chan struct{})
		go l.cleanupLoop()
	}
	return l
}

// Allow consumes a token for clientID from the bucket of the rule matching
// method and path.
func (l *Limiter) Allow(clientID, path, method string) Info {
	unlimited := Info{Allowed: true}

	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return unlimited
	}
	if l.config.Blacklist[clientID] {
		return Info{Allowed: false}
	}

	// Buckets are per client and rule; paths without a rule share one
	// default bucket so the key space stays bounded by the rule set.
	rule := Match(method, path, l.config.Rules)
	key := clientID + " *"
	if rule == nil {
		rule = &Rule{Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	} else {
		key = clientID + " " + rule.Method + " " + rule.Path
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return unlimited
	}

	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(rule.capacity(), float64(rule.Limit)/rule.Window.Seconds(), now)
		l.buckets[key] = b
	}
	allowed, remaining, reset, retry := b.take(now)
	l.mu.Unlock()

	return Info{
		Allowed:    allowed,
		Limit:      rule.Limit,
		Remaining:  remaining,
		ResetTime:  reset,
		RetryAfter: retry,
	}
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.prune(l.now().Add(-idleTTL))
		case <-l.stop:
			return
		}
	}
}

// prune drops buckets not used since cutoff.
func (l *Limiter) prune(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		if l.stop != nil {
			close(l.stop)
		}
	})
}
