package security

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/metrics"
)

const (
	bruteForceCleanup    = 60 * time.Second
	bruteForceMaxRecords = 10000
)

// LockoutPolicy controls when a client is locked out.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultLockoutPolicy locks a client for 5 minutes after 5 failures in 15 minutes.
var DefaultLockoutPolicy = LockoutPolicy{MaxAttempts: 5, Window: 15 * time.Minute, Lockout: 5 * time.Minute}

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard tracks authentication failures per client and blocks
// clients that exceed the policy's threshold within its window.
//
// Clients are keyed by the caller's choice of subject (typically the remote
// IP); the guard never sees API keys.
type BruteForceGuard struct {
	policy LockoutPolicy
	log    *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*failureRecord
}

// NewBruteForceGuard creates a guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, policy LockoutPolicy, log *logrus.Logger) *BruteForceGuard {
	g := newGuard(policy, log, time.Now)
	go g.cleanupLoop(ctx)

	return g
}

func newGuard(policy LockoutPolicy, log *logrus.Logger, now func() time.Time) *BruteForceGuard {
	if policy.MaxAttempts <= 0 {
		policy = DefaultLockoutPolicy
	}

	return &BruteForceGuard{
		policy:  policy,
		log:     log,
		now:     now,
		records: make(map[string]*failureRecord),
	}
}

// IsBlocked reports whether subject is currently locked out.
func (g *BruteForceGuard) IsBlocked(subject string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[subject]
	if !ok || rec.lockedAt.IsZero() {
		return false
	}

	return g.now().Sub(rec.lockedAt) < g.policy.Lockout
}

// RecordFailure counts a failed authentication by subject.
func (g *BruteForceGuard) RecordFailure(subject string) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[subject]
	if !ok || now.Sub(rec.firstFail) > g.policy.Window {
		g.records[subject] = &failureRecord{attempts: 1, firstFail: now}

		return
	}

	rec.attempts++
	if rec.attempts >= g.policy.MaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		metrics.AuthLockouts.Inc()
		g.log.WithField("subject", subject).Warn("client locked out after repeated auth failures")
	}
}

// Reset clears failure tracking for subject after a successful authentication.
func (g *BruteForceGuard) Reset(subject string) {
	g.mu.Lock()
	delete(g.records, subject)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep drops expired lockouts and stale windows, then trims to the record cap.
func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		switch {
		case !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= g.policy.Lockout:
			delete(g.records, k)
		case rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= g.policy.Window:
			delete(g.records, k)
		}
	}

	if len(g.records) > bruteForceMaxRecords {
		g.evictOldest(len(g.records) - bruteForceMaxRecords)
	}
}

// evictOldest removes the n records with the oldest first failure.
// Caller must hold g.mu.
func (g *BruteForceGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}

	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := range n {
		delete(g.records, entries[i].key)
	}
}
