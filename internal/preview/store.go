// Package preview holds the transient outcome of an import pass between the
// preview and commit requests. The store is the only standing concurrent
// resource in the service: a single in-process instance, bounded by TTLs.
// Multi-process deployments need an external cache in its place.
package preview

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

const (
	// DefaultTTL bounds how long an operator has between preview and commit.
	DefaultTTL = 30 * time.Minute
	// DefaultSweepInterval is how often expired bundles are proactively removed.
	DefaultSweepInterval = 5 * time.Minute
)

// Bundle is one cached, not-yet-committed import outcome. Its changeset and
// validation content are immutable once stored; only ExpiresAt moves.
type Bundle struct {
	ID             string                       `json:"id"`
	SourceSystemID string                       `json:"sourceSystemId"`
	MergeMode      domain.MergeMode             `json:"mergeMode"`
	FileName       string                       `json:"fileName,omitempty"`
	ChangeSet      domain.ChangeSet             `json:"changeSet"`
	Records        []domain.MeasureRecord       `json:"records"`
	Validation     domain.ValidationResult      `json:"validation"`
	Warnings       []domain.ValidationIssue     `json:"warnings"`
	Reassignments  []domain.PatientReassignment `json:"reassignments"`
	TargetOwnerID  uuid.UUID                    `json:"targetOwnerId"`
	CreatedAt      time.Time                    `json:"createdAt"`
	ExpiresAt      time.Time                    `json:"expiresAt"`
}

// Stats reports operational counters for the store.
type Stats struct {
	Total           int        `json:"total"`
	Active          int        `json:"active"`
	Expired         int        `json:"expired"`
	OldestCreatedAt *time.Time `json:"oldestCreatedAt,omitempty"`
	NewestCreatedAt *time.Time `json:"newestCreatedAt,omitempty"`
}

// Store is a process-wide TTL cache keyed by generated preview id. All access
// to the shared map is serialized by one mutex so the sweep can never
// interleave unsafely with request-driven lookups or writes.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Bundle

	clock         func() time.Time
	defaultTTL    time.Duration
	sweepInterval time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects a deterministic time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDefaultTTL overrides the bundle lifetime.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithSweepInterval overrides the proactive sweep cadence.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// NewStore creates a store. The background sweep does not run until Start.
func NewStore(opts ...Option) *Store {
	store := &Store{
		entries:       make(map[string]*Bundle),
		clock:         time.Now,
		defaultTTL:    DefaultTTL,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Start launches the background sweep. Safe to call once per store.
func (s *Store) Start() {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return
	}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-done:
				return
			}
		}
	}()
}

// Stop terminates the sweep and waits for it to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
}

// Put stores a bundle under a fresh 128-bit random id and returns the id and
// expiry. A zero ttl uses the store default.
func (s *Store) Put(bundle Bundle, ttl time.Duration) (string, time.Time) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.clock()
	bundle.ID = uuid.NewString()
	bundle.CreatedAt = now
	bundle.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[bundle.ID] = &bundle
	return bundle.ID, bundle.ExpiresAt
}

// Lookup outcomes for Get.
type GetResult int

const (
	Hit GetResult = iota
	Miss
	Expired
)

// Get returns the bundle for id. An expired entry is treated as absent and
// evicted immediately; the Expired result lets callers report the distinction.
func (s *Store) Get(id string) (*Bundle, GetResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.entries[id]
	if !ok {
		return nil, Miss
	}
	if !s.clock().Before(bundle.ExpiresAt) {
		delete(s.entries, id)
		return nil, Expired
	}
	// Callers get their own copy so the stored entry stays immutable.
	clone := *bundle
	return &clone, Hit
}

// Delete removes the bundle for id, reporting whether it was present and live.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.entries[id]
	if !ok {
		return false
	}
	delete(s.entries, id)
	return s.clock().Before(bundle.ExpiresAt)
}

// ExtendTTL pushes out the expiry of a live bundle. Expired or absent bundles
// are left alone and false is returned.
func (s *Store) ExtendTTL(id string, extra time.Duration) bool {
	if extra <= 0 {
		extra = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.entries[id]
	if !ok {
		return false
	}
	if !s.clock().Before(bundle.ExpiresAt) {
		return false
	}
	bundle.ExpiresAt = bundle.ExpiresAt.Add(extra)
	return true
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, bundle := range s.entries {
		if !now.Before(bundle.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Stats reports counts without evicting anything.
func (s *Store) Stats() Stats {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.entries)}
	for _, bundle := range s.entries {
		if now.Before(bundle.ExpiresAt) {
			stats.Active++
		} else {
			stats.Expired++
		}
		created := bundle.CreatedAt
		if stats.OldestCreatedAt == nil || created.Before(*stats.OldestCreatedAt) {
			oldest := created
			stats.OldestCreatedAt = &oldest
		}
		if stats.NewestCreatedAt == nil || created.After(*stats.NewestCreatedAt) {
			newest := created
			stats.NewestCreatedAt = &newest
		}
	}
	return stats
}
