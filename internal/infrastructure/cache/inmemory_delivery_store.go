package cache

import (
	"context"
	"sync"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
)

type entry struct {
	expiresAt time.Time
}

// InMemoryDeliveryStore implements shared.DeliveryDeduplicator with a map.
// State is per process, so it only suits single-instance deployments and tests.
type InMemoryDeliveryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDeliveryStore creates a store and starts its expiry sweeper
func NewInMemoryDeliveryStore(sweepInterval time.Duration) *InMemoryDeliveryStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	store := &InMemoryDeliveryStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.sweepLoop(sweepInterval)

	return store
}

// MarkProcessed records key for ttl.
// An expired entry counts as absent and is overwritten.
func (s *InMemoryDeliveryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{expiresAt: now.Add(ttl)}
	return true, nil
}

// IsProcessed checks whether key was recorded and has not expired
func (s *InMemoryDeliveryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return s.now().Before(e.expiresAt), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryDeliveryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryDeliveryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired entries
func (s *InMemoryDeliveryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries held, expired or not
func (s *InMemoryDeliveryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.DeliveryDeduplicator = (*InMemoryDeliveryStore)(nil)
