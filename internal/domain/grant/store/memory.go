package store

import (
	"context"
	"sync"
	"time"

	"grant-store/internal/domain/grant/model"
	"grant-store/internal/platform/clock"
	platformerrors "grant-store/internal/platform/errors"
)

type memoryStore struct {
	items       map[string]model.PersistedGrant
	mutex       sync.RWMutex
	clock       clock.Clock
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory grant store. Expired grants are invisible
// immediately and physically dropped by a background sweep.
func NewMemory(cfg Config, clk clock.Clock) Store {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]model.PersistedGrant),
		clock:       clock.OrSystem(clk),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Store(_ context.Context, grant *model.PersistedGrant) error {
	if grant == nil {
		return platformerrors.Invalid(opStore, "grant required")
	}
	if grant.Key == "" {
		return platformerrors.Invalid(opStore, "grant key required")
	}

	s.mutex.Lock()
	s.items[grant.Key] = cloneGrant(*grant)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (*model.PersistedGrant, error) {
	s.mutex.RLock()
	grant, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok || grant.ExpiredAt(s.clock.Now()) {
		return nil, nil
	}
	out := cloneGrant(grant)
	return &out, nil
}

func (s *memoryStore) GetAll(_ context.Context, filter model.Filter) ([]model.PersistedGrant, error) {
	grants := []model.PersistedGrant{}
	if filter.SubjectID == "" {
		return grants, nil
	}
	now := s.clock.Now()

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, grant := range s.items {
		if grant.ExpiredAt(now) || !grant.Indexed() || !filter.Matches(grant) {
			continue
		}
		grants = append(grants, cloneGrant(grant))
	}
	return grants, nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	if key == "" {
		return platformerrors.Invalid(opRemove, "grant key required")
	}
	s.mutex.Lock()
	delete(s.items, key)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) RemoveAll(_ context.Context, filter model.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key, grant := range s.items {
		if grant.Indexed() && filter.Matches(grant) {
			delete(s.items, key)
		}
	}
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := s.clock.Now()
	s.mutex.Lock()
	for key, grant := range s.items {
		if grant.ExpiredAt(now) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := s.clock.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, grant := range s.items {
		if !grant.ExpiredAt(now) {
			active++
		}
	}
	return map[string]any{
		"type":   DriverMemory,
		"total":  len(s.items),
		"active": active,
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func cloneGrant(g model.PersistedGrant) model.PersistedGrant {
	dup := g
	if g.Expiration != nil {
		exp := *g.Expiration
		dup.Expiration = &exp
	}
	if g.ConsumedTime != nil {
		consumed := *g.ConsumedTime
		dup.ConsumedTime = &consumed
	}
	return dup
}
