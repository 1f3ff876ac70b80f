package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const proposalKeyPrefix = "timetable:proposal:"

// ProposalStore keeps generated proposals for a limited time.
type ProposalStore interface {
	Save(ctx context.Context, proposal models.TimetableProposal) error
	// Get returns false when the proposal is unknown or expired.
	Get(ctx context.Context, id string) (*models.TimetableProposal, bool, error)
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryProposalStore keeps proposals in process memory.
type MemoryProposalStore struct {
	mu    sync.RWMutex
	items map[string]models.TimetableProposal
	now   func() time.Time
}

// NewMemoryProposalStore builds an empty in-memory store.
func NewMemoryProposalStore() *MemoryProposalStore {
	return &MemoryProposalStore{items: make(map[string]models.TimetableProposal), now: time.Now}
}

// Save stores the proposal under its id.
func (s *MemoryProposalStore) Save(_ context.Context, proposal models.TimetableProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ID] = proposal
	return nil
}

// Get returns a live proposal, evicting it when it has expired.
func (s *MemoryProposalStore) Get(_ context.Context, id string) (*models.TimetableProposal, bool, error) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if proposal.Expired(s.now()) {
		s.delete(id)
		return nil, false, nil
	}
	return &proposal, true, nil
}

// Purge drops every expired proposal and returns how many were removed.
func (s *MemoryProposalStore) Purge() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, proposal := range s.items {
		if proposal.Expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// StartJanitor purges expired proposals every interval until ctx is cancelled.
func (s *MemoryProposalStore) StartJanitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Purge(); removed > 0 {
					logger.Debug("expired proposals purged", zap.Int("count", removed))
				}
			}
		}
	}()
}

// Len returns the number of stored proposals, expired ones included.
func (s *MemoryProposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryProposalStore) delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// CachedProposalStore keeps proposals in Redis so every API replica can serve them.
type CachedProposalStore struct {
	repo    CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewCachedProposalStore constructs a Redis-backed store.
func NewCachedProposalStore(repo CacheRepository, metrics *MetricsService, logger *zap.Logger) *CachedProposalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProposalStore{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Save writes the proposal with a TTL matching its expiry.
func (s *CachedProposalStore) Save(ctx context.Context, proposal models.TimetableProposal) error {
	ttl := proposal.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "proposal is already expired")
	}
	if err := s.repo.Set(ctx, proposalKeyPrefix+proposal.ID, proposal, ttl); err != nil {
		s.logger.Warn("proposal cache set failed", zap.String("proposal_id", proposal.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proposal")
	}
	return nil
}

// Get reads the proposal back, recording cache hit metrics.
func (s *CachedProposalStore) Get(ctx context.Context, id string) (*models.TimetableProposal, bool, error) {
	start := time.Now()
	var proposal models.TimetableProposal
	err := s.repo.Get(ctx, proposalKeyPrefix+id, &proposal)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, false, nil
		}
		s.logger.Warn("proposal cache get failed", zap.String("proposal_id", id), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if proposal.Expired(s.now()) {
		s.metrics.RecordCacheOperation(false, duration)
		_ = s.repo.Delete(ctx, proposalKeyPrefix+id)
		return nil, false, nil
	}
	s.metrics.RecordCacheOperation(true, duration)
	return &proposal, true, nil
}
