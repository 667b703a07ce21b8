package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
)

type pendingLister interface {
	List(ctx context.Context, kind models.EntityKind, status models.Status) ([]models.PendingEntity, *client.Outcome)
}

// CollectionService keeps one lifecycle-filtered entity list in sync with
// server truth. A failed fetch keeps the last known-good items so the view
// never flickers to empty on a blip; consumers refetch after every
// successful mutation instead of splicing items locally.
type CollectionService struct {
	repo   pendingLister
	cache  *CacheService
	kind   models.EntityKind
	status models.Status
	logger *zap.Logger

	mu       sync.Mutex
	seq      uint64
	applied  uint64
	inflight int
	items    []models.PendingEntity
	errMsg   string
}

// NewCollectionService constructs a synchronizer for one kind and status.
// cache may be nil.
func NewCollectionService(repo pendingLister, cache *CacheService, kind models.EntityKind, status models.Status, logger *zap.Logger) *CollectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if status == "" {
		status = models.StatusPending
	}
	return &CollectionService{repo: repo, cache: cache, kind: kind, status: status, logger: logger}
}

func (s *CollectionService) cacheKey() string {
	return fmt.Sprintf("console:%s:%s", s.kind, s.status)
}

// Prime paints a cached snapshot before the first fetch completes. It is a
// cold-start hint only and never replaces already-fetched server truth.
func (s *CollectionService) Prime(ctx context.Context) {
	var snapshot []models.PendingEntity
	if !s.cache.Get(ctx, s.cacheKey(), &snapshot) {
		return
	}
	s.mu.Lock()
	if s.applied == 0 && s.items == nil {
		s.items = snapshot
	}
	s.mu.Unlock()
}

// Fetch loads the list from the platform. Responses superseded by a later
// issued fetch are discarded so the last issued call's state wins.
func (s *CollectionService) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.inflight++
	s.mu.Unlock()

	items, outcome := s.repo.List(ctx, s.kind, s.status)

	s.mu.Lock()
	s.inflight--
	if mySeq < s.seq {
		s.mu.Unlock()
		s.logger.Debug("stale fetch discarded",
			zap.String("kind", string(s.kind)),
			zap.Uint64("seq", mySeq))
		return nil
	}
	if !outcome.Success {
		s.errMsg = outcome.Message
		if s.errMsg == "" {
			s.errMsg = "failed to load the list, try again"
		}
		s.mu.Unlock()
		return outcome.Err()
	}
	s.items = items
	s.applied = mySeq
	s.errMsg = ""
	s.mu.Unlock()

	s.cache.Set(ctx, s.cacheKey(), items)
	return nil
}

// Refetch resynchronises with the server. Mutation consumers call this
// after every confirmed transition.
func (s *CollectionService) Refetch(ctx context.Context) error {
	return s.Fetch(ctx)
}

// Items returns a copy of the current list.
func (s *CollectionService) Items() []models.PendingEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PendingEntity, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *CollectionService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the user-facing message of the last failed fetch, empty
// after a success.
func (s *CollectionService) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Filter applies the search box as a pure projection over the current
// items. It never triggers a fetch and never mutates the list.
func (s *CollectionService) Filter(query string) []models.PendingEntity {
	items := s.Items()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	matched := make([]models.PendingEntity, 0, len(items))
	for _, item := range items {
		haystack := strings.ToLower(item.Name + " " + item.Email + " " + item.Phone)
		if strings.Contains(haystack, query) {
			matched = append(matched, item)
		}
	}
	return matched
}
