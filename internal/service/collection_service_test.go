package service

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
)

type mockPendingLister struct {
	mu      sync.Mutex
	items   []models.PendingEntity
	outcome *client.Outcome
	calls   int

	// gate, when set, blocks List until released so tests can overlap
	// fetches deterministically.
	gate chan struct{}
}

func (m *mockPendingLister) List(_ context.Context, _ models.EntityKind, _ models.Status) ([]models.PendingEntity, *client.Outcome) {
	m.mu.Lock()
	m.calls++
	items, outcome, gate := m.items, m.outcome, m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if outcome != nil {
		return nil, outcome
	}
	return items, &client.Outcome{Success: true, HTTPStatus: 200}
}

func (m *mockPendingLister) set(items []models.PendingEntity, outcome *client.Outcome) {
	m.mu.Lock()
	m.items = items
	m.outcome = outcome
	m.gate = nil
	m.mu.Unlock()
}

func TestCollectionFetchStoresItems(t *testing.T) {
	repo := &mockPendingLister{items: []models.PendingEntity{
		{ID: 1, Name: "يوسف محمد", Status: models.StatusPending},
		{ID: 2, Name: "خالد العمري", Status: models.StatusPending},
	}}
	svc := NewCollectionService(repo, nil, models.KindStudent, models.StatusPending, nil)

	require.NoError(t, svc.Fetch(context.Background()))
	assert.Len(t, svc.Items(), 2)
	assert.Empty(t, svc.Err())
	assert.False(t, svc.Loading())
}

func TestCollectionFailedFetchKeepsLastKnownGood(t *testing.T) {
	repo := &mockPendingLister{items: []models.PendingEntity{{ID: 1, Name: "يوسف"}}}
	svc := NewCollectionService(repo, nil, models.KindStudent, models.StatusPending, nil)
	ctx := context.Background()

	require.NoError(t, svc.Fetch(ctx))
	require.Len(t, svc.Items(), 1)

	repo.set(nil, &client.Outcome{Kind: client.FailureNetwork, Message: "connection refused"})
	err := svc.Fetch(ctx)
	require.Error(t, err)

	assert.Len(t, svc.Items(), 1, "failed fetch must not wipe the list")
	assert.Equal(t, "connection refused", svc.Err())

	repo.set([]models.PendingEntity{{ID: 1}, {ID: 2}}, nil)
	require.NoError(t, svc.Refetch(ctx))
	assert.Len(t, svc.Items(), 2)
	assert.Empty(t, svc.Err(), "error clears on the next success")
}

func TestCollectionStaleFetchDiscarded(t *testing.T) {
	gate := make(chan struct{})
	repo := &mockPendingLister{items: []models.PendingEntity{{ID: 1, Name: "stale"}}, gate: gate}
	svc := NewCollectionService(repo, nil, models.KindStudent, models.StatusPending, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = svc.Fetch(ctx)
	}()

	// Wait for the first fetch to be in flight, then let a second fetch
	// with fresher data complete first.
	for !svc.Loading() {
		runtime.Gosched()
	}
	repo.set([]models.PendingEntity{{ID: 2, Name: "fresh"}, {ID: 3, Name: "fresh"}}, nil)
	require.NoError(t, svc.Fetch(ctx))
	require.Len(t, svc.Items(), 2)

	close(gate)
	wg.Wait()

	items := svc.Items()
	require.Len(t, items, 2, "the stale response must not overwrite the newer one")
	assert.Equal(t, "fresh", items[0].Name)
}

func TestCollectionDoubleRefetchIsIdempotent(t *testing.T) {
	repo := &mockPendingLister{items: []models.PendingEntity{
		{ID: 1, Name: "يوسف محمد"},
		{ID: 2, Name: "خالد العمري"},
	}}
	svc := NewCollectionService(repo, nil, models.KindStudent, models.StatusPending, nil)
	ctx := context.Background()

	require.NoError(t, svc.Refetch(ctx))
	first := svc.Items()
	require.NoError(t, svc.Refetch(ctx))
	assert.Equal(t, first, svc.Items())
	assert.Equal(t, 2, repo.calls)
}

func TestCollectionFilterIsPure(t *testing.T) {
	repo := &mockPendingLister{items: []models.PendingEntity{
		{ID: 1, Name: "يوسف محمد", Email: "yousef@example.com"},
		{ID: 2, Name: "خالد العمري", Phone: "0501234567"},
		{ID: 3, Name: "Sara Ali", Email: "sara@example.com"},
	}}
	svc := NewCollectionService(repo, nil, models.KindStudent, models.StatusPending, nil)
	require.NoError(t, svc.Fetch(context.Background()))
	calls := repo.calls

	assert.Len(t, svc.Filter("يوسف"), 1)
	assert.Len(t, svc.Filter("example.com"), 2)
	assert.Len(t, svc.Filter("0501"), 1)
	assert.Len(t, svc.Filter("SARA"), 1, "matching is case-insensitive")
	assert.Len(t, svc.Filter(""), 3)
	assert.Len(t, svc.Filter("nothing"), 0)

	assert.Len(t, svc.Items(), 3, "filtering never mutates the list")
	assert.Equal(t, calls, repo.calls, "filtering never triggers a fetch")
}

func TestCollectionPrimeIsColdStartOnly(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, 0, nil, true)
	ctx := context.Background()

	cacheSvc.Set(ctx, "console:students:pending", []models.PendingEntity{{ID: 9, Name: "cached"}})

	repo := &mockPendingLister{items: []models.PendingEntity{{ID: 1, Name: "server"}}}
	svc := NewCollectionService(repo, cacheSvc, models.KindStudent, models.StatusPending, nil)

	svc.Prime(ctx)
	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "cached", items[0].Name)

	require.NoError(t, svc.Fetch(ctx))
	svc.Prime(ctx)
	items = svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "server", items[0].Name, "a snapshot never replaces fetched truth")
}
