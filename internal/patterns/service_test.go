package patterns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu       sync.Mutex
	patterns []*models.SupplierPattern
	reads    int
	saveErr  error
}

func (m *memoryStore) SavePattern(ctx context.Context, p *models.SupplierPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	p.ID = fmt.Sprintf("p-%d", len(m.patterns)+1)
	cp := *p
	m.patterns = append(m.patterns, &cp)
	return nil
}

func (m *memoryStore) GetBestPattern(ctx context.Context, name string) (*models.SupplierPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var matches []*models.SupplierPattern
	for _, p := range m.patterns {
		if p.SupplierName == name {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].SuccessRate > matches[j].SuccessRate })
	cp := *matches[0]
	return &cp, nil
}

func (m *memoryStore) UpdatePatternScore(ctx context.Context, id string, rate float64, sessions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patterns {
		if p.ID == id {
			p.SuccessRate = rate
			p.LearningSessions = sessions
			return nil
		}
	}
	return errors.New("not found")
}

func newTestService(store Store, scorer OutcomeScorer) *Service {
	return NewService(store, Config{CacheSize: 4, Scorer: scorer}, zap.NewNop())
}

func TestService_LearnAndGetPattern(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	learned, err := svc.Learn(ctx, defineInvoice, Corrections{})
	require.NoError(t, err)
	require.NotEmpty(t, learned.ID)

	got, err := svc.GetPattern(ctx, "DEFINE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, learned.CustomPrompt, got.CustomPrompt)

	_, err = svc.GetPattern(ctx, "DEFINE")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads, "second lookup is served from cache")

	missing, err := svc.GetPattern(ctx, "define")
	require.NoError(t, err)
	assert.Nil(t, missing, "lookup is exact, not fuzzy")
}

func TestService_LearnUnknownIsNotStored(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)

	p, err := svc.Learn(context.Background(), "12,00\n13,00", Corrections{})
	require.NoError(t, err)
	assert.Equal(t, models.UnknownSupplier, p.SupplierName)
	assert.Empty(t, p.ID)
	assert.Empty(t, store.patterns)
}

func TestService_LearnIfUnseen(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	p, created, err := svc.LearnIfUnseen(ctx, defineInvoice, "DEFINE Werbeagentur OG")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 95, p.Confidence)

	again, created, err := svc.LearnIfUnseen(ctx, defineInvoice, "DEFINE Werbeagentur OG")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
	assert.Len(t, store.patterns, 1)
}

func TestService_LearnIfUnseen_EmptyNameUsesTopCandidate(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	p, created, err := svc.LearnIfUnseen(ctx, defineInvoice, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "DEFINE", p.SupplierName)

	again, created, err := svc.LearnIfUnseen(ctx, defineInvoice, "  ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
	assert.Len(t, store.patterns, 1)
}

func TestService_FindPatternTriesNamesInOrder(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Learn(ctx, defineInvoice, Corrections{DetectedSupplierName: "Ihr DEFINE Team"})
	require.NoError(t, err)

	p, err := svc.FindPattern(ctx, "Vielen Dank", "Ihr DEFINE Team")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Ihr DEFINE Team", p.SupplierName)

	none, err := svc.FindPattern(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestService_RecordOutcomeUsesScorer(t *testing.T) {
	store := &memoryStore{}
	var calls []bool
	scorer := func(current float64, sessions int, corrected bool) float64 {
		calls = append(calls, corrected)
		if corrected {
			return current - 0.5
		}
		return current + 0.5
	}
	svc := newTestService(store, scorer)
	ctx := context.Background()

	_, err := svc.Learn(ctx, defineInvoice, Corrections{DetectedSupplierName: "DEFINE"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordOutcome(ctx, "DEFINE", false))
	p, err := svc.GetPattern(ctx, "DEFINE")
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.SuccessRate, "rate is clamped to 1")
	assert.Equal(t, 2, p.LearningSessions)

	require.NoError(t, svc.RecordOutcome(ctx, "DEFINE", true))
	p, err = svc.GetPattern(ctx, "DEFINE")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.SuccessRate, 0.0001)
	assert.Equal(t, 3, p.LearningSessions)
	assert.Equal(t, []bool{false, true}, calls)

	require.NoError(t, svc.RecordOutcome(ctx, "Unseen Supplier", true), "unknown suppliers are ignored")
}

func TestService_SaveError(t *testing.T) {
	svc := newTestService(&memoryStore{saveErr: errors.New("disk full")}, nil)
	_, err := svc.Learn(context.Background(), defineInvoice, Corrections{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunningMean(t *testing.T) {
	assert.InDelta(t, 0.75, RunningMean(0.5, 1, false), 0.0001)
	assert.InDelta(t, 0.25, RunningMean(0.5, 1, true), 0.0001)
	assert.InDelta(t, 0.6, RunningMean(0.5, 4, false), 0.0001)
	assert.InDelta(t, 1.0, RunningMean(1, 0, false), 0.0001)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Set("a", &models.SupplierPattern{SupplierName: "a"})
	c.Set("b", &models.SupplierPattern{SupplierName: "b"})

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", &models.SupplierPattern{SupplierName: "c"})

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}
