//go:build integration

package cached

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseledger/internal/registry"
	"caseledger/internal/registry/models"
	"caseledger/internal/registry/store/memory"
	"caseledger/pkg/domain"
	"caseledger/pkg/testutil/containers"
)

type countingSummarySource struct {
	registry.Store
	calls int
}

func (s *countingSummarySource) GetCaseSummaries(ctx context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error) {
	s.calls++
	return s.Store.GetCaseSummaries(ctx, ids)
}

func TestCachedSummaries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	mem := memory.New()
	caseID := domain.NewCaseID()
	require.NoError(t, mem.AddCase(models.CaseRecord{
		ID:         caseID,
		CaseNumber: "FIR-2024-001",
		IncidentAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     models.CaseStatusInCourt,
		Active:     true,
	}))

	counting := &countingSummarySource{Store: mem}
	store := New(counting, rc.Client, time.Minute)

	// First read misses the cache and fills it.
	got, err := store.GetCaseSummaries(ctx, []domain.CaseID{caseID})
	require.NoError(t, err)
	require.Contains(t, got, caseID)
	assert.Equal(t, 1, counting.calls)

	// Second read is served from Redis without touching the store.
	got, err = store.GetCaseSummaries(ctx, []domain.CaseID{caseID})
	require.NoError(t, err)
	assert.Equal(t, "FIR-2024-001", got[caseID].CaseNumber)
	assert.Equal(t, caseID, got[caseID].ID, "cached summary keeps its id through the codec")
	assert.Equal(t, 1, counting.calls)

	// Unknown ids fall through every time and stay uncached.
	unknown := domain.NewCaseID()
	got, err = store.GetCaseSummaries(ctx, []domain.CaseID{unknown})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, counting.calls)

	// A flush forces the next read back to the store.
	require.NoError(t, rc.FlushAll(ctx))
	_, err = store.GetCaseSummaries(ctx, []domain.CaseID{caseID})
	require.NoError(t, err)
	assert.Equal(t, 3, counting.calls)
}
