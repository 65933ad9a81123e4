package cached

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseledger/internal/registry/models"
	"caseledger/internal/registry/store/memory"
	"caseledger/pkg/domain"
)

// A nil client means cache-off: every read goes straight to the store.
func TestNilClientPassesThrough(t *testing.T) {
	mem := memory.New()
	caseID := domain.NewCaseID()
	require.NoError(t, mem.AddCase(models.CaseRecord{
		ID:         caseID,
		CaseNumber: "FIR-2024-001",
		IncidentAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     models.CaseStatusInCourt,
		Active:     true,
	}))

	store := New(mem, nil, time.Minute)

	got, err := store.GetCaseSummaries(context.Background(), []domain.CaseID{caseID})
	require.NoError(t, err)
	assert.Equal(t, "FIR-2024-001", got[caseID].CaseNumber)

	_, err = store.GetAppearance(context.Background(), domain.NewAppearanceID())
	assert.Error(t, err)
}
