package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

type fakeDecisionLogRepo struct {
	entries   []*auditDomain.DecisionLog
	createErr error
}

func (f *fakeDecisionLogRepo) Create(_ context.Context, entry *auditDomain.DecisionLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDecisionLogRepo) List(
	_ context.Context,
	domainID string,
	_, _ int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	out := make([]*auditDomain.DecisionLog, 0)
	for _, entry := range f.entries {
		if domainID != "" && entry.DomainID != domainID {
			continue
		}
		if createdAtFrom != nil && entry.CreatedAt.Before(*createdAtFrom) {
			continue
		}
		if createdAtTo != nil && entry.CreatedAt.After(*createdAtTo) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func TestAuditUseCase_Record(t *testing.T) {
	ctx := context.Background()
	repo := &fakeDecisionLogRepo{}
	uc := NewAuditUseCase(repo)

	err := uc.Record(ctx, RecordDecisionInput{
		RequestID:  uuid.Must(uuid.NewV7()),
		DomainID:   "alpha",
		Subject:    "spiffe://corp/ns/alpha/sa/api",
		Path:       "secret/alpha/db",
		Capability: policyDomain.ReadCapability,
		Outcome:    auditDomain.AllowOutcome,
		Metadata:   map[string]any{"version": 3},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, auditDomain.AllowOutcome, entry.Outcome)
}

func TestAuditUseCase_List(t *testing.T) {
	ctx := context.Background()
	repo := &fakeDecisionLogRepo{}
	uc := NewAuditUseCase(repo)

	for _, domainID := range []string{"alpha", "beta", "alpha"} {
		require.NoError(t, uc.Record(ctx, RecordDecisionInput{
			RequestID:  uuid.Must(uuid.NewV7()),
			DomainID:   domainID,
			Subject:    "spiffe://corp/ns/" + domainID + "/sa/api",
			Path:       "secret/" + domainID + "/db",
			Capability: policyDomain.ReadCapability,
			Outcome:    auditDomain.DenyOutcome,
		}))
	}

	entries, err := uc.List(ctx, "alpha", 0, 50, nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	all, err := uc.List(ctx, "", 0, 50, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
