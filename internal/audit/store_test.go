package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_ReportAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	store.Report(ctx, rec)

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.ActionType, got[0].ActionType)
	assert.Equal(t, rec.Detail, got[0].Detail)
	assert.Equal(t, rec.Allowed, got[0].Allowed)
	assert.Equal(t, rec.Decision, got[0].Decision)
	assert.Equal(t, rec.Risk, got[0].Risk)
	assert.Equal(t, rec.SecurityLevel, got[0].SecurityLevel)
	assert.Equal(t, rec.Reason, got[0].Reason)
	assert.Equal(t, rec.TaskID, got[0].TaskID)
	assert.Equal(t, rec.Time.Unix(), got[0].Time.Unix())
}

func TestStore_RecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := sampleRecord()
		rec.Time = base.Add(time.Duration(i) * time.Second)
		rec.ID = NewRecordID(rec.Time)
		store.Report(ctx, rec)
	}

	got, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Time.After(got[1].Time))
	assert.True(t, got[1].Time.After(got[2].Time))
}

func TestStore_RedactsDetailBeforePersisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	rec.Detail = "deploy --password=hunter2"
	store.Report(ctx, rec)

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0].Detail, "hunter2")
	assert.Contains(t, got[0].Detail, "[REDACTED]")
}

func TestStore_DeniedRecordsPersistToo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	rec.Allowed = false
	rec.Decision = guardtypes.DecisionDeny
	rec.Risk = guardtypes.RiskLevelCritical
	store.Report(ctx, rec)

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Allowed)
	assert.Equal(t, guardtypes.DecisionDeny, got[0].Decision)
	assert.Equal(t, guardtypes.RiskLevelCritical, got[0].Risk)
}
