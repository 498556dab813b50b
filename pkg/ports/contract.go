package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(sessionID string) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		SessionID:  sessionID,
		WorkbookID: "payroll",
		State: []domain.VariableState{
			{Identity: "v1", SessionID: sessionID, Name: "Rate", Namespace: "Global", Type: domain.TypeFloat, Value: "1.5"},
			{Identity: "v2", SessionID: sessionID, Name: "Total", Namespace: "Global", Type: domain.TypeFloat, Value: "6"},
		},
		Logs: []domain.LogLine{
			{SessionID: sessionID, Level: domain.LevelWarning, Message: "Tried to update a data variable that the session had not created.", Time: time.Now().UTC().Truncate(time.Millisecond)},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// RunResultStoreContract runs a suite of tests to verify that a ResultStore
// implementation adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		result := sampleResult(sessionID)

		err := store.Save(ctx, result)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, result.WorkbookID, loaded.WorkbookID)
		assert.Equal(t, result.State, loaded.State)
		require.Len(t, loaded.Logs, 1)
		assert.Equal(t, result.Logs[0].Message, loaded.Logs[0].Message)
		assert.Equal(t, result.Logs[0].Level, loaded.Logs[0].Level)
		assert.True(t, result.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		result := sampleResult(sessionID)
		result.State[1].Value = "7"
		require.NoError(t, store.Save(ctx, result))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "7", loaded.State[1].Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleResult(sessionID)))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound, "Load after Delete should return ErrResultNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, sampleResult(id1)))
		require.NoError(t, store.Save(ctx, sampleResult(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// RunWorkbookLoaderContract verifies a WorkbookLoader against the workbook IDs
// the caller seeded into it.
func RunWorkbookLoaderContract(t *testing.T, loader WorkbookLoader, seeded []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadWorkbook_Success", func(t *testing.T) {
		for _, id := range seeded {
			wb, err := loader.LoadWorkbook(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, id, wb.ID)
			assert.NotNil(t, wb.Blueprints)
		}
	})

	t.Run("LoadWorkbook_NotFound", func(t *testing.T) {
		_, err := loader.LoadWorkbook(ctx, "non-existent-workbook")
		assert.ErrorIs(t, err, domain.ErrWorkbookNotFound)
	})

	t.Run("ListWorkbooks", func(t *testing.T) {
		ids, err := loader.ListWorkbooks(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, seeded, ids)
	})
}
