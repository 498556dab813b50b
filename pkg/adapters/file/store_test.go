package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/recalc/pkg/adapters/file"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ResultStore = (*file.Store)(nil)

func TestStore_Contract(t *testing.T) {
	ports.RunResultStoreContract(t, file.NewStore(t.TempDir()))
}

func TestStore_AtomicWrites(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, store.Save(ctx, &domain.EvaluationResult{
			SessionID: "s1",
			State:     []domain.VariableState{{Name: "X", Namespace: "Global", Type: domain.TypeFloat, Value: v}},
		}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "s1.json", entries[0].Name())

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "3", loaded.State[0].Value)
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(filepath.Join(dir, "results"))
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		err := store.Save(ctx, &domain.EvaluationResult{SessionID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, id)
	}
	assert.ErrorIs(t, store.Save(ctx, nil), domain.ErrInvalidArgument)

	_, err := os.Stat(filepath.Join(dir, "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ListMissingDirectory(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
