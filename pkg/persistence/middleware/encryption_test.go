package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/persistence/middleware"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secure(t *testing.T, next ports.ResultStore, cfg middleware.EncryptionConfig) ports.ResultStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func secretResult(id string) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		SessionID:  id,
		WorkbookID: "payroll",
		State: []domain.VariableState{
			{Identity: "v1", Name: "Salary", Namespace: "HR", Type: domain.TypeFloat, Value: "98000"},
		},
		Logs: []domain.LogLine{
			{SessionID: id, Level: domain.LevelTrace, Message: "Salary set to 98000"},
		},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunResultStoreContract(t, secure(t, NewMockStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := NewMockStore()
	store := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	original := secretResult("test-session")
	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if original.State[0].Value != "98000" {
		t.Fatal("middleware modified the caller's result")
	}

	stored, err := underlying.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.NotContains(t, stored.State[0].Value, "98000")
	assert.True(t, strings.HasPrefix(stored.State[0].Value, "enc:v1:"))
	assert.NotContains(t, stored.Logs[0].Message, "98000")
	assert.Equal(t, "Salary", stored.State[0].Name, "names stay in the clear")
	assert.Equal(t, domain.LevelTrace, stored.Logs[0].Level)

	loaded, err := store.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.Equal(t, "98000", loaded.State[0].Value)
	assert.Equal(t, "Salary set to 98000", loaded.Logs[0].Message)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := NewMockStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.Save(ctx, secretResult("rotation")))

	newStore := secure(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err, "fallback key should open old data")
	assert.Equal(t, "98000", loaded.State[0].Value)

	require.NoError(t, newStore.Save(ctx, loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.ErrorIs(t, err, middleware.ErrDecrypt, "old key alone cannot open new data")
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	underlying := NewMockStore()
	require.NoError(t, underlying.Save(context.Background(), secretResult("plain")))

	store := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := store.Load(context.Background(), "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestParseKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(generateKey(t))
	previous := base64.StdEncoding.EncodeToString(generateKey(t))

	cfg, err := middleware.ParseKeys(active, previous, "")
	require.NoError(t, err)
	assert.Len(t, cfg.ActiveKey, middleware.KeySize)
	assert.Len(t, cfg.FallbackKeys, 1)

	_, err = middleware.ParseKeys("not base64!")
	assert.Error(t, err)

	_, err = middleware.ParseKeys(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
