package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/balbi1122/balbi-golf-booking/internal/database"
)

type memSettings struct {
	values map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", database.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) DeleteSetting(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

type memAuditor struct {
	actions []string
}

func (m *memAuditor) Record(_, action, _ string) {
	m.actions = append(m.actions, action)
}

func newTestStore(t *testing.T, fallback string) (*Store, *memSettings, *memAuditor) {
	t.Helper()
	box, err := NewBox("server-secret")
	assert.NoError(t, err)
	repo := newMemSettings()
	auditor := &memAuditor{}
	return NewStore(repo, box, fallback, auditor), repo, auditor
}

func TestStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store, repo, auditor := newTestStore(t, "fallback-token")

	assert.NoError(t, store.Set(ctx, "rotated-token"))
	assert.Contains(t, auditor.actions, "credential_rotated")

	// Stored form is ciphertext, not the plaintext.
	assert.NotEqual(t, "rotated-token", repo.values[SettingKey])

	token, source, err := store.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "rotated-token", token)
	assert.Equal(t, SourceStore, source)
}

func TestStoreFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("absent value uses fallback", func(t *testing.T) {
		store, _, _ := newTestStore(t, "fallback-token")
		token, source, err := store.Get(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "fallback-token", token)
		assert.Equal(t, SourceFallback, source)
	})

	t.Run("absent value without fallback", func(t *testing.T) {
		store, _, _ := newTestStore(t, "")
		_, _, err := store.Get(ctx)
		assert.ErrorIs(t, err, ErrNoCredential)
	})

	t.Run("integrity failure never falls back", func(t *testing.T) {
		store, repo, _ := newTestStore(t, "fallback-token")
		repo.values[SettingKey] = "garbage-that-is-not-a-ciphertext"

		_, _, err := store.Get(ctx)
		assert.ErrorIs(t, err, ErrIntegrity)
	})

	t.Run("value sealed under another secret never falls back", func(t *testing.T) {
		store, repo, _ := newTestStore(t, "fallback-token")
		otherBox, err := NewBox("different-secret")
		assert.NoError(t, err)
		sealed, err := otherBox.Seal("their-token")
		assert.NoError(t, err)
		repo.values[SettingKey] = sealed

		_, _, err = store.Get(ctx)
		assert.ErrorIs(t, err, ErrIntegrity)
	})
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	store, _, auditor := newTestStore(t, "fallback-token")

	assert.NoError(t, store.Set(ctx, "rotated-token"))
	assert.NoError(t, store.Clear(ctx))
	assert.Contains(t, auditor.actions, "credential_cleared")

	token, source, err := store.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "fallback-token", token)
	assert.Equal(t, SourceFallback, source)
}

func TestStoreStatus(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t, "")

	has, err := store.Status(ctx)
	assert.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, store.Set(ctx, "rotated-token"))
	has, err = store.Status(ctx)
	assert.NoError(t, err)
	assert.True(t, has)
}
