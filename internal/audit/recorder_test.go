package audit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

type memRepo struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	failing bool
}

func (m *memRepo) InsertAuditEntry(_ context.Context, actor, action, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk full")
	}
	m.entries = append(m.entries, models.AuditEntry{
		ID: int64(len(m.entries) + 1), TS: time.Now(), Actor: actor, Action: action, Detail: detail,
	})
	return nil
}

func (m *memRepo) RecentAuditEntries(_ context.Context, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestRecorder(repo *memRepo) *Recorder {
	logger := zerolog.New(io.Discard)
	return NewRecorder(repo, &logger)
}

func TestRecorderWrites(t *testing.T) {
	repo := &memRepo{}
	r := newTestRecorder(repo)

	r.Record("admin", "block_created", "2026-09-14")
	r.Record("admin", "credential_rotated", "")
	r.Close()

	assert.Equal(t, 2, repo.count())
	entries, err := r.Recent(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "credential_rotated", entries[0].Action)
}

func TestRecorderSwallowsFailures(t *testing.T) {
	repo := &memRepo{failing: true}
	r := newTestRecorder(repo)

	// Never panics or blocks even when every write fails.
	r.Record("admin", "block_created", "")
	r.Close()
	assert.Equal(t, 0, repo.count())
}

func TestRecorderCloseIdempotent(t *testing.T) {
	r := newTestRecorder(&memRepo{})
	r.Close()
	r.Close()
}

func TestRecentLimits(t *testing.T) {
	repo := &memRepo{}
	r := newTestRecorder(repo)
	defer r.Close()

	for i := 0; i < 250; i++ {
		assert.NoError(t, repo.InsertAuditEntry(context.Background(), "admin", "a", ""))
	}

	t.Run("default applied", func(t *testing.T) {
		entries, err := r.Recent(context.Background(), 0)
		assert.NoError(t, err)
		assert.Len(t, entries, DefaultReadLimit)
	})

	t.Run("cap applied", func(t *testing.T) {
		entries, err := r.Recent(context.Background(), 1000)
		assert.NoError(t, err)
		assert.Len(t, entries, MaxReadLimit)
	})

	t.Run("explicit limit honored", func(t *testing.T) {
		entries, err := r.Recent(context.Background(), 5)
		assert.NoError(t, err)
		assert.Len(t, entries, 5)
	})
}
