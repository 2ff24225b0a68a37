package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/balbi1122/balbi-golf-booking/internal/database"
)

// SettingKey is the fixed settings row holding the rotating credential.
const SettingKey = "google_refresh_token"

// Source tags where a resolved credential came from, so callers and tests
// can tell the store branch from the configured fallback.
type Source string

const (
	SourceStore    Source = "store"
	SourceFallback Source = "fallback"
)

// ErrNoCredential is returned by Get when neither the store nor the
// configured fallback has a value.
var ErrNoCredential = errors.New("no credential available")

// SettingsRepo is the persistence the store needs.
type SettingsRepo interface {
	SetSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)
	DeleteSetting(ctx context.Context, key string) error
}

// Auditor records administrative actions; implementations never fail the
// action they describe.
type Auditor interface {
	Record(actor, action, detail string)
}

// Store keeps the rotating credential encrypted at rest with a plaintext
// fallback from configuration.
type Store struct {
	repo     SettingsRepo
	box      *Box
	fallback string
	audit    Auditor
}

// NewStore wires the encrypted settings store.
func NewStore(repo SettingsRepo, box *Box, fallback string, audit Auditor) *Store {
	return &Store{repo: repo, box: box, fallback: fallback, audit: audit}
}

// Set encrypts the plaintext credential and upserts it. The audit entry is
// best-effort and never rolls the settings change back.
func (s *Store) Set(ctx context.Context, plaintext string) error {
	sealed, err := s.box.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	if err := s.repo.SetSetting(ctx, SettingKey, sealed); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	s.audit.Record("admin", "credential_rotated", "encrypted token stored")
	return nil
}

// Get resolves the credential: decrypt the stored value if present, fall
// back to configuration only on absence. A decrypt failure surfaces as
// ErrIntegrity and never degrades to the fallback.
func (s *Store) Get(ctx context.Context) (string, Source, error) {
	sealed, err := s.repo.GetSetting(ctx, SettingKey)
	switch {
	case err == nil:
		plain, err := s.box.Open(sealed)
		if err != nil {
			return "", "", err
		}
		return plain, SourceStore, nil
	case errors.Is(err, database.ErrNotFound):
		if s.fallback == "" {
			return "", "", ErrNoCredential
		}
		return s.fallback, SourceFallback, nil
	default:
		return "", "", fmt.Errorf("read credential: %w", err)
	}
}

// Clear deletes the stored credential; subsequent Gets use the fallback.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.DeleteSetting(ctx, SettingKey); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	s.audit.Record("admin", "credential_cleared", "token removed; config fallback applies if present")
	return nil
}

// Status reports whether a credential is stored (without decrypting it).
func (s *Store) Status(ctx context.Context) (bool, error) {
	_, err := s.repo.GetSetting(ctx, SettingKey)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
