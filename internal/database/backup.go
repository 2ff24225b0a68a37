package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupService snapshots the database on an interval and prunes old
// snapshots. VACUUM INTO produces a consistent copy even while writers
// are active in WAL mode.
type BackupService struct {
	db            *DB
	dir           string
	interval      time.Duration
	retentionDays int
	logger        *zerolog.Logger
}

func NewBackupService(db *DB, dir string, interval time.Duration, retentionDays int, logger *zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{
		db:            db,
		dir:           dir,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start runs the backup loop until the context is canceled. The first
// snapshot is taken immediately.
func (s *BackupService) Start(ctx context.Context) {
	s.logger.Info().Str("dir", s.dir).Dur("interval", s.interval).Msg("backup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.Snapshot(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.cleanup()
		}
	}
}

// Snapshot writes one timestamped backup file.
func (s *BackupService) Snapshot(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("backup completed")
	return nil
}

func (s *BackupService) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			os.Remove(filepath.Join(s.dir, file.Name()))
		}
	}
}
