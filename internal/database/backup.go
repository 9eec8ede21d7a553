package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rentdapp/internal/config"

	"github.com/rs/zerolog"
)

const snapshotPrefix = "journal_"

// Snapshot writes a consistent copy of the journal into dir and returns its path.
func (db *DB) Snapshot(ctx context.Context, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(dir, snapshotPrefix+now.Format("20060102_150405")+".db")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("snapshot %s already exists", path)
	}
	if _, err := db.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// BackupService snapshots the journal on a fixed interval and prunes old copies.
type BackupService struct {
	db     *DB
	cfg    config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// Start blocks until ctx is done. The first snapshot is taken immediately.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Journal backups disabled")
		return
	}
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("path", s.cfg.StoragePath).Msg("Journal backups started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce takes one snapshot and prunes expired ones.
func (s *BackupService) RunOnce(ctx context.Context) {
	path, err := s.db.Snapshot(ctx, s.cfg.StoragePath, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Journal backup failed")
	} else {
		s.logger.Info().Str("path", path).Msg("Journal backup written")
	}
	if removed := s.Prune(); removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Old journal backups deleted")
	}
}

// Prune removes snapshots older than the retention window. Other files in
// the directory are left alone.
func (s *BackupService) Prune() int {
	if s.cfg.RetentionDays <= 0 {
		return 0
	}
	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), snapshotPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.StoragePath, e.Name())); err != nil {
			s.logger.Warn().Err(err).Str("file", e.Name()).Msg("Failed to delete old backup")
			continue
		}
		removed++
	}
	return removed
}
