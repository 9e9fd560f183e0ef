// Package maintenance runs the daemon's background housekeeping: a daily
// snapshot of every setting written to a backups directory, with old
// snapshots pruned.
package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/micro-nova/amplipi-prefs/internal/models"
)

const (
	backupPrefix = "prefs-backup-"
	backupSuffix = ".json"

	defaultBackupHour = 2
	defaultKeep       = 90 * 24 * time.Hour
)

// SnapshotFunc returns the current value of every setting.
type SnapshotFunc func(ctx context.Context) ([]models.Setting, error)

// Backup is the on-disk format of one snapshot.
type Backup struct {
	TakenAt  time.Time        `json:"taken_at"`
	Settings []models.Setting `json:"settings"`
}

// Service writes daily settings snapshots.
type Service struct {
	backupDir string
	snapshot  SnapshotFunc
	hour      int
	keep      time.Duration
}

// New creates a maintenance Service that writes snapshots into backupDir.
func New(backupDir string, snapshot SnapshotFunc) *Service {
	return &Service{
		backupDir: backupDir,
		snapshot:  snapshot,
		hour:      defaultBackupHour,
		keep:      defaultKeep,
	}
}

// Start takes a snapshot every day at 2am and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for {
		delay := nextRun(time.Now(), s.hour).Sub(time.Now())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			path, err := s.RunBackupNow(ctx)
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", path)
			}
		}
	}
}

// RunBackupNow writes a snapshot immediately, prunes expired ones and
// returns the snapshot's path. A second backup on the same day replaces the
// first.
func (s *Service) RunBackupNow(ctx context.Context) (string, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now()
	data, err := json.MarshalIndent(Backup{TakenAt: now, Settings: all}, "", "  ")
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.backupDir, backupPrefix+now.Format("2006-01-02")+backupSuffix)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}

	pruneOldBackups(s.backupDir, s.keep)
	return dest, nil
}

// ListBackups returns the snapshot files sorted by name (oldest first).
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if isBackup(e) {
			files = append(files, filepath.Join(s.backupDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadBackup loads a snapshot written by RunBackupNow.
func ReadBackup(path string) (Backup, error) {
	var b Backup
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	err = json.Unmarshal(data, &b)
	return b, err
}

// nextRun returns the next time at hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func isBackup(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix)
}

// pruneOldBackups deletes snapshots older than maxAge from backupDir.
func pruneOldBackups(backupDir string, maxAge time.Duration) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !isBackup(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(backupDir, e.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
			} else {
				slog.Info("maintenance: pruned old backup", "file", path)
			}
		}
	}
}
