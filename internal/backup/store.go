package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	backupDirMode  = 0755
	backupFileMode = 0644
)

// ErrNotFound is returned when a backup id is unknown.
var ErrNotFound = errors.New("backup not found")

// Backup is a point-in-time snapshot of one file. Snapshot content lives in a
// sidecar file in the backup directory; the index keeps metadata only.
type Backup struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	Size      int64     `json:"size"`
}

type indexData struct {
	Version int                 `json:"version"`
	Files   map[string][]Backup `json:"files"`
}

// Store captures pre-mutation snapshots under a dedicated backup directory.
// Backups for the same file accumulate chronologically and are never
// overwritten; they survive successful mutations for manual rollback.
type Store struct {
	dir    string
	now    func() time.Time
	mu     sync.Mutex
	loaded bool
	index  indexData
}

// NewStore creates a backup store under <baseDir>/backups.
func NewStore(baseDir string) *Store {
	return &Store{
		dir: filepath.Join(baseDir, "backups"),
		now: time.Now,
	}
}

// Create snapshots the current content of filePath. The id is derived from
// creation time; the snapshot is written as <basename>.<id>.backup.
func (s *Store) Create(filePath, reason string) (Backup, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Backup{}, fmt.Errorf("read file for backup: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return Backup{}, err
	}

	now := s.now().UTC()
	b := Backup{
		ID:        newBackupID(now),
		FilePath:  filePath,
		Timestamp: now,
		Reason:    reason,
		Size:      int64(len(content)),
	}

	if err := os.MkdirAll(s.dir, backupDirMode); err != nil {
		return Backup{}, fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.WriteFile(s.snapshotPath(b), content, backupFileMode); err != nil {
		return Backup{}, fmt.Errorf("write backup snapshot: %w", err)
	}

	s.index.Files[filePath] = append(s.index.Files[filePath], b)
	if err := s.saveLocked(); err != nil {
		return Backup{}, err
	}
	return b, nil
}

// Restore overwrites the live file with the snapshot content of the given id.
func (s *Store) Restore(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	b, ok := s.findLocked(id)
	if !ok {
		return fmt.Errorf("restore %s: %w", id, ErrNotFound)
	}

	content, err := os.ReadFile(s.snapshotPath(b))
	if err != nil {
		return fmt.Errorf("read backup snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.FilePath), backupDirMode); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(b.FilePath, content, backupFileMode); err != nil {
		return fmt.Errorf("restore file: %w", err)
	}
	return nil
}

// Get returns the backup record for the given id.
func (s *Store) Get(id string) (Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return Backup{}, err
	}
	b, ok := s.findLocked(id)
	if !ok {
		return Backup{}, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// Content returns the snapshot content of the given id.
func (s *Store) Content(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	b, ok := s.findLocked(id)
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	content, err := os.ReadFile(s.snapshotPath(b))
	if err != nil {
		return nil, fmt.Errorf("read backup snapshot: %w", err)
	}
	return content, nil
}

// List returns the backups for one file in chronological order.
func (s *Store) List(filePath string) ([]Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return append([]Backup(nil), s.index.Files[filePath]...), nil
}

// ListAll returns every backup, newest first.
func (s *Store) ListAll() ([]Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	var all []Backup
	for _, backups := range s.index.Files {
		all = append(all, backups...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}

// Delete removes one backup record and its snapshot file. A snapshot that is
// already gone from disk is logged and tolerated.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	b, ok := s.findLocked(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	s.removeLocked(b)
	if err := s.saveLocked(); err != nil {
		return err
	}

	if err := os.Remove(s.snapshotPath(b)); err != nil && !os.IsNotExist(err) {
		slog.Warn("remove backup snapshot failed", "id", id, "error", err)
	}
	return nil
}

// PruneOlderThan deletes every backup older than maxAge and returns how many
// were removed.
func (s *Store) PruneOlderThan(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-maxAge)
	var expired []Backup
	for _, backups := range s.index.Files {
		for _, b := range backups {
			if b.Timestamp.Before(cutoff) {
				expired = append(expired, b)
			}
		}
	}

	for _, b := range expired {
		s.removeLocked(b)
		if err := os.Remove(s.snapshotPath(b)); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove backup snapshot failed", "id", b.ID, "error", err)
		}
	}

	if len(expired) > 0 {
		if err := s.saveLocked(); err != nil {
			return len(expired), err
		}
	}
	return len(expired), nil
}

func (s *Store) findLocked(id string) (Backup, bool) {
	for _, backups := range s.index.Files {
		for _, b := range backups {
			if b.ID == id {
				return b, true
			}
		}
	}
	return Backup{}, false
}

func (s *Store) removeLocked(target Backup) {
	backups := s.index.Files[target.FilePath]
	kept := backups[:0]
	for _, b := range backups {
		if b.ID != target.ID {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		delete(s.index.Files, target.FilePath)
		return
	}
	s.index.Files[target.FilePath] = kept
}

func (s *Store) snapshotPath(b Backup) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.backup", filepath.Base(b.FilePath), b.ID))
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, "index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			s.index = indexData{Version: 1, Files: make(map[string][]Backup)}
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read backup index: %w", err)
	}

	var parsed indexData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse backup index: %w", err)
	}
	if parsed.Files == nil {
		parsed.Files = make(map[string][]Backup)
	}
	if parsed.Version <= 0 {
		parsed.Version = 1
	}

	s.index = parsed
	s.loaded = true
	return nil
}

func (s *Store) saveLocked() error {
	encoded, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backup index: %w", err)
	}
	if err := os.MkdirAll(s.dir, backupDirMode); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, "index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp backup index: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp backup index: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp backup index: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, "index.json")); err != nil {
		return fmt.Errorf("replace backup index: %w", err)
	}
	return nil
}

// newBackupID derives an id from creation time with a short random suffix so
// two snapshots in the same millisecond stay distinct.
func newBackupID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}
