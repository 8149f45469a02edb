package permission

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MEKXH/mason/internal/risk"
)

const (
	storeVersion      = 1
	permissionsDirMod = 0755
	permissionsFile   = 0644
)

type fileData struct {
	Version int                            `json:"version"`
	Entries map[risk.Category]*MemoryEntry `json:"entries"`
}

// Store persists remembered per-category decisions. The table is loaded
// lazily on first access and rewritten whole on every change (last-write-wins
// per the one-prompt-at-a-time host model).
type Store struct {
	path   string
	now    func() time.Time
	mu     sync.Mutex
	loaded bool
	data   fileData
}

// NewStore creates a permission store under <baseDir>/state/permissions.json.
func NewStore(baseDir string) *Store {
	return &Store{
		path: filepath.Join(baseDir, "state", "permissions.json"),
		now:  time.Now,
	}
}

// Get returns the remembered entry for a category. A hit bumps last-used and
// use-count and writes the table back; a failed stat write never hides the
// entry, since a remembered deny must hold even on a read-only disk.
func (s *Store) Get(category risk.Category) (MemoryEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return MemoryEntry{}, false, err
	}

	entry, ok := s.data.Entries[category]
	if !ok {
		return MemoryEntry{}, false, nil
	}

	entry.LastUsed = s.now().UTC()
	entry.UseCount++
	if err := s.saveLocked(); err != nil {
		slog.Warn("persist permission usage stats failed", "category", category, "error", err)
	}
	return *entry, true, nil
}

// Set creates or overwrites the entry for a category. Only always-allow and
// deny are persistable.
func (s *Store) Set(category risk.Category, decision DecisionKind) error {
	if decision != DecisionAlwaysAllow && decision != DecisionDeny {
		return fmt.Errorf("decision %q is not persistable", decision)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	now := s.now().UTC()
	s.data.Entries[category] = &MemoryEntry{
		Category:  category,
		Decision:  decision,
		CreatedAt: now,
		LastUsed:  now,
		UseCount:  1,
	}
	return s.saveLocked()
}

// Remove drops the entry for one category.
func (s *Store) Remove(category risk.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.data.Entries[category]; !ok {
		return nil
	}
	delete(s.data.Entries, category)
	return s.saveLocked()
}

// Clear drops every remembered decision.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.data = defaultFileData()
	return s.saveLocked()
}

// GetAll returns a copy of the remembered table without touching usage stats.
func (s *Store) GetAll() (map[risk.Category]MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	result := make(map[risk.Category]MemoryEntry, len(s.data.Entries))
	for category, entry := range s.data.Entries {
		result[category] = *entry
	}
	return result, nil
}

// GetStats summarizes the table for display.
func (s *Store) GetStats() (Stats, error) {
	entries, err := s.GetAll()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(entries)}
	for category, entry := range entries {
		stats.Categories = append(stats.Categories, category)
		switch entry.Decision {
		case DecisionAlwaysAllow:
			stats.AlwaysAllow++
		case DecisionDeny:
			stats.Deny++
		}
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		return stats.Categories[i] < stats.Categories[j]
	})
	return stats, nil
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = defaultFileData()
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read permission store: %w", err)
	}

	var parsed fileData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse permission store: %w", err)
	}
	if parsed.Version <= 0 {
		parsed.Version = storeVersion
	}
	if parsed.Entries == nil {
		parsed.Entries = make(map[risk.Category]*MemoryEntry)
	}

	s.data = parsed
	s.loaded = true
	return nil
}

func (s *Store) saveLocked() error {
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal permission store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), permissionsDirMod); err != nil {
		return fmt.Errorf("create permission store dir: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, "permissions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp permission store: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp permission store: %w", err)
	}
	if err := tmpFile.Chmod(permissionsFile); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp permission store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp permission store: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace permission store: %w", err)
	}
	return nil
}

func defaultFileData() fileData {
	return fileData{
		Version: storeVersion,
		Entries: make(map[risk.Category]*MemoryEntry),
	}
}
