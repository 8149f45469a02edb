package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestStore_CreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "main.go")
	writeFile(t, target, "package main\n")

	s := NewStore(dir)
	b, err := s.Create(target, "Before modify")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if b.ID == "" {
		t.Fatal("expected backup id")
	}

	writeFile(t, target, "package broken\n")

	if err := s.Restore(b.ID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(content) != "package main\n" {
		t.Fatalf("unexpected restored content %q", content)
	}
}

func TestStore_SnapshotIsSiblingFileNamedByID(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")
	writeFile(t, target, "a: 1\n")

	s := NewStore(dir)
	b, err := s.Create(target, "Before delete")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	snapshot := filepath.Join(dir, "backups", "config.yaml."+b.ID+".backup")
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("expected snapshot file at %s: %v", snapshot, err)
	}
}

func TestStore_BackupsAccumulateChronologically(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x.txt")
	writeFile(t, target, "v1")

	s := NewStore(dir)
	if _, err := s.Create(target, "first"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	writeFile(t, target, "v2")
	if _, err := s.Create(target, "second"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	backups, err := s.List(target)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	if backups[0].Timestamp.After(backups[1].Timestamp) {
		t.Fatal("backups must be chronological")
	}
}

func TestStore_RestoreUnknownIDIsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())

	err := s.Restore("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteToleratesMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "y.txt")
	writeFile(t, target, "data")

	s := NewStore(dir)
	b, err := s.Create(target, "r")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "backups", "y.txt."+b.ID+".backup")); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("delete must tolerate missing snapshot: %v", err)
	}
	if _, err := s.List(target); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	backups, _ := s.List(target)
	if len(backups) != 0 {
		t.Fatalf("expected record removed, got %d", len(backups))
	}
}

func TestStore_PruneOlderThan(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "z.txt")
	writeFile(t, target, "data")

	s := NewStore(dir)
	base := time.Now()
	s.now = func() time.Time { return base.Add(-48 * time.Hour) }
	if _, err := s.Create(target, "old"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	s.now = func() time.Time { return base }
	if _, err := s.Create(target, "fresh"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	count, err := s.PruneOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pruned, got %d", count)
	}

	backups, _ := s.List(target)
	if len(backups) != 1 || backups[0].Reason != "fresh" {
		t.Fatalf("unexpected survivors: %+v", backups)
	}
}

func TestStore_ListAllNewestFirst(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	s := NewStore(dir)
	base := time.Now()
	s.now = func() time.Time { return base.Add(-time.Hour) }
	if _, err := s.Create(a, "older"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	s.now = func() time.Time { return base }
	if _, err := s.Create(b, "newer"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	all, err := s.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2, got %d", len(all))
	}
	if all[0].Reason != "newer" {
		t.Fatalf("expected newest first, got %+v", all)
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "p.txt")
	writeFile(t, target, "v1")

	s1 := NewStore(dir)
	b, err := s1.Create(target, "r")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	writeFile(t, target, "v2")

	s2 := NewStore(dir)
	if err := s2.Restore(b.ID); err != nil {
		t.Fatalf("restore from fresh store failed: %v", err)
	}
	content, _ := os.ReadFile(target)
	if string(content) != "v1" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestStore_CreateMissingFileFails(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Create("/nonexistent/file.txt", "r"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
