package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterIndexFreshThenReopened(t *testing.T) {
	vs, err := NewVersionedStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewVersionedStore: %v", err)
	}

	outcome, err := vs.RegisterIndex("words", 1, false)
	if err != nil {
		t.Fatalf("RegisterIndex: %v", err)
	}
	if outcome != Fresh {
		t.Fatalf("expected Fresh, got %v", outcome)
	}

	outcome, err = vs.RegisterIndex("words", 1, false)
	if err != nil {
		t.Fatalf("RegisterIndex reopen: %v", err)
	}
	if outcome != Reopened {
		t.Fatalf("expected Reopened, got %v", outcome)
	}
}

func TestRegisterIndexRebuildsOnVersionBump(t *testing.T) {
	vs, _ := NewVersionedStore(t.TempDir())
	vs.RegisterIndex("words", 1, false)

	outcome, err := vs.RegisterIndex("words", 2, false)
	if err != nil {
		t.Fatalf("RegisterIndex: %v", err)
	}
	if outcome != Rebuilt {
		t.Fatalf("expected Rebuilt on version bump, got %v", outcome)
	}
}

func TestRegisterIndexRebuildsWhenMarkedCorrupt(t *testing.T) {
	vs, _ := NewVersionedStore(t.TempDir())
	vs.RegisterIndex("words", 1, false)

	if err := vs.MarkCorrupt("words"); err != nil {
		t.Fatalf("MarkCorrupt: %v", err)
	}

	outcome, err := vs.RegisterIndex("words", 1, false)
	if err != nil {
		t.Fatalf("RegisterIndex: %v", err)
	}
	if outcome != Rebuilt {
		t.Fatalf("expected Rebuilt after MarkCorrupt, got %v", outcome)
	}
}

func TestRegisterIndexRebuildsWhenCallerReportsCorruption(t *testing.T) {
	vs, _ := NewVersionedStore(t.TempDir())
	vs.RegisterIndex("words", 1, false)

	outcome, err := vs.RegisterIndex("words", 1, true)
	if err != nil {
		t.Fatalf("RegisterIndex: %v", err)
	}
	if outcome != Rebuilt {
		t.Fatalf("expected Rebuilt when corrupted=true, got %v", outcome)
	}
}

func TestSyncRegisteredNamesPrunesStaleDirectories(t *testing.T) {
	dir := t.TempDir()
	vs, _ := NewVersionedStore(dir)

	vs.RegisterIndex("words", 1, false)
	vs.RegisterIndex("symbols", 1, false)

	if err := vs.SyncRegisteredNames([]string{"words", "symbols"}); err != nil {
		t.Fatalf("SyncRegisteredNames: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "symbols")); err != nil {
		t.Fatalf("expected symbols dir to survive first sync: %v", err)
	}

	if err := vs.SyncRegisteredNames([]string{"words"}); err != nil {
		t.Fatalf("SyncRegisteredNames: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "symbols")); !os.IsNotExist(err) {
		t.Fatalf("expected symbols dir to be pruned, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "words")); err != nil {
		t.Fatalf("expected words dir to survive: %v", err)
	}
}

func TestWorkInProgressMarker(t *testing.T) {
	dir := t.TempDir()
	m := NewWorkInProgressMarker(dir)

	if m.Present() {
		t.Fatal("expected marker absent initially")
	}
	if err := m.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !m.Present() {
		t.Fatal("expected marker present after Create")
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if m.Present() {
		t.Fatal("expected marker absent after Clear")
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear on already-absent marker should not error: %v", err)
	}
}
