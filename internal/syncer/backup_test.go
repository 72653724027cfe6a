package syncer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

func TestBackupSaveListRestore(t *testing.T) {
	base := t.TempDir()
	origin := filepath.Join(base, "target", "settings.json")
	if err := os.MkdirAll(filepath.Dir(origin), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(origin, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := NewBackupManager(filepath.Join(base, "backups"), 5)
	run, err := mgr.Begin(model.Gemini)
	if err != nil {
		t.Fatal(err)
	}
	if err := run.Save("settings.json", origin); err != nil {
		t.Fatal(err)
	}
	if err := run.Commit(); err != nil {
		t.Fatal(err)
	}

	infos, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].ID != run.ID() || infos[0].Files != 1 {
		t.Fatalf("List() = %+v", infos)
	}

	// Clobber and restore.
	if err := os.WriteFile(origin, []byte("clobbered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Restore(run.ID()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(origin)
	if string(data) != "original" {
		t.Errorf("restored content = %q", data)
	}
}

func TestBackupEmptyRunLeavesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	mgr := NewBackupManager(dir, 5)

	run, err := mgr.Begin(model.Codex)
	if err != nil {
		t.Fatal(err)
	}
	// Saving a missing origin is a no-op.
	if err := run.Save("nope.toml", filepath.Join(dir, "missing")); err != nil {
		t.Fatal(err)
	}
	if !run.Empty() {
		t.Error("run should be empty")
	}
	if err := run.Commit(); err != nil {
		t.Fatal(err)
	}

	infos, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("empty runs must not be listed: %+v", infos)
	}
}

func TestBackupPrune(t *testing.T) {
	base := t.TempDir()
	origin := filepath.Join(base, "file.txt")
	if err := os.WriteFile(origin, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := NewBackupManager(filepath.Join(base, "backups"), 2)
	for range 4 {
		run, err := mgr.Begin(model.Gemini)
		if err != nil {
			t.Fatal(err)
		}
		if err := run.Save("file.txt", origin); err != nil {
			t.Fatal(err)
		}
		if err := run.Commit(); err != nil {
			t.Fatal(err)
		}
	}

	if err := mgr.Prune(); err != nil {
		t.Fatal(err)
	}
	infos, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Errorf("got %d backups after prune, want 2", len(infos))
	}
}

func TestLoadStateMissingIsEmpty(t *testing.T) {
	state, err := LoadState(t.TempDir(), model.Gemini)
	if err != nil {
		t.Fatal(err)
	}
	if state.Target != model.Gemini || len(state.Entries) != 0 {
		t.Errorf("state = %+v", state)
	}
}

func TestLoadStateCorruptIsFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state-gemini.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(dir, model.Gemini); !syncerr.IsFatal(err) {
		t.Errorf("corrupt state should be a config error, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	state := NewSyncState(model.Codex)
	state.Run = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	state.Entries["config.toml"] = hashBytes([]byte("content"))

	if err := SaveState(dir, state); err != nil {
		t.Fatal(err)
	}
	back, err := LoadState(dir, model.Codex)
	if err != nil {
		t.Fatal(err)
	}
	if back.Run != state.Run || back.Entries["config.toml"] != state.Entries["config.toml"] {
		t.Errorf("round trip = %+v", back)
	}
}
