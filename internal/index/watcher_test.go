package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/dailylog/internal/models"
	"github.com/starford/dailylog/internal/storage"
)

// watcherTestEnv sets up a vault dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store, testDB(t)
}

// recorder collects the events delivered to a handler.
type recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recorder) handle(_ context.Context, ev models.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) has(path string, kind models.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Path == path && ev.Kind == kind {
			return true
		}
	}
	return false
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Path == path {
			n++
		}
	}
	return n
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatch(t *testing.T, vaultDir string, store storage.Provider, db *DB, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Watch(ctx, db, store, vaultDir, quietLogger(), rec.handle)
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileReportedAsCreated(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("new.md", models.KindCreated)
	}, "expected created event for new.md")

	cs, _ := db.GetChecksum("new.md")
	if cs == "" {
		t.Error("new file not tracked")
	}
}

func TestWatcher_KnownFileReportedAsModified(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("v1"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("v2"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("old.md", models.KindModified)
	}, "expected modified event for old.md")
	if rec.has("old.md", models.KindCreated) {
		t.Error("known file must not be reported as created")
	}
}

func TestWatcher_UnchangedWriteIgnored(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "same.md"), []byte("same"), 0o644)
	_ = Sync(db, store, quietLogger())

	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	// An atomic save (temp file + rename) with identical content.
	_ = store.Write("same.md", []byte("same"))
	_ = os.WriteFile(filepath.Join(vaultDir, "marker.md"), []byte("m"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("marker.md", models.KindCreated)
	}, "marker event not delivered")
	if n := rec.count("same.md"); n != 0 {
		t.Errorf("unchanged write produced %d events", n)
	}
}

func TestWatcher_NewDirScanned(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("subdir/deep.md", models.KindCreated)
	}, "file in new subdir not reported")
}

func TestWatcher_HiddenDirsIgnored(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.MkdirAll(filepath.Join(vaultDir, ".obsidian"), 0o755)
	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	_ = os.WriteFile(filepath.Join(vaultDir, ".obsidian", "workspace.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "visible.md"), []byte("y"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("visible.md", models.KindCreated)
	}, "visible file not reported")
	if n := rec.count(".obsidian/workspace.md"); n != 0 {
		t.Errorf("hidden file produced %d events", n)
	}
}

func TestWatcher_DeleteForgetsFile(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	_ = Sync(db, store, quietLogger())

	cs, _ := db.GetChecksum("del.md")
	if cs == "" {
		t.Fatal("precondition: file should be tracked")
	}

	startWatch(t, vaultDir, store, db, &recorder{})
	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == ""
	}, "deleted file still tracked")
}

func TestWatcher_RenameReportsNewPath(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644)
	_ = Sync(db, store, quietLogger())

	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be forgotten and new path tracked")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("renamed.md", models.KindCreated)
	}, "expected created event for renamed.md")
}

func TestWatcher_BackupRenameSaveReportedAsModified(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	p := filepath.Join(vaultDir, "old.md")
	_ = os.WriteFile(p, []byte("v1"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	startWatch(t, vaultDir, store, db, rec)

	// Move the original aside, write the new content, drop the backup.
	if err := os.Rename(p, p+"~"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(p + "~")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("old.md", models.KindModified)
	}, "expected modified event for old.md")

	// Let the rename debounce pass run before checking for stray events.
	time.Sleep(2 * renameDebounce)
	if rec.has("old.md", models.KindCreated) {
		t.Error("edited note must not be reported as created")
	}
	if cs, _ := db.GetChecksum("old.md"); cs == "" {
		t.Error("old.md should still be tracked")
	}
}

func TestSync_RecordsModTime(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	p := filepath.Join(vaultDir, "dated.md")
	_ = os.WriteFile(p, []byte("# Dated"), 0o644)
	mtime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	var got time.Time
	if err := db.conn.QueryRow(`SELECT updated_at FROM files WHERE path = ?`, "dated.md").Scan(&got); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !got.Equal(mtime) {
		t.Errorf("updated_at = %v, want %v", got, mtime)
	}
}

func TestSync_RemovesStale(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = db.UpsertFile(FileRow{Path: "gone.md", Checksum: "x"})
	_ = os.WriteFile(filepath.Join(vaultDir, "here.md"), []byte("here"), 0o644)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	all, _ := db.AllChecksums()
	if _, ok := all["gone.md"]; ok {
		t.Error("stale row not removed")
	}
	if _, ok := all["here.md"]; !ok {
		t.Error("existing file not tracked")
	}
}
