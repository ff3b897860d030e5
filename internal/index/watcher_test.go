package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/aegis/internal/vault"
)

// watcherTestEnv sets up a vault dir, vault service, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *vault.Service, *DB) {
	t.Helper()
	svc, err := vault.New()
	require.NoError(t, err)
	return t.TempDir(), svc, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func indexed(db *DB, rel string) func() bool {
	return func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}
}

func startWatch(t *testing.T, db *DB, svc *vault.Service, root string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, svc, root, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestSync(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	logger := quietLogger()
	writeNote(t, root, "a.md", "# A\n- [ ] task\n[[sub/b]]")
	writeNote(t, root, "sub/b.md", "# B")
	writeNote(t, root, "img.png", "png")
	writeNote(t, root, ".obsidian/hidden.md", "x")

	report, err := Sync(db, svc, root, logger)
	require.NoError(t, err)
	assert.Len(t, report.Created, 2)

	n, err := db.GetNote("a.md")
	require.NoError(t, err)
	assert.Equal(t, "A", n.Title)

	bl, err := db.Backlinks("sub/b.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, bl)

	acts, err := db.ListActions(ActionFilter{})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, 2, acts[0].Line)

	again, err := Sync(db, svc, root, logger)
	require.NoError(t, err)
	assert.Empty(t, again.Created, "second sync should be a no-op")
	assert.Empty(t, again.Updated)
	assert.Empty(t, again.Removed)

	writeNote(t, root, "a.md", "# A2")
	require.NoError(t, os.Remove(filepath.Join(root, "sub", "b.md")))
	third, err := Sync(db, svc, root, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, third.Updated)
	assert.Equal(t, []string{"sub/b.md"}, third.Removed)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, svc, db := watcherTestEnv(t)

	var mu sync.Mutex
	var events []string
	startWatch(t, db, svc, root, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	writeNote(t, root, "new.md", "# New")

	assert.Eventually(t, indexed(db, "new.md"), 5*time.Second, 50*time.Millisecond,
		"new file not indexed by watcher")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(events, "created:new.md")
	}, 2*time.Second, 50*time.Millisecond, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	startWatch(t, db, svc, root, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "subdir"), 0o755))
	time.Sleep(100 * time.Millisecond)

	writeNote(t, root, "subdir/deep.md", "# Deep")

	assert.Eventually(t, indexed(db, "subdir/deep.md"), 5*time.Second, 50*time.Millisecond,
		"file in new subdir not indexed by watcher")
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	startWatch(t, db, svc, root, nil)

	writeNote(t, root, ".draft.md", "# Hidden")
	writeNote(t, root, "seen.md", "# Seen")

	assert.Eventually(t, indexed(db, "seen.md"), 5*time.Second, 50*time.Millisecond,
		"visible file not indexed")
	assert.False(t, indexed(db, ".draft.md")(), "hidden file should not be indexed")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	writeNote(t, root, "del.md", "# Delete Me")
	_, err := Sync(db, svc, root, quietLogger())
	require.NoError(t, err)
	require.True(t, indexed(db, "del.md")(), "precondition: file should be indexed")

	startWatch(t, db, svc, root, nil)
	require.NoError(t, os.Remove(filepath.Join(root, "del.md")))

	assert.Eventually(t, func() bool { return !indexed(db, "del.md")() },
		5*time.Second, 50*time.Millisecond, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	writeNote(t, root, "old.md", "# Rename")
	_, err := Sync(db, svc, root, quietLogger())
	require.NoError(t, err)

	startWatch(t, db, svc, root, nil)
	require.NoError(t, os.Rename(filepath.Join(root, "old.md"), filepath.Join(root, "renamed.md")))

	assert.Eventually(t, func() bool {
		return !indexed(db, "old.md")() && indexed(db, "renamed.md")()
	}, 5*time.Second, 50*time.Millisecond,
		"rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_FolderRemovalReconciles(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	writeNote(t, root, "gone/x.md", "# X")
	_, err := Sync(db, svc, root, quietLogger())
	require.NoError(t, err)

	startWatch(t, db, svc, root, nil)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "gone")))

	assert.Eventually(t, func() bool { return !indexed(db, "gone/x.md")() },
		5*time.Second, 50*time.Millisecond, "notes of a removed folder still in index")
}
