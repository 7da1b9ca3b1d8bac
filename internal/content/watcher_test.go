package content

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

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

func TestWatcher_NewFileLoaded(t *testing.T) {
	dir, lib := testLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, lib, quietLogger(), func(kind, file string) {
		mu.Lock()
		events = append(events, kind+":"+file)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "new.html", "---\nid: 3\n---\n<p>new</p>")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := lib.LookupPath("/new/")
		return ok
	}, "new file not loaded by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.html" || e == "updated:new.html" {
				return true
			}
		}
		return false
	}, "expected callback for new.html")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, lib := testLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, lib, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	time.Sleep(300 * time.Millisecond)
	writeFile(t, dir, "sub/deep.md", "---\nid: 4\n---\n# Deep")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := lib.LookupPath("/sub/deep/")
		return ok
	}, "file in new subdir not loaded")
}

func TestWatcher_DeleteRemoves(t *testing.T) {
	dir, lib := testLibrary(t)
	writeFile(t, dir, "del.html", "---\nid: 5\n---\nx")
	_ = lib.Sync()
	if _, ok := lib.LookupPath("/del/"); !ok {
		t.Fatal("precondition: file should be loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, lib, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "del.html"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := lib.LookupPath("/del/")
		return !ok
	}, "deleted file still loaded")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, lib := testLibrary(t)
	writeFile(t, dir, "old.html", "---\nid: 6\n---\nx")
	_ = lib.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, lib, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "old.html"), filepath.Join(dir, "renamed.html"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, oldOK := lib.LookupPath("/old/")
		_, newOK := lib.LookupPath("/renamed/")
		return !oldOK && newOK
	}, "rename reconciliation failed")
}
