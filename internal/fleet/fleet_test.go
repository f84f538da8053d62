package fleet

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vigialabs/vigia/internal/apperr"
	"github.com/vigialabs/vigia/internal/monitor"
	"github.com/vigialabs/vigia/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFleet(t *testing.T, publish PublishFunc) *Fleet {
	t.Helper()
	f := New(testutil.TestRegistry(t), discardLogger(), publish)
	t.Cleanup(f.StopAll)
	return f
}

func TestAddStartsMonitor(t *testing.T) {
	f := newTestFleet(t, nil)
	root := testutil.TestRoot(t, nil)

	added, err := f.Add(root)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Error("first add should report new")
	}
	if _, ok := f.Get(root); !ok {
		t.Fatal("monitor not registered")
	}

	list := f.List()
	if len(list) != 1 || list[0].Path != root || !list[0].Running {
		t.Errorf("list = %+v", list)
	}
}

func TestAddExistingIsNoError(t *testing.T) {
	f := newTestFleet(t, nil)
	root := testutil.TestRoot(t, nil)

	if _, err := f.Add(root); err != nil {
		t.Fatal(err)
	}
	added, err := f.Add(root)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if added {
		t.Error("second add should not report new")
	}
	if len(f.List()) != 1 {
		t.Error("duplicate monitor registered")
	}
}

func TestAddRejectsMissingDir(t *testing.T) {
	f := newTestFleet(t, nil)
	if _, err := f.Add("/nonexistent/vigia/folder"); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestRemove(t *testing.T) {
	f := newTestFleet(t, nil)
	root := testutil.TestRoot(t, nil)
	if _, err := f.Add(root); err != nil {
		t.Fatal(err)
	}

	if err := f.Remove(root); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := f.Get(root); ok {
		t.Error("monitor still registered after remove")
	}

	if err := f.Remove(root); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
}

func TestLoadPersisted(t *testing.T) {
	reg := testutil.TestRegistry(t)
	root := testutil.TestRoot(t, nil)
	vanished := testutil.TestRoot(t, nil)

	if _, err := reg.Add(root); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add(vanished); err != nil {
		t.Fatal(err)
	}
	// t.TempDir cleanup has not run yet, so drop the folder by hand.
	if err := os.RemoveAll(vanished); err != nil {
		t.Fatal(err)
	}

	f := New(reg, discardLogger(), nil)
	t.Cleanup(f.StopAll)

	if err := f.LoadPersisted(); err != nil {
		t.Fatalf("LoadPersisted: %v", err)
	}
	if _, ok := f.Get(root); !ok {
		t.Error("persisted folder not started")
	}
	if _, ok := f.Get(vanished); ok {
		t.Error("vanished folder started")
	}

	folders, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0].Path != root {
		t.Errorf("registry after load = %+v", folders)
	}
}

func TestNotificationsForwardedToPublish(t *testing.T) {
	var (
		mu  sync.Mutex
		got []monitor.Notification
	)
	f := newTestFleet(t, func(n monitor.Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	root := testutil.TestRoot(t, nil)
	if _, err := f.Add(root); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, root, "f.txt", "x")

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range got {
			if n.Root == root && n.Path == "f.txt" {
				return true
			}
		}
		return false
	}, "notification never reached publish func")
}

func TestStopAllWaitsForDrains(t *testing.T) {
	f := newTestFleet(t, nil)
	for range 3 {
		if _, err := f.Add(testutil.TestRoot(t, nil)); err != nil {
			t.Fatal(err)
		}
	}

	f.StopAll()
	if n := len(f.List()); n != 0 {
		t.Errorf("%d monitors remain after StopAll", n)
	}
}
