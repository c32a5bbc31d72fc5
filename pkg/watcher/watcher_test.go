package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startWatcher(t *testing.T, path string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitChanged(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case <-w.Changed():
	case <-time.After(within):
		t.Fatal("timeout waiting for change notification")
	}
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(80 * time.Millisecond)
	if called.Load() {
		t.Error("cancelled callback ran")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestWatcher_DetectsElementsFileChange(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	var changes atomic.Int32
	w := startWatcher(t, path,
		WithDebounce(30*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`[{"data":{"id":"a"}}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, w, 2*time.Second)
	if changes.Load() == 0 {
		t.Error("OnChange was not called")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	w := startWatcher(t, path, WithDebounce(20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
		t.Error("unrelated file triggered a change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := writeSource(t, "elements.yaml", "[]\n")
	w := startWatcher(t, path,
		WithDebounce(20*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
	)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("- data: {id: a}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, w, 2*time.Second)
}

func TestWatcher_SidecarChange(t *testing.T) {
	path := writeSource(t, "graph.db", "db")
	w := startWatcher(t, path,
		WithSidecars("-wal"),
		WithDebounce(20*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
	)
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path+"-wal", []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, w, 2*time.Second)
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	var (
		mu  sync.Mutex
		got error
	)
	startWatcher(t, path,
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			mu.Lock()
			got = err
			mu.Unlock()
		}),
	)
	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(got, ErrFileRemoved) {
		t.Errorf("expected ErrFileRemoved, got %v", got)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("started before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("still started after Stop")
	}
	w.Stop()

	if err := w.Start(context.Background()); err != nil {
		t.Errorf("restart after Stop: %v", err)
	}
	w.Stop()
}

func TestWatcher_ContextCancelStopsPolling(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(path, WithForcePoll(true), WithPollInterval(20*time.Millisecond), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	cancel()
	time.Sleep(50 * time.Millisecond)

	os.WriteFile(path, []byte(`[{"data":{"id":"late"}}]`), 0o644)
	select {
	case <-w.Changed():
		t.Error("change reported after the context was cancelled")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_ForcePollEnv(t *testing.T) {
	t.Setenv(ForcePollEnv, "yes")
	w := startWatcher(t, writeSource(t, "elements.json", `[]`))
	if !w.IsPolling() {
		t.Fatalf("expected polling when %s is set", ForcePollEnv)
	}
}

func TestWatcher_RemoteFilesystemPolls(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, writeSource(t, "elements.json", `[]`))
	if !w.IsPolling() {
		t.Fatal("expected polling on a remote filesystem")
	}
	if w.FilesystemType() != FSTypeNFS {
		t.Errorf("FilesystemType = %v", w.FilesystemType())
	}
}

func TestWatcher_Accessors(t *testing.T) {
	path := writeSource(t, "elements.json", `[]`)
	w, err := New(path, WithPollInterval(700*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("Path = %s, want %s", w.Path(), abs)
	}
	if w.PollInterval() != 700*time.Millisecond {
		t.Errorf("PollInterval = %v", w.PollInterval())
	}
	if d, _ := New(path, WithPollInterval(0)); d.PollInterval() != DefaultPollInterval {
		t.Errorf("non-positive interval should keep the default, got %v", d.PollInterval())
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := map[FilesystemType]string{
		FSTypeUnknown:      "unknown",
		FSTypeLocal:        "local",
		FSTypeNFS:          "nfs",
		FSTypeSMB:          "smb",
		FSTypeSSHFS:        "sshfs",
		FSTypeFUSE:         "fuse",
		FilesystemType(42): "unknown",
	}
	for ft, want := range tests {
		if got := ft.String(); got != want {
			t.Errorf("FilesystemType(%d).String() = %q, want %q", int(ft), got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	for value, want := range map[string]bool{
		"1": true, "true": true, "TRUE": true, "yes": true, "Y": true, " on ": true,
		"0": false, "false": false, "no": false, "": false, "maybe": false,
	} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("GCV_TEST_BOOL", value)
			if got := envBool("GCV_TEST_BOOL"); got != want {
				t.Errorf("envBool(%q) = %v, want %v", value, got, want)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("empty path = %v", got)
	}
	var probed string
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(p string) FilesystemType { probed = p; return FSTypeLocal }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	dir := t.TempDir()
	if got := DetectFilesystemType(filepath.Join(dir, "missing", "elements.json")); got != FSTypeLocal {
		t.Errorf("got %v", got)
	}
	if probed != dir {
		t.Errorf("expected the nearest existing ancestor %s to be probed, got %s", dir, probed)
	}
}
