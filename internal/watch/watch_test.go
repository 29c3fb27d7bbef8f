package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pivot.db")
	if err := os.WriteFile(path, []byte("v0"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a change after writing the file")
	}
	select {
	case <-w.Changes():
		t.Error("Expected the burst to be reported once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_JournalCounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pivot.db")

	w, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path+"-wal", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a WAL write to count as a change")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pivot.db")

	w, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changes():
		t.Error("Expected unrelated files to be ignored")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "pivot.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Expected a clean close, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Expected a second close to be a no-op, got %v", err)
	}
}
