package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystemReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	if err := m.WriteFile("out/report.csv", []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := m.ReadFile("out/report.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("ReadFile = %q, want %q", data, "a,b\n")
	}

	if _, err := m.ReadFile("out/missing.csv"); err == nil {
		t.Error("ReadFile of missing file should error")
	}
}

func TestMemoryFileSystemCreate(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("clip_000.json")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte(`{"frames":[]}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := m.ReadFile("clip_000.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"frames":[]}` {
		t.Errorf("content = %q", data)
	}
}

func TestMemoryFileSystemGlobSorted(t *testing.T) {
	m := NewMemoryFileSystem()
	for _, name := range []string{"clips/clip_002.json", "clips/clip_000.json", "clips/clip_001.json", "clips/readme.txt"} {
		if err := m.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}

	names, err := m.Glob("clips/clip_*.json")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}

	want := []string{"clips/clip_000.json", "clips/clip_001.json", "clips/clip_002.json"}
	if len(names) != len(want) {
		t.Fatalf("Glob returned %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Glob[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestMemoryFileSystemExists(t *testing.T) {
	m := NewMemoryFileSystem()

	if m.Exists("nope") {
		t.Error("Exists on empty filesystem should be false")
	}

	if err := m.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		if !m.Exists(dir) {
			t.Errorf("Exists(%q) should be true after MkdirAll", dir)
		}
	}
}

func TestOSFileSystemGlobSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"clip_001.json", "clip_000.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	names, err := OSFileSystem{}.Glob(filepath.Join(dir, "clip_*.json"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(names) != 2 || filepath.Base(names[0]) != "clip_000.json" {
		t.Errorf("Glob = %v, want sorted clip files", names)
	}
}
