package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveAll_plainTree(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ws")
	if err := os.MkdirAll(filepath.Join(target, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "a", "b", "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveAll(target); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target still exists")
	}
}

func TestRemoveAll_readOnlyFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ws")
	objects := filepath.Join(target, ".git", "objects")
	if err := os.MkdirAll(objects, 0755); err != nil {
		t.Fatal(err)
	}
	obj := filepath.Join(objects, "pack.idx")
	if err := os.WriteFile(obj, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(obj, 0444); err != nil {
		t.Fatal(err)
	}

	if err := RemoveAll(target); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target still exists")
	}
}

func TestRemoveAll_missingPathIsNoop(t *testing.T) {
	if err := RemoveAll(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("RemoveAll on a missing path should succeed: %v", err)
	}
}
