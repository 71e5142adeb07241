package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectBasic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.txt"), "hello\n")
	writeFile(t, filepath.Join(dir, "sub", "nested.txt"), "nested\n")

	m, err := Collect([]Input{{Path: dir, Recursive: true}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 {
		t.Fatalf("len(m) = %d, want 2: %+v", len(m), m)
	}
	if m[0].LogicalPath != "readme.txt" {
		t.Errorf("m[0].LogicalPath = %q, want readme.txt", m[0].LogicalPath)
	}
	if m[1].LogicalPath != "sub/nested.txt" {
		t.Errorf("m[1].LogicalPath = %q, want sub/nested.txt", m[1].LogicalPath)
	}
}

func TestCollectPreserveStructure(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "payload")
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	m, err := Collect([]Input{{Path: root, PreserveStructure: true}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m[0].LogicalPath != "payload/a.txt" {
		t.Fatalf("m = %+v, want single entry payload/a.txt", m)
	}
}

func TestCollectExclusion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.txt"), "k")
	writeFile(t, filepath.Join(dir, "drop.tmp"), "d")
	writeFile(t, filepath.Join(dir, "cache", "x.bin"), "x")

	m, err := Collect([]Input{{Path: dir, Recursive: true}}, []string{"*.tmp", "cache/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m[0].LogicalPath != "keep.txt" {
		t.Fatalf("m = %+v, want only keep.txt", m)
	}
}

func TestCollectExcludeAllYieldsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "b.txt"), "b")

	m, err := Collect([]Input{{Path: dir, Recursive: true}}, []string{"**/*"})
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 0 {
		t.Fatalf("len(m) = %d, want 0", len(m))
	}
}

func TestCollectDuplicateLogicalPath(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writeFile(t, filepath.Join(dir1, "same.txt"), "1")
	writeFile(t, filepath.Join(dir2, "same.txt"), "2")

	_, err := Collect([]Input{
		{Path: dir1, Recursive: true},
		{Path: dir2, Recursive: true},
	}, nil)
	if err == nil {
		t.Fatal("Collect() = nil error, want ErrDuplicateLogicalPath")
	}
	if _, ok := err.(*ErrDuplicateLogicalPath); !ok {
		t.Fatalf("err = %T, want *ErrDuplicateLogicalPath", err)
	}
}

func TestCollectDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.txt"), "z")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "m", "n.txt"), "n")

	m1, err := Collect([]Input{{Path: dir, Recursive: true}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Collect([]Input{{Path: dir, Recursive: true}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m1) != len(m2) {
		t.Fatalf("len mismatch: %d vs %d", len(m1), len(m2))
	}
	for i := range m1 {
		if m1[i].LogicalPath != m2[i].LogicalPath {
			t.Errorf("order not deterministic at %d: %q vs %q", i, m1[i].LogicalPath, m2[i].LogicalPath)
		}
	}
}
