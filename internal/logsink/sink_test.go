package logsink

import (
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenWritesPlaintextLog(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	s.Println("starting install")
	s.Println("extraction complete")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ioutil.ReadFile(filepath.Join(dir, "install.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "starting install") || !strings.Contains(string(got), "extraction complete") {
		t.Fatalf("install.log missing expected lines: %s", got)
	}
}

func TestRotateProducesReadableGzip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	s.Println("hello from the install log")
	if err := s.Rotate(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "install.log.gz"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gr.Close()
	content, err := ioutil.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "hello from the install log") {
		t.Fatalf("decompressed log missing expected content: %s", content)
	}

	if _, err := os.Stat(filepath.Join(dir, "install.log")); err != nil {
		t.Fatalf("plaintext install.log should still exist alongside the .gz copy: %v", err)
	}
}
