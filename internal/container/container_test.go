package container

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
	"time"

	"github.com/orcaman/writerseeker"

	"github.com/inspa-build/inspa/internal/compressor"
	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/manifest"
)

func testConfig() *config.Config {
	return &config.Config{
		SchemaVersion: config.CurrentSchemaVersion,
		Product:       config.Product{Name: "Acme Widget", Version: "1.0.0"},
		Install:       config.Install{DefaultPath: `C:\Users\x\AppData\Local\Acme`},
		Compression:   config.Compression{Algo: config.AlgoZstd, Level: 3, FallbackToZip: true},
		Inputs:        []config.InputSpec{{Path: "readme.txt"}},
	}
}

func testManifest() manifest.Manifest {
	return manifest.Manifest{
		{LogicalPath: "readme.txt", SourcePath: "readme.txt", Size: 6, MTime: 1000},
	}
}

func openSource(files map[string][]byte) OpenSourceFunc {
	return func(sourcePath string) (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(files[sourcePath])), nil
	}
}

func TestBuildAndOpenRoundTrip(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	m := testManifest()
	files := map[string][]byte{"readme.txt": []byte("hello\n")}

	var ws writerseeker.WriterSeeker
	stub := bytes.NewReader([]byte("MZ-fake-stub-bytes"))
	result, err := Build(&ws, stub, cfg, m, openSource(files), time.Unix(1700000000, 0))
	if err != nil {
		t.Fatal(err)
	}
	if result.AlgoUsed != compressor.Zstd {
		t.Fatalf("AlgoUsed = %v, want zstd", result.AlgoUsed)
	}

	built := ws.BytesReader()
	full, err := ioutil.ReadAll(built)
	if err != nil {
		t.Fatal(err)
	}

	tmp := t.TempDir() + "/installer.exe"
	if err := ioutil.WriteFile(tmp, full, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := Open(tmp)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.Legacy {
		t.Fatal("Legacy = true for a freshly built container")
	}
	if c.Header.Product.Name != "Acme Widget" {
		t.Fatalf("Product.Name = %q", c.Header.Product.Name)
	}
	if len(c.Header.Files) != 1 || c.Header.Files[0].Path != "readme.txt" {
		t.Fatalf("Files = %+v", c.Header.Files)
	}
	wantHash := hexEncode(result.Footer.PayloadSHA256)
	if c.Header.Hash.Archive != wantHash {
		t.Fatalf("header.hash.archive = %s, want %s (placeholder not patched?)", c.Header.Hash.Archive, wantHash)
	}

	if err := c.Verify(); err != nil {
		t.Fatalf("Verify() = %v", err)
	}

	records, err := c.Records()
	if err != nil {
		t.Fatal(err)
	}
	path, size, err := compressor.ReadRecord(records)
	if err != nil {
		t.Fatal(err)
	}
	if path != "readme.txt" || size != 6 {
		t.Fatalf("ReadRecord() = (%q, %d)", path, size)
	}
	content := make([]byte, size)
	if _, err := io.ReadFull(records, content); err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello\n" {
		t.Fatalf("content = %q", content)
	}
}

func TestBuildDetectsTamperedPayload(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	m := testManifest()
	files := map[string][]byte{"readme.txt": []byte("hello\n")}

	var ws writerseeker.WriterSeeker
	stub := bytes.NewReader([]byte("MZ-fake-stub-bytes"))
	result, err := Build(&ws, stub, cfg, m, openSource(files), time.Unix(1700000000, 0))
	if err != nil {
		t.Fatal(err)
	}

	full, err := ioutil.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatal(err)
	}
	tamperOffset := result.Footer.PayloadOffset + 10
	full[tamperOffset] ^= 0xFF

	tmp := t.TempDir() + "/installer.exe"
	if err := ioutil.WriteFile(tmp, full, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := Open(tmp)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Verify(); err == nil {
		t.Fatal("Verify() = nil for a tampered payload, want an error")
	}
}

func hexEncode(b [32]byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0xF]
	}
	return string(out)
}
