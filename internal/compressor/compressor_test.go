package compressor

import (
	"bytes"
	"io"
	"testing"
)

func TestZstdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c, algo, sink, err := New(Zstd, 3, false, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if algo != Zstd {
		t.Fatalf("algoUsed = %v, want Zstd", algo)
	}
	content := []byte("hello\n")
	if err := c.WriteEntry("readme.txt", uint64(len(content)), bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	if err := c.Finish(); err != nil {
		t.Fatal(err)
	}
	if sink.Count() != int64(buf.Len()) {
		t.Errorf("sink.Count() = %d, want %d (bytes actually written to sink)", sink.Count(), buf.Len())
	}

	dec, err := NewZstdDecoder(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	path, size, err := ReadRecord(dec)
	if err != nil {
		t.Fatal(err)
	}
	if path != "readme.txt" || size != uint64(len(content)) {
		t.Fatalf("ReadRecord() = (%q, %d), want (readme.txt, %d)", path, size, len(content))
	}
	got := make([]byte, size)
	if _, err := io.ReadFull(dec, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("decoded content = %q, want %q", got, content)
	}
	if _, _, err := ReadRecord(dec); err != io.EOF {
		t.Errorf("ReadRecord() at end = %v, want io.EOF", err)
	}
}

func TestZipFallback(t *testing.T) {
	var buf bytes.Buffer
	c, algo, _, err := New(Zip, 0, false, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if algo != Zip {
		t.Fatalf("algoUsed = %v, want Zip", algo)
	}
	content := []byte("hello\n")
	if err := c.WriteEntry("readme.txt", uint64(len(content)), bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	if err := c.Finish(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("zip output is empty")
	}
}
