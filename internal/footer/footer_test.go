package footer

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := Footer{
		HeaderOffset:  1000,
		HeaderLen:     42,
		PayloadOffset: 1000 + 8 + 42,
		PayloadSize:   12345,
		PayloadSHA256: [32]byte{1, 2, 3, 4},
	}
	b, err := Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != Size {
		t.Fatalf("len(b) = %d, want %d", len(b), Size)
	}
	if !bytes.Equal(b[:8], []byte(Magic)) {
		t.Errorf("magic = %q, want %q", b[:8], Magic)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Decode(Encode(f)) = %+v, want %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsInconsistentOffsets(t *testing.T) {
	f := Footer{HeaderOffset: 100, HeaderLen: 10, PayloadOffset: 999}
	if err := f.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error")
	}
}

func TestReadAtAndHasMagic(t *testing.T) {
	want := Footer{HeaderOffset: 7, HeaderLen: 3, PayloadOffset: 18, PayloadSize: 5}
	enc, err := Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	file := append([]byte("STUBBYTES"), enc...)

	got, err := ReadAt(bytes.NewReader(file), int64(len(file)))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("ReadAt() = %+v, want %+v", got, want)
	}

	if HasMagic([]byte("notamagic")) {
		t.Errorf("HasMagic() = true for non-matching bytes")
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, err := Decode([]byte("short")); err == nil {
		t.Fatal("Decode() = nil error, want error for short input")
	}
}
