// Package header implements the Header Codec (spec.md §3.4, §4.4): the
// JSON metadata block describing product, UI text, compression, the file
// manifest, scripts, and environment actions. Like the teacher's own JSON
// use for Go-module metadata (internal/build/build.go's
// downloadGoModule), this is plain encoding/json over a Go struct —
// Go already emits struct fields in declaration order, which is what
// "stable key order" requires here, so no custom encoder is needed.
package header

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/inspa-build/inspa/internal/config"

	"golang.org/x/xerrors"
)

// Magic identifies this JSON document as an inspa header, independent of
// the footer's own magic (spec.md §3.4).
const Magic = "inspa-header-v1"

// HashPlaceholder is the fixed-width placeholder value written for
// hash.archive before the payload is compressed and hashed (spec.md §4.5
// step 4). Its length, 64 lowercase hex characters, is invariant so the
// Container Writer can seek back and overwrite it in place without
// shifting any other byte in the file.
var HashPlaceholder = strings.Repeat("0", 64)

// FileEntry mirrors manifest.Entry but omits SourcePath, which must never
// be emitted on the wire (spec.md §3.4).
type FileEntry struct {
	Path  string `json:"path"`
	Size  uint64 `json:"size"`
	MTime int64  `json:"mtime"`
}

// Script mirrors config.PostAction as emitted on the wire.
type Script struct {
	Type       config.ScriptType `json:"type"`
	Command    string            `json:"command"`
	Args       []string          `json:"args,omitempty"`
	TimeoutSec int               `json:"timeout_sec"`
	RunIf      config.RunIf      `json:"run_if"`
	Hidden     bool              `json:"hidden"`
	ShowInUI   bool              `json:"show_in_ui"`
}

// Hash carries the archive digest, duplicated from the footer for legacy
// readers that cannot parse the footer (spec.md §3.4, §9).
type Hash struct {
	Algo    string `json:"algo"`
	Archive string `json:"archive"`
}

// Build carries build provenance.
type Build struct {
	Timestamp         string `json:"timestamp"`
	BuilderVersion    string `json:"builder_version"`
	ConfigFingerprint string `json:"config_fingerprint"`
}

// Header is the full on-disk JSON metadata block.
type Header struct {
	Magic         string             `json:"magic"`
	SchemaVersion int                `json:"schema_version"`
	Product       config.Product     `json:"product"`
	UI            config.UI          `json:"ui"`
	Install       config.Install     `json:"install"`
	Compression   config.Compression `json:"compression"`
	Env           config.Env         `json:"env"`
	Files         []FileEntry        `json:"files"`
	Scripts       []Script           `json:"scripts"`
	Hash          Hash               `json:"hash"`
	Build         Build              `json:"build"`
}

// Encode serializes h as canonical UTF-8 JSON with no trailing newline
// (spec.md §6.2).
func Encode(h *Header) ([]byte, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, xerrors.Errorf("header: encode: %w", err)
	}
	return b, nil
}

// Decode parses a header JSON document and validates its schema_version
// against supported.
func Decode(b []byte, supported map[int]bool) (*Header, error) {
	var h Header
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&h); err != nil {
		return nil, xerrors.Errorf("header: malformed: %w", err)
	}
	if !supported[h.SchemaVersion] {
		return nil, xerrors.Errorf("header: unsupported schema_version %d", h.SchemaVersion)
	}
	return &h, nil
}

// PlaceholderOffset returns the byte offset of HashPlaceholder within an
// already-encoded header document, so the Container Writer can seek to
// exactly that offset in the output file once the payload hash is known
// (spec.md §4.5 step 11).
func PlaceholderOffset(encoded []byte) (int, error) {
	idx := bytes.Index(encoded, []byte(HashPlaceholder))
	if idx < 0 {
		return 0, xerrors.Errorf("header: hash placeholder not found in encoded header")
	}
	return idx, nil
}
