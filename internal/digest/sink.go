// Package digest implements the Hasher component (spec.md §4.3): a
// streaming SHA-256 accumulator applied to every byte written into the
// payload region, usable twice from one instance (legacy tail and
// footer) since both just read the same finalized sum.
package digest

import (
	"crypto/sha256"
	"hash"
)

// Sink is an io.Writer that feeds every byte written to it into a
// SHA-256 digest while counting the bytes, mirroring Ctx.Hash's
// io.Copy(h, f) idiom but usable mid-stream rather than only after a
// file is fully written.
type Sink struct {
	h hash.Hash
	n int64
}

// NewSink returns a ready-to-use Sink.
func NewSink() *Sink {
	return &Sink{h: sha256.New()}
}

func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.h.Write(p)
	s.n += int64(n)
	return n, err
}

// Count returns the number of bytes written so far.
func (s *Sink) Count() int64 { return s.n }

// Sum returns the finalized 32-byte SHA-256 digest. Calling Sum does not
// reset the running hash; it is intended to be called once, after the
// payload region is fully written.
func (s *Sink) Sum() [32]byte {
	var out [32]byte
	copy(out[:], s.h.Sum(nil))
	return out
}

// SumBytes computes the SHA-256 digest of a byte slice, matching the
// teacher's Ctx.Hash whole-file helper for callers that do not need the
// streaming form.
func SumBytes(p []byte) [32]byte {
	return sha256.Sum256(p)
}
