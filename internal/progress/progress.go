// Package progress implements the progress event queue (spec.md §5, §9
// "Cyclic GUI ⇄ worker coupling"): a single-producer-single-consumer
// channel of tagged events flowing from the worker thread to whatever is
// watching installation (the GUI's timer-driven drain, or the CLI's
// plain-text progress bar). The worker never calls UI code directly;
// this queue is the only coupling between the two.
package progress

import "time"

// Kind discriminates the tagged variants spec.md §9 lists:
// FileStarted, BytesProgressed, FileFinished, LogLine, PhaseChanged,
// Completed, Failed.
type Kind int

const (
	FileStarted Kind = iota
	BytesProgressed
	FileFinished
	LogLine
	PhaseChanged
	Completed
	Failed
)

// Event is one progress notification. Only the fields relevant to Kind
// are populated; the rest are left zero. A flat struct rather than an
// interface keeps the consumer's drain loop a single type switch on Kind
// instead of a type switch on concrete types.
type Event struct {
	Kind Kind

	// FileStarted, BytesProgressed, FileFinished
	CurrentFile string
	BytesDone   uint64
	BytesTotal  uint64

	// LogLine
	Line string

	// PhaseChanged
	Phase string

	// Failed
	Err error
}

// maxRate bounds how often BytesProgressed events reach the channel
// (spec.md §4.7: "at most 30 times per second"). Every other Kind is
// always delivered — the cadence limit applies only to the
// high-frequency byte-counter updates, not to discrete lifecycle events.
const maxRate = 30

var minInterval = time.Second / maxRate

// Queue is the single-producer-single-consumer progress channel.
// Production code constructs one with New and passes it by pointer
// through the extractor/script/runtime layers; tests may pass a nil
// *Queue, which makes Emit a no-op, so callers never need a nil check of
// their own.
type Queue struct {
	ch       chan Event
	lastSent time.Time
}

// New returns a Queue with the given channel buffer depth. A modest
// buffer (e.g. 64) lets the worker get a little ahead of a UI timer tick
// without blocking on it.
func New(buffer int) *Queue {
	return &Queue{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the queue, for the consumer's drain
// loop.
func (q *Queue) Events() <-chan Event {
	if q == nil {
		return nil
	}
	return q.ch
}

// Close closes the channel, signaling the consumer that no further
// events will arrive. The single producer must call this exactly once,
// after its last Emit.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	close(q.ch)
}

// Emit sends ev to the queue, rate-limiting BytesProgressed events to
// maxRate per second and sending everything else unconditionally. A nil
// Queue makes this a no-op, so callers that don't want progress
// reporting can simply pass nil.
//
// The worker never blocks indefinitely on a full queue (spec.md §3.5):
// BytesProgressed events are dropped rather than stalling the producer
// if the consumer has fallen behind, since another one will arrive
// within minInterval anyway. Discrete lifecycle events (FileStarted,
// FileFinished, PhaseChanged, Completed, Failed, LogLine) still block,
// since losing one of those would be a real gap in the reported history,
// not just a skipped intermediate tick.
func (q *Queue) Emit(ev Event) {
	if q == nil {
		return
	}
	if ev.Kind == BytesProgressed {
		now := time.Now()
		if now.Sub(q.lastSent) < minInterval {
			return
		}
		q.lastSent = now
		select {
		case q.ch <- ev:
		default:
		}
		return
	}
	q.ch <- ev
}
