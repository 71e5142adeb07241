package progress

import (
	"testing"
	"time"
)

func TestEmitRateLimitsBytesProgressed(t *testing.T) {
	q := New(64)
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 1})
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 2})
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 3})

	select {
	case ev := <-q.Events():
		if ev.BytesDone != 1 {
			t.Fatalf("first event BytesDone = %d, want 1", ev.BytesDone)
		}
	default:
		t.Fatal("expected the first BytesProgressed event to be delivered")
	}
	select {
	case ev := <-q.Events():
		t.Fatalf("unexpected second event within the rate window: %+v", ev)
	default:
	}
}

func TestEmitNeverRateLimitsLifecycleEvents(t *testing.T) {
	q := New(64)
	q.Emit(Event{Kind: FileStarted, CurrentFile: "a"})
	q.Emit(Event{Kind: FileFinished, CurrentFile: "a"})
	q.Emit(Event{Kind: FileStarted, CurrentFile: "b"})

	for i, want := range []string{"a", "a", "b"} {
		select {
		case ev := <-q.Events():
			if ev.CurrentFile != want {
				t.Fatalf("event %d CurrentFile = %q, want %q", i, ev.CurrentFile, want)
			}
		default:
			t.Fatalf("event %d missing", i)
		}
	}
}

func TestNilQueueEmitIsNoop(t *testing.T) {
	var q *Queue
	q.Emit(Event{Kind: Completed})
	if q.Events() != nil {
		t.Fatal("Events() on a nil Queue should be nil")
	}
	q.Close()
}

func TestEmitDropsBytesProgressedWhenQueueFull(t *testing.T) {
	q := New(1)
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 1})
	time.Sleep(2 * minInterval)

	done := make(chan struct{})
	go func() {
		// The channel's one slot is already full and nothing is
		// draining it, so this must drop rather than block.
		q.Emit(Event{Kind: BytesProgressed, BytesDone: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue instead of dropping the event")
	}

	ev := <-q.Events()
	if ev.BytesDone != 1 {
		t.Fatalf("BytesDone = %d, want 1 (the dropped event must not have overwritten it)", ev.BytesDone)
	}
	select {
	case ev := <-q.Events():
		t.Fatalf("unexpected extra event delivered: %+v", ev)
	default:
	}
}

func TestEmitAfterRateWindowDelivers(t *testing.T) {
	q := New(4)
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 1})
	<-q.Events()
	time.Sleep(2 * minInterval)
	q.Emit(Event{Kind: BytesProgressed, BytesDone: 2})
	select {
	case ev := <-q.Events():
		if ev.BytesDone != 2 {
			t.Fatalf("BytesDone = %d, want 2", ev.BytesDone)
		}
	default:
		t.Fatal("expected an event once the rate window elapsed")
	}
}
