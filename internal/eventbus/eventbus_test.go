package eventbus

import (
	"errors"
	"testing"
)

func TestScopedPublishesStartedThenCompleted(t *testing.T) {
	b := New()
	var seen []PhaseState
	b.Subscribe(func(e Event) {
		if e.Kind == KindPhaseTransition {
			seen = append(seen, e.State)
		}
	})

	if err := b.Scoped(PhaseTypes, func() error { return nil }); err != nil {
		t.Fatalf("Scoped: %v", err)
	}

	if len(seen) != 2 || seen[0] != PhaseStarted || seen[1] != PhaseCompleted {
		t.Fatalf("expected [started, completed], got %v", seen)
	}
}

func TestScopedPublishesFailedAndForwardsError(t *testing.T) {
	b := New()
	var seen []Event
	b.Subscribe(func(e Event) { seen = append(seen, e) })

	boom := errors.New("boom")
	err := b.Scoped(PhaseExtensions, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected Scoped to forward the error, got %v", err)
	}

	if len(seen) != 2 || seen[1].State != PhaseFailed || seen[1].Err != boom {
		t.Fatalf("expected failed transition carrying the error, got %+v", seen)
	}
}

func TestSubscribeIsNotRetroactive(t *testing.T) {
	b := New()
	b.Publish(Event{Kind: KindDiagnostic, Message: "before subscribing"})

	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })
	b.Publish(Event{Kind: KindDiagnostic, Message: "after subscribing"})

	if len(got) != 1 || got[0].Message != "after subscribing" {
		t.Fatalf("expected exactly the post-subscribe event, got %+v", got)
	}
}

func TestMultipleHandlersAllReceiveEachEvent(t *testing.T) {
	b := New()
	var a, c int
	b.Subscribe(func(Event) { a++ })
	b.Subscribe(func(Event) { c++ })

	b.ProcessingFailed(PhaseProtocols, errors.New("x"))

	if a != 1 || c != 1 {
		t.Fatalf("expected both handlers invoked once, got a=%d c=%d", a, c)
	}
}
