package diag

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestCollectorConcurrentEmit(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Emit(ParseError("bad.py", "bad", "syntax error"))
		}()
	}
	wg.Wait()

	if got := c.Count(KindParseError); got != 50 {
		t.Fatalf("expected 50 parse errors, got %d", got)
	}
	if got := c.Count(KindUnresolvedImport); got != 0 {
		t.Fatalf("expected no unresolved imports, got %d", got)
	}
}

func TestMultiAndChannel(t *testing.T) {
	ch := make(chan Event, 1)
	c := NewCollector()
	sink := Multi(c, nil, NewChannel(context.Background(), ch))

	sink.Emit(UnresolvedImport("pkg/a.py", "pkg.a", "...b", "relative import exceeds package depth", 3))

	if len(c.Events()) != 1 {
		t.Fatalf("collector missed the event")
	}
	got := <-ch
	if got.Kind != KindUnresolvedImport || got.Line != 3 {
		t.Fatalf("unexpected event %+v", got)
	}
	if !strings.Contains(got.String(), "pkg/a.py:3") {
		t.Fatalf("unexpected rendering %q", got.String())
	}
}

func TestChannelDoesNotBlockAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := NewChannel(ctx, make(chan Event))
	sink.Emit(ParseError("x.py", "x", "boom"))
}

func TestThrottleDropsBurstOverflow(t *testing.T) {
	c := NewCollector()
	sink := Throttle(c, 0.001, 2)
	for i := 0; i < 5; i++ {
		sink.Emit(ParseError("x.py", "x", "boom"))
	}
	if got := len(c.Events()); got != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", got)
	}
	if sink.Dropped() != 3 {
		t.Fatalf("expected 3 dropped events, got %d", sink.Dropped())
	}
}

func TestCollectorDrain(t *testing.T) {
	c := NewCollector()
	c.Emit(ParseError("a.py", "a", "boom"))
	if got := c.Drain(); len(got) != 1 {
		t.Fatalf("expected 1 drained event, got %d", len(got))
	}
	if len(c.Events()) != 0 {
		t.Fatal("collector should be empty after Drain")
	}
}
