// Package diag carries the non-fatal events produced while a crawl runs.
// Events are plain values; sinks decide whether to collect, forward or log
// them.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"snakr/internal/shared/util"
)

type Kind string

const (
	KindParseError       Kind = "parse_error"
	KindUnresolvedImport Kind = "unresolved_import"
)

// Event is a single diagnostic. Unit is the source path when known.
type Event struct {
	Kind    Kind   `json:"kind"`
	Unit    string `json:"unit,omitempty"`
	Module  string `json:"module,omitempty"`
	RawText string `json:"raw_text,omitempty"`
	Reason  string `json:"reason"`
	Line    int    `json:"line,omitempty"`
}

func ParseError(unit, module, reason string) Event {
	return Event{Kind: KindParseError, Unit: unit, Module: module, Reason: reason}
}

func UnresolvedImport(unit, module, rawText, reason string, line int) Event {
	return Event{Kind: KindUnresolvedImport, Unit: unit, Module: module, RawText: rawText, Reason: reason, Line: line}
}

func (e Event) String() string {
	switch e.Kind {
	case KindParseError:
		return fmt.Sprintf("parse error in %s: %s", e.Unit, e.Reason)
	case KindUnresolvedImport:
		return fmt.Sprintf("%s:%d unresolved import %q in %s: %s", e.Unit, e.Line, e.RawText, e.Module, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// Collector keeps every event in arrival order.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Drain returns the collected events and empties the collector.
func (c *Collector) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Count returns the number of collected events of kind k.
func (c *Collector) Count(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Channel forwards events to ch until ctx is done. Emit blocks while the
// channel is full, so consumers must keep draining.
type Channel struct {
	ctx context.Context
	ch  chan<- Event
}

func NewChannel(ctx context.Context, ch chan<- Event) *Channel {
	return &Channel{ctx: ctx, ch: ch}
}

func (c *Channel) Emit(e Event) {
	select {
	case c.ch <- e:
	case <-c.ctx.Done():
	}
}

// LogSink writes every event through slog at warn level.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(string(e.Kind), "unit", e.Unit, "module", e.Module, "raw", e.RawText, "line", e.Line, "reason", e.Reason)
}

// Throttled forwards events to next while its limiter allows and counts
// the rest. Put it in front of log output, not in front of a Collector.
type Throttled struct {
	next    Sink
	limiter *util.Limiter
	dropped atomic.Int64
}

func Throttle(next Sink, perSecond float64, burst int) *Throttled {
	return &Throttled{next: next, limiter: util.NewLimiter(perSecond, burst)}
}

func (t *Throttled) Emit(e Event) {
	if !t.limiter.Allow(1) {
		t.dropped.Add(1)
		return
	}
	t.next.Emit(e)
}

// Dropped returns how many events were suppressed so far.
func (t *Throttled) Dropped() int64 { return t.dropped.Load() }

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans an event out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Discard drops every event.
var Discard Sink = multi(nil)
