// # internal/engine/graph/writer.go
package graph

import (
	"sync"
	"sync/atomic"
	"time"

	"snakr/internal/core/errors"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
	"snakr/internal/shared/observability"
)

// Resolved pairs a raw import with its resolution.
type Resolved struct {
	Raw    parser.RawImport
	Target resolver.Target
}

// UnitUpdate carries one parsed unit to the writer. A unit that failed to
// parse is still registered, with no imports.
type UnitUpdate struct {
	Module    qname.Name
	Path      string
	IsPackage bool
	Imports   []Resolved
}

// ApplyBatch applies updates under a single lock. Invalid imports are
// skipped and reported in the returned error; the rest are applied.
func (a *Assembler) ApplyBatch(updates []UnitUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.publish()

	var firstErr error
	for _, u := range updates {
		if u.Module.IsZero() {
			if firstErr == nil {
				firstErr = errors.AddContext(errors.New(errors.CodeValidationError, "unit has no module name"), errors.CtxPath, u.Path)
			}
			continue
		}
		a.addModuleLocked(u.Module, u.Path, u.IsPackage)
		for _, r := range u.Imports {
			if r.Target.Ignored {
				continue
			}
			if r.Target.Name.IsZero() {
				if firstErr == nil {
					firstErr = errors.AddContext(errors.New(errors.CodeValidationError, "import edge needs a target"), errors.CtxModule, u.Module.String())
				}
				continue
			}
			a.addLocked(u.Module, r.Target, r.Raw)
		}
	}
	return firstErr
}

// WriterConfig controls when queued updates are applied.
type WriterConfig struct {
	// BatchSize is the number of queued units that trigger an apply.
	// Defaults to 64 when zero or negative.
	BatchSize int
	// FlushInterval bounds how long an update waits in the queue.
	// Defaults to 100ms when zero or negative.
	FlushInterval time.Duration
}

func (c WriterConfig) batchSize() int {
	if c.BatchSize <= 0 {
		return 64
	}
	return c.BatchSize
}

func (c WriterConfig) flushInterval() time.Duration {
	if c.FlushInterval <= 0 {
		return 100 * time.Millisecond
	}
	return c.FlushInterval
}

// Writer is the single logical writer in front of an Assembler. Parse
// workers Submit updates; one goroutine applies them in batches.
type Writer struct {
	asm *Assembler
	cfg WriterConfig

	ch      chan UnitUpdate
	flushCh chan chan error
	done    chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// NewWriter starts the writer goroutine. Callers must Close it.
func NewWriter(asm *Assembler, cfg WriterConfig) *Writer {
	w := &Writer{
		asm:     asm,
		cfg:     cfg,
		ch:      make(chan UnitUpdate, cfg.batchSize()*2),
		flushCh: make(chan chan error, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit queues u, blocking while the queue is full. After Close it applies
// u directly.
func (w *Writer) Submit(u UnitUpdate) {
	if w.closed.Load() {
		w.record(w.asm.ApplyBatch([]UnitUpdate{u}))
		return
	}
	select {
	case w.ch <- u:
	case <-w.done:
		w.record(w.asm.ApplyBatch([]UnitUpdate{u}))
	}
}

// Flush applies everything submitted so far and returns the first error
// seen since the writer started.
func (w *Writer) Flush() error {
	result := make(chan error, 1)
	select {
	case w.flushCh <- result:
		<-result
	case <-w.done:
	}
	return w.Err()
}

// Close applies remaining updates and stops the goroutine.
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return w.Err()
	}
	close(w.done)
	w.wg.Wait()
	w.record(w.asm.ApplyBatch(drain(nil, w.ch)))
	return w.Err()
}

func (w *Writer) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *Writer) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	batch := make([]UnitUpdate, 0, w.cfg.batchSize())
	ticker := time.NewTicker(w.cfg.flushInterval())
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		err := w.asm.ApplyBatch(batch)
		observability.WriteQueueFlushLatencySeconds.Observe(time.Since(start).Seconds())
		observability.WriteQueueProcessedTotal.Add(float64(len(batch)))
		observability.WriteQueueDepth.Set(float64(len(w.ch)))
		if err != nil {
			observability.WriteQueueApplyErrorsTotal.Inc()
		}
		w.record(err)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case u := <-w.ch:
			batch = append(batch, u)
			if len(batch) >= w.cfg.batchSize() {
				batch = drain(batch, w.ch)
				_ = flush()
				ticker.Reset(w.cfg.flushInterval())
			}

		case result := <-w.flushCh:
			// Updates submitted before Flush may still sit in the channel.
			batch = drain(batch, w.ch)
			result <- flush()

		case <-ticker.C:
			batch = drain(batch, w.ch)
			_ = flush()

		case <-w.done:
			batch = drain(batch, w.ch)
			_ = flush()
			return
		}
	}
}

// drain moves everything queued in ch into batch without blocking.
func drain(batch []UnitUpdate, ch <-chan UnitUpdate) []UnitUpdate {
	for {
		select {
		case u := <-ch:
			batch = append(batch, u)
		default:
			return batch
		}
	}
}
