package telemetry

import (
	"log"

	"tourneyengine/server/referee"
)

// queueCapacity bounds the in-memory queue feeding the background writer.
// Overflow drops the newest record with a warning rather than blocking the
// match loop — the document sink is optional, the file sink is
// authoritative.
const queueCapacity = 10000

// batchSize is the maximum number of records the background writer groups
// into one batch upsert/insert.
const batchSize = 50

// DocSink is the process-wide asynchronous document sink contract. All
// methods are non-blocking best-effort enqueues; errors from the backing
// store never propagate to callers, only warn and continue.
type DocSink interface {
	EnqueueTurn(matchID string, e Entry, rawPrompt string)
	EnqueueMatch(matchID string, scores map[string]float64, fidelity map[string]referee.FidelityReport, ruling string, extra map[string]any)
	// Close stops the background writer, flushing any already-queued
	// records best-effort before returning.
	Close()
}

// disabledDocSink is used whenever no document-store connection string is
// configured, or the initial connection attempt failed. Every method is a
// no-op.
type disabledDocSink struct{}

func (disabledDocSink) EnqueueTurn(string, Entry, string)                                                       {}
func (disabledDocSink) EnqueueMatch(string, map[string]float64, map[string]referee.FidelityReport, string, map[string]any) {
}
func (disabledDocSink) Close() {}

// turnJob and matchJob are the two record kinds the background writer
// drains from its queue.
type turnJob struct {
	matchID   string
	entry     Entry
	rawPrompt string
}

type matchJob struct {
	matchID  string
	scores   map[string]float64
	fidelity map[string]referee.FidelityReport
	ruling   string
	extra    map[string]any
}

// job is a tagged union of the two job kinds, queued in submission order.
type job struct {
	turn  *turnJob
	match *matchJob
}

// writer is the shared single-producer/single-consumer plumbing behind any
// concrete DocSink backend (e.g. Postgres): it owns the bounded queue and
// the background goroutine that batches writes. Concrete backends hold a
// writer and supply flushTurns/flushMatch.
type writer struct {
	queue   chan job
	done    chan struct{}
	flushTurns  func(batch []turnJob)
	flushMatch  func(j matchJob)
}

func newWriter(flushTurns func([]turnJob), flushMatch func(matchJob)) *writer {
	w := &writer{
		queue:      make(chan job, queueCapacity),
		done:       make(chan struct{}),
		flushTurns: flushTurns,
		flushMatch: flushMatch,
	}
	go w.loop()
	return w
}

func (w *writer) loop() {
	defer close(w.done)
	var pendingTurns []turnJob
	flush := func() {
		if len(pendingTurns) == 0 {
			return
		}
		w.flushTurns(pendingTurns)
		pendingTurns = pendingTurns[:0]
	}
	for j := range w.queue {
		if j.turn != nil {
			pendingTurns = append(pendingTurns, *j.turn)
			if len(pendingTurns) >= batchSize {
				flush()
			}
			continue
		}
		if j.match != nil {
			flush()
			w.flushMatch(*j.match)
		}
	}
	flush()
}

func (w *writer) enqueue(j job) {
	select {
	case w.queue <- j:
	default:
		log.Printf("telemetry doc sink queue full (capacity %d); dropping record", queueCapacity)
	}
}

func (w *writer) close() {
	close(w.queue)
	<-w.done
}
