package runtime

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind enumerates the nine event kinds emitted by the engine (spec §3).
type EventKind string

const (
	EventPipelineStart    EventKind = "pipeline.start"
	EventPipelineComplete EventKind = "pipeline.complete"
	EventPipelineError    EventKind = "pipeline.error"
	EventPipelineFinalize EventKind = "pipeline.finalize"
	EventNodeStart        EventKind = "node.start"
	EventNodeComplete     EventKind = "node.complete"
	EventNodeRetry        EventKind = "node.retry"
	EventGoalGateRetry    EventKind = "goal_gate.retry"
	EventLoopRestart      EventKind = "loop.restart"
)

// Event is a single record in the engine's event stream (spec §3).
type Event struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	NodeID    string         `json:"node_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// idEntropy is a process-wide, mutex-guarded entropy source for ULID
// generation. ulid.ULID requires a monotonically-safe reader; sharing one
// per process (rather than one per call) keeps successive IDs sortable even
// under rapid event emission, mirroring the teacher's NewRunID discipline.
var idEntropy = struct {
	mu     sync.Mutex
	source *ulid.MonotonicEntropy
}{source: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}

// NewID returns a new sortable, monotonic, collision-resistant identifier;
// the engine uses it for event IDs.
func NewID(now time.Time) string {
	idEntropy.mu.Lock()
	defer idEntropy.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), idEntropy.source).String()
}

// EventSink receives emitted events. Implementations must not block the
// engine indefinitely; a slow sink should buffer internally.
type EventSink interface {
	Emit(Event)
}

// EventLog is an in-memory, append-only EventSink and the default sink used
// by the engine when the caller supplies none.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// NewEventLog returns an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Emit appends an event. Safe for concurrent use (the parallel subsystem
// may emit from multiple branches).
func (l *EventLog) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// All returns a copy of every event recorded so far, in emission order.
func (l *EventLog) All() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Clock supplies the current time, injected so tests can control it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// RandomSource supplies random numbers, injected so tests are deterministic.
type RandomSource interface {
	Float64() float64
}

// SystemRandom is the default RandomSource, backed by math/rand.
type SystemRandom struct{}

// Float64 returns a pseudo-random float64 in [0, 1).
func (SystemRandom) Float64() float64 { return rand.Float64() }
