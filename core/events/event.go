package events

import "sync"

// Event represents a structured state change emitted by the claim engines.
// Attributes returns a flat string rendering used by the audit index and the
// websocket stream; typed consumers may assert on the concrete struct instead.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single emission out to every wrapped emitter in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Buffer retains the most recent events and streams new ones to subscribers.
// Slow subscribers are never blocked on; emissions they cannot keep up with
// are dropped from their channel, not from the buffer.
type Buffer struct {
	mu     sync.Mutex
	max    int
	recent []Event
	subs   map[int]chan Event
	nextID int
}

// NewBuffer constructs a buffer retaining up to max recent events.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 128
	}
	return &Buffer{max: max, subs: make(map[int]chan Event)}
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent = append(b.recent, evt)
	if len(b.recent) > b.max {
		b.recent = b.recent[len(b.recent)-b.max:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Recent returns a copy of the retained events, oldest first.
func (b *Buffer) Recent() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.recent))
	copy(out, b.recent)
	return out
}

// Subscribe registers a new subscriber channel. The returned cancel func must
// be called exactly once to release the subscription.
func (b *Buffer) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.max)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}
