package events

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (indexers, observers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so event emission is always optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers emitted events in order. It backs tests and any caller
// that wants to inspect the effects of an operation after the fact.
type Collector struct {
	events []Event
}

// Emit appends the event to the collector buffer.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
		return
	}
	c.events = append(c.events, evt)
}

// Events returns the collected events in emission order.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset drops all buffered events.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.events = c.events[:0]
}
