package agent

import "context"

// Event is a notification emitted by the reasoning loop. Sinks type-switch
// on the concrete event types below.
type Event interface {
	isEvent()
}

// ThoughtCreatedEvent fires when an iteration starts, before the model is
// invoked. ThoughtID correlates later updates for the same iteration.
type ThoughtCreatedEvent struct {
	ThoughtID string
	Iteration int
}

// ThoughtUpdatedEvent fires up to twice per iteration: once when the
// model's response has been consumed, and again after the tool call
// completes with the observation filled in.
type ThoughtUpdatedEvent struct {
	ThoughtID   string
	Iteration   int
	Thought     string
	ToolName    string
	ToolInput   string
	Observation string
	Usage       *Usage
}

// AnswerChunkEvent carries a fragment of the user-facing answer as it
// streams out of the model.
type AnswerChunkEvent struct {
	Delta string
}

// MessageFileEvent fires for each file a tool produced.
type MessageFileEvent struct {
	FileID   string
	ToolName string
}

// MessageEndEvent fires exactly once, when the run terminates. Scratchpad
// is a snapshot of every reasoning step; Usage is the run total.
type MessageEndEvent struct {
	FinalAnswer string
	Usage       Usage
	Scratchpad  []ScratchpadUnit
}

func (ThoughtCreatedEvent) isEvent() {}
func (ThoughtUpdatedEvent) isEvent() {}
func (AnswerChunkEvent) isEvent()    {}
func (MessageFileEvent) isEvent()    {}
func (MessageEndEvent) isEvent()     {}

// EventSink receives loop events. Emit is called synchronously from the
// loop goroutine and must not block; a sink that needs to do slow work
// should hand the event off to its own goroutine.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

var _ EventSink = (SinkFunc)(nil)

// Sinks fans an event out to every sink in order.
type Sinks []EventSink

func (s Sinks) Emit(ctx context.Context, ev Event) {
	for _, sink := range s {
		sink.Emit(ctx, ev)
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}
