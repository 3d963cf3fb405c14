package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Providers whose API rejects the Observation stop word. For these the
// chain-of-thought dialect relies on parsing alone.
var observationStopExcluded = map[string]bool{
	"wenxin": true,
}

// Request is one user turn handed to the runner.
type Request struct {
	// Query is the user's message text.
	Query string

	// Attachments are non-text parts of the user message, typically
	// llms.ImageURLContent or llms.BinaryContent. After the first model
	// call they are replayed as short placeholders to save tokens.
	Attachments []llms.ContentPart

	// History is the prior conversation, most recent last. The
	// chain-of-thought dialect compacts it; function calling replays it
	// as-is.
	History []llms.MessageContent
}

// Result is the outcome of a completed run.
type Result struct {
	// Answer is the user-facing final answer.
	Answer string

	// Usage is the token and price total across all model calls.
	Usage Usage

	// Scratchpad holds every reasoning step in order.
	Scratchpad []ScratchpadUnit

	// Iterations is the number of model calls made.
	Iterations int
}

// Runner drives the reasoning loop for one configuration. Configure it with
// the With* builders, then call Run per user turn; a Runner is safe to reuse
// sequentially but not concurrently.
type Runner struct {
	cfg        *Config
	model      Model
	dispatcher *Dispatcher
	template   *PromptTemplate
	compactor  *Compactor
	sink       EventSink
	store      ThoughtStore
}

// NewRunner returns a runner for cfg. The config is normalized in place.
func NewRunner(cfg *Config) *Runner {
	cfg.Normalize()
	return &Runner{
		cfg:        cfg,
		dispatcher: NewDispatcher(),
		compactor:  &Compactor{},
		sink:       NopSink{},
		store:      NopThoughtStore{},
	}
}

// WithModel sets the backing model.
func (r *Runner) WithModel(m Model) *Runner {
	r.model = m
	return r
}

// WithTools registers tools, replacing the current set.
func (r *Runner) WithTools(tools ...Tool) *Runner {
	r.dispatcher = NewDispatcher(tools...)
	return r
}

// WithDispatcher replaces the dispatcher wholesale.
func (r *Runner) WithDispatcher(d *Dispatcher) *Runner {
	r.dispatcher = d
	return r
}

// WithTemplate overrides the prompt template. Without it the runner picks
// the stock template for the configured prompt shape.
func (r *Runner) WithTemplate(t PromptTemplate) *Runner {
	r.template = &t
	return r
}

// WithCompactor sets the history compactor used by chain of thought.
func (r *Runner) WithCompactor(c *Compactor) *Runner {
	r.compactor = c
	return r
}

// WithSink sets the event sink.
func (r *Runner) WithSink(s EventSink) *Runner {
	r.sink = s
	return r
}

// WithStore sets the reasoning-record store.
func (r *Runner) WithStore(s ThoughtStore) *Runner {
	r.store = s
	return r
}

// reasoningDialect is one iteration strategy. step runs a single model call
// plus its tool dispatches and reports whether the run is over. On the
// final allowed call withTools is false and the model must answer in text.
type reasoningDialect interface {
	step(ctx context.Context, st *run, withTools bool) (terminal bool, err error)
}

// run is the mutable state of one Run call, shared by the dialect and the
// loop driver.
type run struct {
	r   *Runner
	req *Request

	history    []llms.MessageContent
	scratchpad []ScratchpadUnit
	usage      *UsageAccumulator
	iteration  int

	// finalAnswer accumulates the user-facing answer as the dialect
	// produces it.
	finalAnswer string

	// current holds the assistant and tool messages produced so far in
	// this run, used by the function-calling dialect to extend the
	// prompt between iterations.
	current []llms.MessageContent
}

// Run executes the reasoning loop to completion and returns the result.
//
// The loop makes at most MaxIterations+1 model calls: the extra call has
// tools withheld so the model is forced to produce a final answer. Tool
// failures never abort the run; they come back as observations. Run only
// errors on configuration problems, model invocation failure or context
// cancellation.
func (r *Runner) Run(ctx context.Context, req *Request) (*Result, error) {
	if r.model == nil {
		return nil, ErrNoModel
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	dialect, err := r.dialect()
	if err != nil {
		return nil, err
	}

	st := &run{
		r:     r,
		req:   req,
		usage: NewUsageAccumulator(),
	}
	st.history = req.History
	if r.cfg.Strategy == StrategyChainOfThought {
		st.history = r.compactor.Compact(req.History)
	}

	maxCalls := r.cfg.MaxIterations + 1
	for call := 1; call <= maxCalls; call++ {
		st.iteration = call
		terminal, err := dialect.step(ctx, st, call < maxCalls)
		if err != nil {
			return nil, err
		}
		if terminal {
			break
		}
	}

	result := &Result{
		Answer:     st.finalAnswer,
		Usage:      st.usage.Total(),
		Scratchpad: st.scratchpad,
		Iterations: st.iteration,
	}
	r.sink.Emit(ctx, MessageEndEvent{
		FinalAnswer: result.Answer,
		Usage:       result.Usage,
		Scratchpad:  result.Scratchpad,
	})
	return result, nil
}

// dialect selects the iteration strategy for the configured Strategy.
func (r *Runner) dialect() (reasoningDialect, error) {
	switch r.cfg.Strategy {
	case StrategyChainOfThought:
		tmpl := r.template
		if tmpl == nil {
			switch r.cfg.PromptShape {
			case PromptShapeCompletion:
				tmpl = &DefaultCompletionTemplate
			default:
				tmpl = &DefaultChatTemplate
			}
		}
		if tmpl.FirstPrompt == "" {
			return nil, ErrMissingPromptTemplate
		}
		return &chainOfThoughtDialect{template: tmpl}, nil
	case StrategyFunctionCalling:
		return &functionCallingDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, r.cfg.Strategy)
	}
}

// stopWords returns the stop sequences for one model call. Chain of thought
// appends the Observation stop so the model halts before hallucinating tool
// results, except for providers that reject custom stops. A caller-supplied
// Observation stop is not duplicated.
func (st *run) stopWords() []string {
	stop := append([]string(nil), st.r.cfg.Stop...)
	if st.r.cfg.Strategy != StrategyChainOfThought || observationStopExcluded[st.r.cfg.Provider] {
		return stop
	}
	for _, s := range stop {
		if s == "Observation" {
			return stop
		}
	}
	return append(stop, "Observation")
}

// beginThought opens a reasoning record for the current iteration.
// Persistence is best effort; an empty id is fine.
func (st *run) beginThought(ctx context.Context) string {
	id, err := st.r.store.CreateThought(ctx)
	if err != nil {
		id = ""
	}
	st.r.sink.Emit(ctx, ThoughtCreatedEvent{ThoughtID: id, Iteration: st.iteration})
	return id
}

// saveThought writes the record back and mirrors it to the sink.
func (st *run) saveThought(ctx context.Context, id string, upd ThoughtUpdate) {
	if id != "" {
		_ = st.r.store.UpdateThought(ctx, id, upd)
	}
	st.r.sink.Emit(ctx, ThoughtUpdatedEvent{
		ThoughtID:   id,
		Iteration:   st.iteration,
		Thought:     upd.Thought,
		ToolName:    upd.ToolName,
		ToolInput:   upd.ToolInput,
		Observation: upd.Observation,
		Usage:       upd.Usage,
	})
}

// dispatch routes one action and announces any produced files.
func (st *run) dispatch(ctx context.Context, action *Action) *DispatchResult {
	res := st.r.dispatcher.Dispatch(ctx, action)
	for _, fileID := range res.FileIDs {
		st.r.sink.Emit(ctx, MessageFileEvent{FileID: fileID, ToolName: action.Name})
	}
	return res
}

// emitAnswer streams a user-facing answer fragment to the sink.
func (st *run) emitAnswer(ctx context.Context, delta string) {
	if delta == "" {
		return
	}
	st.r.sink.Emit(ctx, AnswerChunkEvent{Delta: delta})
}

// userMessage builds the user turn for the current call. Attachments are
// sent in full on the first call only; afterwards each is replayed as a
// short placeholder.
func (st *run) userMessage() llms.MessageContent {
	msg := llms.MessageContent{Role: llms.ChatMessageTypeHuman}
	msg.Parts = append(msg.Parts, llms.TextContent{Text: st.req.Query})
	for _, part := range st.req.Attachments {
		if st.iteration > 1 {
			msg.Parts = append(msg.Parts, llms.TextContent{Text: attachmentPlaceholder(part)})
			continue
		}
		msg.Parts = append(msg.Parts, part)
	}
	return msg
}

func attachmentPlaceholder(part llms.ContentPart) string {
	if _, ok := part.(llms.ImageURLContent); ok {
		return "[image]"
	}
	return "[file]"
}
