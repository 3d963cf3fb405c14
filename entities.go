package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Strategy selects the reasoning dialect used to drive the loop.
type Strategy string

const (
	// StrategyChainOfThought uses the free-text ReAct protocol: the model emits
	// Thought/Action/Observation text that is parsed online by ActionParser.
	StrategyChainOfThought Strategy = "chain-of-thought"

	// StrategyFunctionCalling uses the model's native tool-call directives.
	// No text parsing is involved; tool calls arrive as structured chunks.
	StrategyFunctionCalling Strategy = "function-calling"
)

// PromptShape selects how the chain-of-thought prompt is assembled.
type PromptShape string

const (
	// PromptShapeChat renders the prompt as a system/user/assistant message
	// sequence. This is the default and works with chat-tuned models.
	PromptShapeChat PromptShape = "chat"

	// PromptShapeCompletion renders the entire prompt into a single user
	// message, splicing history and scratchpad into the template. Use this
	// with completion-style models.
	PromptShapeCompletion PromptShape = "completion"
)

// Action is a single tool invocation request extracted from model output.
//
// Input is either a string (raw argument text) or a map[string]any (decoded
// JSON object). The dispatcher decodes string inputs opportunistically.
type Action struct {
	Name  string
	Input any
}

// IsFinalAnswer reports whether the action name is the termination sentinel.
// The comparison is case-insensitive and tolerant of whitespace, underscore
// and hyphen variation, so "Final Answer", "final  answer" and
// "final_answer" all terminate the loop, while tool names that merely
// contain the words (for example "finalize_answer") do not.
func (a *Action) IsFinalAnswer() bool {
	name := strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, strings.ToLower(a.Name))
	return strings.Join(strings.Fields(name), " ") == "final answer"
}

// InputString returns the action input as a string. Map inputs are rendered
// as compact JSON; anything else falls back to fmt formatting.
func (a *Action) InputString() string {
	switch v := a.Input.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON serializes the action in the wire shape the ReAct protocol
// uses: {"action": <name>, "action_input": <input>}.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"action":       a.Name,
		"action_input": a.Input,
	})
}

// ScratchpadUnit is one reasoning step of the current run.
//
// A unit is created per loop iteration and is append-only: once the
// iteration's tool call completes the unit is immutable. A unit with no
// Action is terminal (the final answer); a non-terminal unit acquires an
// Observation before it is replayed as history.
type ScratchpadUnit struct {
	// AgentResponse is the raw text the model emitted this step.
	AgentResponse string

	// Thought is the free-text reasoning extracted from the response.
	Thought string

	// ActionRaw is the serialized action, empty when no action was emitted.
	ActionRaw string

	// Action is the parsed action, nil for terminal units.
	Action *Action

	// Observation is the tool result fed back to the model.
	Observation string
}

// IsFinal reports whether this unit terminates the run: either no action was
// extracted, or the action is the final-answer sentinel.
func (u *ScratchpadUnit) IsFinal() bool {
	return u.Action == nil || u.Action.IsFinalAnswer()
}

// PromptTemplate holds the instruction templates for the chain-of-thought
// dialect. FirstPrompt seeds the system (chat shape) or whole prompt
// (completion shape); NextIteration nudges the model to resume.
//
// Recognized placeholders, substituted literally:
//
//	{{instruction}}       caller instruction, after input interpolation
//	{{tools}}             JSON catalog of available tools
//	{{tool_names}}        comma-separated tool names
//	{{historic_messages}} prior-turn history (completion shape only)
//	{{agent_scratchpad}}  current-run scratchpad (completion shape only)
//	{{query}}             the user query (completion shape only)
type PromptTemplate struct {
	FirstPrompt   string
	NextIteration string
}

// defaultThought replaces an empty extracted thought so downstream
// persistence never stores a blank reasoning record.
const defaultThought = "I am thinking about how to help you"
