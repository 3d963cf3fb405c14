package agent

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// TokenCounter estimates the token footprint of a prompt. Implementations
// wrap whatever tokenizer matches the target model.
type TokenCounter interface {
	CountTokens(messages []llms.MessageContent) int
}

// TokenCounterFunc adapts a function to the TokenCounter interface.
type TokenCounterFunc func(messages []llms.MessageContent) int

func (f TokenCounterFunc) CountTokens(messages []llms.MessageContent) int {
	return f(messages)
}

// Compactor rewrites prior-turn history for replay in a chain-of-thought
// prompt.
//
// Native tool-call exchanges (an assistant message carrying tool calls,
// followed by tool result messages) cannot be replayed to a model driven
// through plain text, so each such group is collapsed into a single
// assistant message in Thought/Action/Observation form. Plain user and
// assistant messages pass through unchanged.
//
// When Counter and Budget are set, Compact additionally drops the oldest
// non-system messages until the estimate fits the budget.
type Compactor struct {
	Counter TokenCounter
	Budget  int
}

// Compact returns the compacted history. The input is not modified.
func (c *Compactor) Compact(history []llms.MessageContent) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))

	var units []ScratchpadUnit
	pending := make(map[string]int)
	var order []int

	flush := func() {
		if len(units) == 0 {
			return
		}
		out = append(out, llms.TextParts(llms.ChatMessageTypeAI, formatScratchpad(units)))
		units = nil
		pending = make(map[string]int)
		order = nil
	}

	for _, msg := range history {
		switch msg.Role {
		case llms.ChatMessageTypeAI:
			unit := unitFromAssistant(msg)
			units = append(units, unit)
			idx := len(units) - 1
			if unit.Action != nil {
				for _, part := range msg.Parts {
					if tc, ok := part.(llms.ToolCall); ok && tc.ID != "" {
						pending[tc.ID] = idx
					}
				}
				order = append(order, idx)
			}
		case llms.ChatMessageTypeTool:
			for _, part := range msg.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					continue
				}
				if idx, ok := pending[resp.ToolCallID]; ok {
					appendObservation(&units[idx], resp.Content)
					continue
				}
				// No id to pair on; attach to the oldest call still
				// missing an observation.
				for _, idx := range order {
					if units[idx].Observation == "" {
						appendObservation(&units[idx], resp.Content)
						break
					}
				}
			}
		default:
			flush()
			out = append(out, msg)
		}
	}
	flush()

	return c.trim(out)
}

// trim drops the oldest non-system messages until the counter's estimate
// fits the budget. Without a counter or budget it is a no-op.
func (c *Compactor) trim(messages []llms.MessageContent) []llms.MessageContent {
	if c.Counter == nil || c.Budget <= 0 {
		return messages
	}
	for c.Counter.CountTokens(messages) > c.Budget {
		dropped := false
		for i, msg := range messages {
			if msg.Role == llms.ChatMessageTypeSystem {
				continue
			}
			messages = append(messages[:i:i], messages[i+1:]...)
			dropped = true
			break
		}
		if !dropped {
			break
		}
	}
	return messages
}

// unitFromAssistant rebuilds a reasoning step from a stored assistant
// message. The first tool call becomes the unit's action.
func unitFromAssistant(msg llms.MessageContent) ScratchpadUnit {
	var text strings.Builder
	var action *Action
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			text.WriteString(p.Text)
		case llms.ToolCall:
			if action != nil || p.FunctionCall == nil {
				continue
			}
			action = &Action{Name: p.FunctionCall.Name, Input: p.FunctionCall.Arguments}
			var decoded map[string]any
			if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &decoded); err == nil {
				action.Input = decoded
			}
		}
	}

	unit := ScratchpadUnit{
		AgentResponse: text.String(),
		Thought:       text.String(),
		Action:        action,
	}
	if unit.Thought == "" {
		unit.Thought = defaultThought
	}
	if action != nil {
		if raw, err := json.Marshal(action); err == nil {
			unit.ActionRaw = string(raw)
		}
	}
	return unit
}

func appendObservation(unit *ScratchpadUnit, content string) {
	if unit.Observation == "" {
		unit.Observation = content
		return
	}
	unit.Observation += "\n" + content
}

// formatScratchpad renders reasoning steps as the text the model would have
// produced under the chain-of-thought protocol.
func formatScratchpad(units []ScratchpadUnit) string {
	var sb strings.Builder
	for i := range units {
		unit := &units[i]
		if unit.IsFinal() && unit.Action != nil {
			sb.WriteString("Final Answer: ")
			sb.WriteString(unit.Action.InputString())
			continue
		}
		if unit.IsFinal() {
			sb.WriteString("Final Answer: ")
			sb.WriteString(unit.AgentResponse)
			continue
		}
		sb.WriteString("Thought: ")
		sb.WriteString(unit.Thought)
		sb.WriteString("\n\n")
		if unit.ActionRaw != "" {
			sb.WriteString("Action: ")
			sb.WriteString(unit.ActionRaw)
			sb.WriteString("\n\n")
		}
		if unit.Observation != "" {
			sb.WriteString("Observation: ")
			sb.WriteString(unit.Observation)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ensureCallID fills in a tool-call id when the provider streamed none, so
// results can be paired with their calls on replay.
func ensureCallID(tc llms.ToolCall) llms.ToolCall {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	return tc
}
