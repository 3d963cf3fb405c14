package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// functionCallingDialect drives the loop through the provider's native
// tool-call interface. No text parsing is involved; tool calls arrive as
// structured chunks and results go back as tool messages.
type functionCallingDialect struct{}

func (d *functionCallingDialect) step(ctx context.Context, st *run, withTools bool) (bool, error) {
	thoughtID := st.beginThought(ctx)

	var specs []ToolSpec
	if withTools {
		specs = st.r.dispatcher.Specs(ctx)
	}

	stream, err := st.r.model.Invoke(ctx, &InvokeRequest{
		Messages: d.renderPrompt(st),
		Params:   st.r.cfg.Params,
		Tools:    specs,
		Stop:     st.r.cfg.Stop,
	})
	if err != nil {
		return false, fmt.Errorf("agent: model invoke: %w", err)
	}

	callAcc := NewUsageAccumulator()
	var text strings.Builder
	var toolCalls []llms.ToolCall
	for chunk := range stream.Chunks() {
		if chunk.Usage != nil {
			callAcc.Add(chunk.Usage)
		}
		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			st.emitAnswer(ctx, chunk.Delta)
		}
		for _, tc := range chunk.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			toolCalls = append(toolCalls, ensureCallID(tc))
		}
	}
	if err := stream.Err(); err != nil {
		return false, fmt.Errorf("agent: model stream: %w", err)
	}

	response := text.String()
	// Every iteration's free text contributes to the final answer.
	st.finalAnswer += response + "\n"

	var callUsage *Usage
	if callAcc.Seen() {
		u := callAcc.Total()
		callUsage = &u
		st.usage.Add(&u)
	}

	unit := ScratchpadUnit{
		AgentResponse: response,
		Thought:       strings.TrimSpace(response),
	}
	if unit.Thought == "" {
		unit.Thought = defaultThought
	}

	assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if response != "" {
		assistant.Parts = append(assistant.Parts, llms.TextContent{Text: response})
	}
	for _, tc := range toolCalls {
		assistant.Parts = append(assistant.Parts, tc)
	}
	st.current = append(st.current, assistant)

	upd := ThoughtUpdate{Thought: unit.Thought, Usage: callUsage}

	if len(toolCalls) == 0 {
		st.finalAnswer = strings.TrimRight(st.finalAnswer, "\n")
		st.scratchpad = append(st.scratchpad, unit)
		upd.Answer = st.finalAnswer
		st.saveThought(ctx, thoughtID, upd)
		return true, nil
	}

	names := make([]string, 0, len(toolCalls))
	inputs := make(map[string]any, len(toolCalls))
	actions := make([]*Action, 0, len(toolCalls))
	for _, tc := range toolCalls {
		action := actionFromToolCall(tc)
		actions = append(actions, action)
		names = append(names, action.Name)
		inputs[action.Name] = action.Input
	}
	unit.Action = actions[0]
	if raw, err := json.Marshal(actions[0]); err == nil {
		unit.ActionRaw = string(raw)
	}
	upd.ToolName = strings.Join(names, ";")
	if b, err := json.Marshal(inputs); err == nil {
		upd.ToolInput = string(b)
	}
	st.saveThought(ctx, thoughtID, upd)

	// Dispatch sequentially in call order. Each result goes back as its
	// own tool message, paired by call id.
	observations := make(map[string]string, len(toolCalls))
	for i, tc := range toolCalls {
		res := st.dispatch(ctx, actions[i])
		observations[actions[i].Name] = res.Observation
		st.current = append(st.current, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: tc.ID,
				Name:       actions[i].Name,
				Content:    res.Observation,
			}},
		})
	}
	if b, err := json.Marshal(observations); err == nil {
		unit.Observation = string(b)
	}
	st.scratchpad = append(st.scratchpad, unit)
	upd.Observation = unit.Observation
	st.saveThought(ctx, thoughtID, upd)
	return false, nil
}

// renderPrompt assembles system + history + user turn + this run's
// assistant/tool messages so far. After the first call, image and file
// content in every replayed user turn is collapsed to placeholders, since
// most tool-calling models only honor multimodal content on the first
// submission.
func (d *functionCallingDialect) renderPrompt(st *run) []llms.MessageContent {
	cfg := st.r.cfg
	history := st.history
	if st.iteration > 1 {
		history = collapseAttachments(history)
	}
	msgs := make([]llms.MessageContent, 0, len(history)+len(st.current)+2)
	if cfg.Instruction != "" {
		instruction := interpolateInputs(cfg.Instruction, cfg.Inputs)
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, instruction))
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, st.userMessage())
	msgs = append(msgs, st.current...)
	return msgs
}

// collapseAttachments replaces non-text parts of user messages with short
// placeholders. Messages without attachments are passed through unchanged.
func collapseAttachments(msgs []llms.MessageContent) []llms.MessageContent {
	out := make([]llms.MessageContent, len(msgs))
	for i, msg := range msgs {
		out[i] = msg
		if msg.Role != llms.ChatMessageTypeHuman {
			continue
		}
		changed := false
		parts := make([]llms.ContentPart, len(msg.Parts))
		for j, part := range msg.Parts {
			if _, ok := part.(llms.TextContent); ok {
				parts[j] = part
				continue
			}
			parts[j] = llms.TextContent{Text: attachmentPlaceholder(part)}
			changed = true
		}
		if changed {
			out[i] = llms.MessageContent{Role: msg.Role, Parts: parts}
		}
	}
	return out
}

// actionFromToolCall converts a provider tool call to an Action, decoding
// JSON-object arguments when possible.
func actionFromToolCall(tc llms.ToolCall) *Action {
	action := &Action{Name: tc.FunctionCall.Name, Input: tc.FunctionCall.Arguments}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &decoded); err == nil {
		action.Input = decoded
	}
	return action
}
