package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// chainOfThoughtDialect drives the loop through the free-text ReAct
// protocol. Tools are advertised inside the prompt, the model's output is
// parsed online by ActionParser, and observations are spliced back in as
// scratchpad text.
type chainOfThoughtDialect struct {
	template *PromptTemplate
}

func (d *chainOfThoughtDialect) step(ctx context.Context, st *run, withTools bool) (bool, error) {
	thoughtID := st.beginThought(ctx)

	var specs []ToolSpec
	if withTools {
		specs = st.r.dispatcher.Specs(ctx)
	}

	stream, err := st.r.model.Invoke(ctx, &InvokeRequest{
		Messages: d.renderPrompt(st, specs),
		Params:   st.r.cfg.Params,
		Stop:     st.stopWords(),
	})
	if err != nil {
		return false, fmt.Errorf("agent: model invoke: %w", err)
	}

	callAcc := NewUsageAccumulator()
	var unit ScratchpadUnit
	for seg := range ParseStream(stream.Chunks(), callAcc) {
		if seg.Action != nil {
			// One action per iteration; the first one observed wins and
			// later ones are dropped.
			if raw, err := json.Marshal(seg.Action); err == nil {
				unit.AgentResponse += string(raw)
				if unit.Action == nil {
					unit.ActionRaw = string(raw)
				}
			}
			if unit.Action == nil {
				unit.Action = seg.Action
			}
			continue
		}
		unit.AgentResponse += seg.Text
		unit.Thought += seg.Text
		st.emitAnswer(ctx, seg.Text)
	}
	if err := stream.Err(); err != nil {
		return false, fmt.Errorf("agent: model stream: %w", err)
	}

	unit.Thought = strings.TrimSpace(unit.Thought)
	if unit.Thought == "" {
		unit.Thought = defaultThought
	}

	var callUsage *Usage
	if callAcc.Seen() {
		u := callAcc.Total()
		callUsage = &u
		st.usage.Add(&u)
	}

	st.scratchpad = append(st.scratchpad, unit)
	idx := len(st.scratchpad) - 1

	upd := ThoughtUpdate{Thought: unit.Thought, Usage: callUsage}
	if unit.Action != nil {
		upd.ToolName = unit.Action.Name
		upd.ToolInput = unit.Action.InputString()
	}

	if unit.Action == nil {
		st.finalAnswer = finalFromText(unit.AgentResponse)
		upd.Answer = st.finalAnswer
		st.saveThought(ctx, thoughtID, upd)
		return true, nil
	}
	if unit.Action.IsFinalAnswer() {
		st.finalAnswer = unit.Action.InputString()
		st.emitAnswer(ctx, st.finalAnswer)
		upd.Answer = st.finalAnswer
		st.saveThought(ctx, thoughtID, upd)
		return true, nil
	}

	st.saveThought(ctx, thoughtID, upd)

	res := st.dispatch(ctx, unit.Action)
	st.scratchpad[idx].Observation = res.Observation
	upd.Observation = res.Observation
	st.saveThought(ctx, thoughtID, upd)
	return false, nil
}

// renderPrompt assembles the full prompt for one call in the configured
// shape. specs is empty on the forced-final call, so the rendered catalog
// offers the model nothing to call.
func (d *chainOfThoughtDialect) renderPrompt(st *run, specs []ToolSpec) []llms.MessageContent {
	cfg := st.r.cfg
	vars := map[string]string{
		"instruction": interpolateInputs(cfg.Instruction, cfg.Inputs),
		"tools":       toolCatalog(specs),
		"tool_names":  toolNameList(specs),
	}

	if cfg.PromptShape == PromptShapeCompletion {
		vars["historic_messages"] = historicText(st.history)
		vars["agent_scratchpad"] = formatScratchpad(st.scratchpad)
		vars["query"] = st.req.Query
		prompt := renderTemplate(d.template.FirstPrompt, vars)
		return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}
	}

	msgs := make([]llms.MessageContent, 0, len(st.history)+4)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, renderTemplate(d.template.FirstPrompt, vars)))
	msgs = append(msgs, st.history...)
	msgs = append(msgs, st.userMessage())
	if len(st.scratchpad) > 0 {
		msgs = append(msgs,
			llms.TextParts(llms.ChatMessageTypeAI, formatScratchpad(st.scratchpad)),
			llms.TextParts(llms.ChatMessageTypeHuman, d.template.NextIteration),
		)
	}
	return msgs
}

// historicText flattens compacted history into the text block the
// completion template splices in.
func historicText(history []llms.MessageContent) string {
	var sb strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case llms.ChatMessageTypeHuman:
			sb.WriteString("Question: ")
			sb.WriteString(messageText(msg))
			sb.WriteString("\n\n")
		case llms.ChatMessageTypeAI:
			sb.WriteString(messageText(msg))
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func messageText(msg llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// finalFromText extracts the final answer from a response that never
// produced an action. A trailing "Final Answer:" marker wins; otherwise the
// whole response is the answer.
func finalFromText(text string) string {
	lower := strings.ToLower(text)
	if idx := strings.LastIndex(lower, "final answer:"); idx >= 0 {
		return strings.TrimSpace(text[idx+len("final answer:"):])
	}
	return strings.TrimSpace(text)
}
