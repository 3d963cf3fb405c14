package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xieshanrong/dify200/internal/tt"
)

func TestCompactCollapsesToolExchange(t *testing.T) {
	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "what's the weather"),
		{
			Role: llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: "Let me check."},
				llms.ToolCall{
					ID:   "call-1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "search",
						Arguments: `{"q":"weather"}`,
					},
				},
			},
		},
		{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{ToolCallID: "call-1", Name: "search", Content: "sunny"},
			},
		},
		llms.TextParts(llms.ChatMessageTypeAI, "It is sunny."),
	}

	c := &Compactor{}
	out := c.Compact(history)

	require.Len(t, out, 2)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, out[1].Role)

	tt.RequireEqualText(t,
		"Thought: Let me check.\n\n"+
			`Action: {"action":"search","action_input":{"q":"weather"}}`+"\n\n"+
			"Observation: sunny\n\n"+
			"Final Answer: It is sunny.",
		messageText(out[1]))
}

func TestCompactPairsObservationsByCallID(t *testing.T) {
	history := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{
				llms.ToolCall{ID: "c1", Type: "function",
					FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"a"}`}},
			},
		},
		{
			Role: llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{
				llms.ToolCall{ID: "c2", Type: "function",
					FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"b"}`}},
			},
		},
		// Results arrive out of order; pairing goes by call id.
		{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{ToolCallID: "c2", Name: "search", Content: "second"},
			},
		},
		{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{ToolCallID: "c1", Name: "search", Content: "first"},
			},
		},
	}

	out := (&Compactor{}).Compact(history)
	require.Len(t, out, 1)

	text := messageText(out[0])
	assert.Regexp(t, `(?s)"q":"a".*Observation: first.*"q":"b".*Observation: second`, text)
}

func TestCompactTrimsToBudget(t *testing.T) {
	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "rules"),
		llms.TextParts(llms.ChatMessageTypeHuman, "first question"),
		llms.TextParts(llms.ChatMessageTypeAI, "first answer"),
		llms.TextParts(llms.ChatMessageTypeHuman, "second question"),
	}

	c := &Compactor{
		Counter: TokenCounterFunc(func(msgs []llms.MessageContent) int {
			return len(msgs) * 10
		}),
		Budget: 20,
	}

	out := c.Compact(history)
	require.Len(t, out, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, "second question", messageText(out[1]))
}

func TestScratchpadRoundTrip(t *testing.T) {
	// Rendering a scratchpad to protocol text and re-parsing it yields
	// the same action back, with the observation as plain text.
	unit := ScratchpadUnit{
		Thought:     "need the weather",
		ActionRaw:   `{"action":"search","action_input":{"q":"weather"}}`,
		Action:      &Action{Name: "search", Input: map[string]any{"q": "weather"}},
		Observation: "sunny",
	}

	segs := parseAll(formatScratchpad([]ScratchpadUnit{unit}))

	var action *Action
	var text string
	for _, seg := range segs {
		if seg.Action != nil {
			action = seg.Action
			continue
		}
		text += seg.Text
	}
	require.NotNil(t, action)
	assert.Equal(t, unit.Action, action)
	assert.Contains(t, text, "need the weather")
	assert.Contains(t, text, "sunny")
}

func TestEnsureCallID(t *testing.T) {
	tc := llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "x"}}
	filled := ensureCallID(tc)
	assert.NotEmpty(t, filled.ID)

	tc.ID = "keep-me"
	assert.Equal(t, "keep-me", ensureCallID(tc).ID)
}
