package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseAll feeds every fragment and flushes, collecting all segments. Feed
// reuses its return slice, so segments are copied out.
func parseAll(fragments ...string) []Segment {
	p := NewActionParser()
	var all []Segment
	for _, frag := range fragments {
		all = append(all, p.Feed(frag)...)
	}
	return append(all, p.Flush()...)
}

func TestParserFragmentation(t *testing.T) {
	fragments := []string{`{"acti`, `on": "sea`, `rch", "action_inp`, `ut": {"q":"weather"}}`}

	segs := parseAll(fragments...)
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Action)
	assert.Equal(t, "search", segs[0].Action.Name)
	assert.Equal(t, map[string]any{"q": "weather"}, segs[0].Action.Input)

	// The same content in one fragment parses identically.
	whole := parseAll(`{"action": "search", "action_input": {"q":"weather"}}`)
	require.Len(t, whole, 1)
	assert.Equal(t, segs[0].Action, whole[0].Action)
}

func TestParserFencedAction(t *testing.T) {
	segs := parseAll("Thought: I should search.\nAction:\n```json\n" +
		`{"action": "search", "action_input": {"q": "go"}}` + "\n```\ndone")

	require.Len(t, segs, 3)
	assert.Equal(t, " I should search.\n\n", segs[0].Text)
	require.NotNil(t, segs[1].Action)
	assert.Equal(t, "search", segs[1].Action.Name)
	assert.Equal(t, map[string]any{"q": "go"}, segs[1].Action.Input)
	assert.Equal(t, "\ndone", segs[2].Text)
}

func TestParserFenceKeepsPlainText(t *testing.T) {
	segs := parseAll("```\nhello world\n```")
	require.Len(t, segs, 1)
	assert.Nil(t, segs[0].Action)
	assert.Equal(t, "\nhello world\n", segs[0].Text)
}

func TestParserFenceSplitAcrossFragments(t *testing.T) {
	segs := parseAll("``", "`\n{\"action\": \"x\", \"action_in", "put\": \"y\"}\n``", "`")
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Action)
	assert.Equal(t, "x", segs[0].Action.Name)
	assert.Equal(t, "y", segs[0].Action.Input)
}

func TestParserKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "thought swallowed", input: "Thought: all good", want: " all good"},
		{name: "case insensitive", input: "THOUGHT: hi", want: " hi"},
		{name: "action swallowed after newline", input: "x\nAction: y", want: "x\n y"},
		{name: "mid word untouched", input: "reaction: no", want: "reaction: no"},
		{name: "partial match flushed", input: "actor on stage", want: "actor on stage"},
		{name: "partial at stream end flushed", input: "Though", want: "Though"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := parseAll(tt.input)
			require.Len(t, segs, 1)
			assert.Equal(t, tt.want, segs[0].Text)
		})
	}
}

func TestParserStrayBackticksSwallowed(t *testing.T) {
	segs := parseAll("use `gofmt` here")
	require.Len(t, segs, 1)
	assert.Equal(t, "use gofmt here", segs[0].Text)
}

func TestParserSingletonListUnwrapped(t *testing.T) {
	segs := parseAll("```\n" + `[{"action": "lookup", "action_input": "id-7"}]` + "\n```")
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Action)
	assert.Equal(t, "lookup", segs[0].Action.Name)
	assert.Equal(t, "id-7", segs[0].Action.Input)
}

func TestParserActionKeyRule(t *testing.T) {
	// Any key containing "input" supplies the input, any other key the
	// name, whatever the exact spelling.
	segs := parseAll(`{"tool": "search", "tool_input": "query"}`)
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Action)
	assert.Equal(t, "search", segs[0].Action.Name)
	assert.Equal(t, "query", segs[0].Action.Input)
}

func TestParserIncompleteObjectIsText(t *testing.T) {
	// Only one of the two required keys: re-serialized as text.
	segs := parseAll(`{"action": "x"}`)
	require.Len(t, segs, 1)
	assert.Nil(t, segs[0].Action)
	assert.JSONEq(t, `{"action": "x"}`, segs[0].Text)
}

func TestParserMalformedJSONDegradesToText(t *testing.T) {
	segs := parseAll(`{"action": broken}`)
	require.Len(t, segs, 1)
	assert.Nil(t, segs[0].Action)
	assert.Equal(t, `{"action": broken}`, segs[0].Text)
}

func TestParserFlushUnterminated(t *testing.T) {
	p := NewActionParser()
	assert.Empty(t, p.Feed(`{"action": "x", "action_input": "y"`))

	segs := p.Flush()
	require.Len(t, segs, 1)
	assert.Nil(t, segs[0].Action)
	assert.Equal(t, `{"action": "x", "action_input": "y"`, segs[0].Text)
}

func TestParserFlushUnterminatedFence(t *testing.T) {
	p := NewActionParser()
	assert.Empty(t, p.Feed("```\npartial fence body"))

	segs := p.Flush()
	require.Len(t, segs, 1)
	assert.Equal(t, "\npartial fence body", segs[0].Text)
}

func TestParserNestedJSON(t *testing.T) {
	segs := parseAll(`{"action": "update", "action_input": {"user": {"name": "ann"}, "id": 3}}`)
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Action)
	assert.Equal(t, "update", segs[0].Action.Name)
	assert.Equal(t, map[string]any{
		"user": map[string]any{"name": "ann"},
		"id":   3.0,
	}, segs[0].Action.Input)
}

func TestParseStream(t *testing.T) {
	chunks := make(chan Chunk, 4)
	chunks <- Chunk{Delta: "Thought: searching\n"}
	chunks <- Chunk{Delta: `{"action": "search", "action_input": "x"}`}
	chunks <- Chunk{Usage: &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	close(chunks)

	acc := NewUsageAccumulator()
	var segs []Segment
	for seg := range ParseStream(chunks, acc) {
		segs = append(segs, seg)
	}

	require.Len(t, segs, 2)
	assert.Equal(t, " searching\n", segs[0].Text)
	require.NotNil(t, segs[1].Action)
	assert.Equal(t, "search", segs[1].Action.Name)
	assert.Equal(t, 15, acc.Total().TotalTokens)
}

func TestActionIsFinalAnswer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "exact", input: "Final Answer", want: true},
		{name: "upper", input: "FINAL ANSWER", want: true},
		{name: "extra space", input: "final  answer", want: true},
		{name: "underscore", input: "final_answer", want: true},
		{name: "hyphen", input: "final-answer", want: true},
		{name: "tool", input: "search", want: false},
		{name: "containing tool name", input: "finalize_answer", want: false},
		{name: "words in phrase", input: "the final answer", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Action{Name: tt.input}
			assert.Equal(t, tt.want, a.IsFinalAnswer())
		})
	}
}
