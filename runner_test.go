package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieshanrong/dify200/schema"
)

// scriptedModel replays a fixed chunk script per call and records every
// request it sees.
type scriptedModel struct {
	scripts [][]Chunk
	calls   []*InvokeRequest
}

func (m *scriptedModel) Invoke(_ context.Context, req *InvokeRequest) (*ChunkStream, error) {
	m.calls = append(m.calls, req)
	var chunks []Chunk
	if n := len(m.calls) - 1; n < len(m.scripts) {
		chunks = m.scripts[n]
	}
	stream := NewChunkStream()
	go func() {
		for _, c := range chunks {
			stream.Send(c)
		}
		stream.Close()
	}()
	return stream, nil
}

// textScript splits text into small deltas to exercise fragment handling,
// then attaches usage.
func textScript(text string) []Chunk {
	var chunks []Chunk
	for len(text) > 0 {
		n := 7
		if n > len(text) {
			n = len(text)
		}
		chunks = append(chunks, Chunk{Delta: text[:n]})
		text = text[n:]
	}
	return append(chunks, Chunk{Usage: &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}})
}

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, ev Event) {
	s.events = append(s.events, ev)
}

type recordingStore struct {
	created int
	updates []ThoughtUpdate
}

func (s *recordingStore) CreateThought(context.Context) (string, error) {
	s.created++
	return fmt.Sprintf("thought-%d", s.created), nil
}

func (s *recordingStore) UpdateThought(_ context.Context, _ string, upd ThoughtUpdate) error {
	s.updates = append(s.updates, upd)
	return nil
}

func weatherTool(t *testing.T) Tool {
	t.Helper()
	return &FuncTool{
		ToolName:        "weather",
		ToolDescription: "Looks up the weather for a city.",
		Schema: schema.Object(map[string]*schema.Property{
			"city": schema.String("City name"),
		}, "city"),
		Fn: func(_ context.Context, args any) (*ToolOutput, error) {
			m, ok := args.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected an arguments object")
			}
			return &ToolOutput{Text: fmt.Sprintf("sunny in %v", m["city"])}, nil
		},
	}
}

func TestRunRequiresModel(t *testing.T) {
	r := NewRunner(&Config{Strategy: StrategyChainOfThought})
	_, err := r.Run(context.Background(), &Request{Query: "hi"})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	r := NewRunner(&Config{Strategy: "telepathy"}).WithModel(&scriptedModel{})
	_, err := r.Run(context.Background(), &Request{Query: "hi"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRunRejectsEmptyTemplate(t *testing.T) {
	r := NewRunner(&Config{Strategy: StrategyChainOfThought}).
		WithModel(&scriptedModel{}).
		WithTemplate(PromptTemplate{})
	_, err := r.Run(context.Background(), &Request{Query: "hi"})
	assert.ErrorIs(t, err, ErrMissingPromptTemplate)
}

func TestRunEventsAndPersistence(t *testing.T) {
	model := &scriptedModel{scripts: [][]Chunk{
		textScript("Thought: quick question\n" + `{"action": "weather", "action_input": {"city": "Oslo"}}`),
		textScript(`{"action": "Final Answer", "action_input": "Sunny."}`),
	}}
	sink := &recordingSink{}
	store := &recordingStore{}

	r := NewRunner(&Config{Strategy: StrategyChainOfThought}).
		WithModel(model).
		WithTools(weatherTool(t)).
		WithSink(sink).
		WithStore(store)

	result, err := r.Run(context.Background(), &Request{Query: "weather in Oslo?"})
	require.NoError(t, err)
	assert.Equal(t, "Sunny.", result.Answer)

	// One record per iteration; the tool iteration is saved twice (before
	// and after the observation), the final one once.
	assert.Equal(t, 2, store.created)
	require.Len(t, store.updates, 3)
	assert.Equal(t, "weather", store.updates[0].ToolName)
	assert.Empty(t, store.updates[0].Observation)
	assert.Equal(t, "sunny in Oslo", store.updates[1].Observation)
	assert.Equal(t, "Sunny.", store.updates[2].Answer)

	var created, updated, ended int
	var answer string
	for _, ev := range sink.events {
		switch e := ev.(type) {
		case ThoughtCreatedEvent:
			created++
			assert.NotEmpty(t, e.ThoughtID)
		case ThoughtUpdatedEvent:
			updated++
		case AnswerChunkEvent:
			answer += e.Delta
		case MessageEndEvent:
			ended++
			assert.Equal(t, "Sunny.", e.FinalAnswer)
			assert.Equal(t, 30, e.Usage.TotalTokens)
			assert.Len(t, e.Scratchpad, 2)
		}
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 3, updated)
	assert.Equal(t, 1, ended)
	assert.Contains(t, answer, "quick question")
	assert.Contains(t, answer, "Sunny.")

	// The run total matches what the events reported.
	assert.Equal(t, 30, result.Usage.TotalTokens)
	assert.Equal(t, 20, result.Usage.PromptTokens)
}
