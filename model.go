package agent

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Chunk is one unit of streamed model output. Exactly one of Delta and
// ToolCalls is meaningful per chunk; Usage may ride along on any chunk and
// is typically attached to the last one.
type Chunk struct {
	// Delta is a fragment of assistant text. Fragments carry no boundary
	// guarantees and may split words, keywords or JSON tokens anywhere.
	Delta string

	// ToolCalls are structured tool-call directives, used by the
	// function-calling dialect. Providers that stream partial tool calls
	// must coalesce them before emitting.
	ToolCalls []llms.ToolCall

	// Usage is the token accounting for the call, nil until known.
	Usage *Usage
}

// InvokeRequest is a single model invocation.
type InvokeRequest struct {
	// Messages is the full prompt, most recent last.
	Messages []llms.MessageContent

	// Params are provider-specific generation parameters such as
	// temperature and max_tokens, passed through untouched.
	Params map[string]any

	// Tools are the tool specifications exposed for this call. Empty on
	// the forced-final iteration, where the model must answer in text.
	Tools []ToolSpec

	// Stop are additional stop sequences for this call.
	Stop []string
}

// Model is a streaming chat model. Invoke returns immediately with a stream
// that the provider fills from its own goroutine; callers range over
// Stream.Chunks and check Stream.Err once the channel closes.
type Model interface {
	Invoke(ctx context.Context, req *InvokeRequest) (*ChunkStream, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, req *InvokeRequest) (*ChunkStream, error)

func (f ModelFunc) Invoke(ctx context.Context, req *InvokeRequest) (*ChunkStream, error) {
	return f(ctx, req)
}

var _ Model = (ModelFunc)(nil)
