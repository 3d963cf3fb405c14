// Package models adapts langchaingo model implementations to the agent
// Model interface.
package models

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	agent "github.com/xieshanrong/dify200"
)

// Pricing converts token counts to prices. Rates are per thousand tokens.
type Pricing struct {
	PromptPerThousand     float64
	CompletionPerThousand float64
	Currency              string
}

// LCG wraps any langchaingo llms.Model as a streaming agent model.
//
// Text deltas are forwarded as they arrive from the provider; tool calls
// and usage are emitted once the call completes, since langchaingo only
// exposes them on the final response.
type LCG struct {
	llm     llms.Model
	pricing *Pricing
}

var _ agent.Model = (*LCG)(nil)

// NewLCG wraps llm.
func NewLCG(llm llms.Model) *LCG {
	return &LCG{llm: llm}
}

// WithPricing attaches a pricing table so emitted usage carries prices.
func (m *LCG) WithPricing(p Pricing) *LCG {
	m.pricing = &p
	return m
}

func (m *LCG) Invoke(ctx context.Context, req *agent.InvokeRequest) (*agent.ChunkStream, error) {
	stream := agent.NewChunkStream()

	streamed := false
	opts := []llms.CallOption{
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			streamed = true
			stream.SendText(string(chunk))
			return nil
		}),
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(convertTools(req.Tools)))
	}
	opts = append(opts, paramOptions(req.Params)...)

	go func() {
		resp, err := m.llm.GenerateContent(ctx, req.Messages, opts...)
		if err != nil {
			stream.Fail(err)
			return
		}
		if len(resp.Choices) > 0 {
			choice := resp.Choices[0]
			// Providers that ignore the streaming func return the whole
			// text on the response instead.
			if !streamed && choice.Content != "" {
				stream.SendText(choice.Content)
			}
			if len(choice.ToolCalls) > 0 {
				stream.Send(agent.Chunk{ToolCalls: choice.ToolCalls})
			}
			if usage := extractUsage(choice.GenerationInfo); usage != nil {
				m.price(usage)
				stream.Send(agent.Chunk{Usage: usage})
			}
		}
		stream.Close()
	}()
	return stream, nil
}

func (m *LCG) price(u *agent.Usage) {
	if m.pricing == nil {
		return
	}
	u.PromptPrice = float64(u.PromptTokens) / 1000 * m.pricing.PromptPerThousand
	u.CompletionPrice = float64(u.CompletionTokens) / 1000 * m.pricing.CompletionPerThousand
	u.TotalPrice = u.PromptPrice + u.CompletionPrice
	u.Currency = m.pricing.Currency
}

func convertTools(specs []agent.ToolSpec) []llms.Tool {
	tools := make([]llms.Tool, len(specs))
	for i, spec := range specs {
		tools[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		}
	}
	return tools
}

// paramOptions maps generic generation parameters to langchaingo call
// options. Unknown keys are dropped.
func paramOptions(params map[string]any) []llms.CallOption {
	var opts []llms.CallOption
	if v, ok := floatParam(params, "temperature"); ok {
		opts = append(opts, llms.WithTemperature(v))
	}
	if v, ok := floatParam(params, "top_p"); ok {
		opts = append(opts, llms.WithTopP(v))
	}
	if v, ok := floatParam(params, "max_tokens"); ok {
		opts = append(opts, llms.WithMaxTokens(int(v)))
	}
	return opts
}

func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// extractUsage normalizes provider token accounting out of GenerationInfo.
// Key names differ per provider; nil means the provider reported nothing.
func extractUsage(info map[string]any) *agent.Usage {
	if info == nil {
		return nil
	}
	prompt, okP := tokenCount(info, "PromptTokens", "prompt_tokens", "input_tokens")
	completion, okC := tokenCount(info, "CompletionTokens", "completion_tokens", "output_tokens")
	if !okP && !okC {
		return nil
	}
	total, okT := tokenCount(info, "TotalTokens", "total_tokens")
	if !okT {
		total = prompt + completion
	}
	return &agent.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func tokenCount(info map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v, true
		case int32:
			return int(v), true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}
