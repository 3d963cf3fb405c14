package agent

import "context"

// Tool is a capability the reasoning loop may invoke.
//
// ParameterSchema returns a JSON Schema object describing the arguments.
// Invoke receives the decoded arguments: a map[string]any when the model
// produced a JSON object, or the raw string when it did not.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() map[string]any
	Invoke(ctx context.Context, args any) (*ToolOutput, error)
}

// ToolOutput is the result of one tool invocation.
type ToolOutput struct {
	// Text is the observation fed back to the model.
	Text string

	// FileIDs reference artifacts the tool produced, announced to the
	// event sink as MessageFileEvents.
	FileIDs []string
}

// ToolSpec is the serializable description of a tool, as exposed to the
// model. Specs are refreshed every iteration so tools whose schemas depend
// on runtime state stay current.
type ToolSpec struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
}

// RuntimeParameterProvider is implemented by tools whose parameter schema
// changes between iterations, for example when an upstream catalog updates
// mid-run. The dispatcher prefers it over ParameterSchema when present.
type RuntimeParameterProvider interface {
	RuntimeParameterSchema(ctx context.Context) map[string]any
}

// FuncTool adapts a plain function to the Tool interface.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	Schema          map[string]any
	Fn              func(ctx context.Context, args any) (*ToolOutput, error)
}

var _ Tool = (*FuncTool)(nil)

func (t *FuncTool) Name() string                    { return t.ToolName }
func (t *FuncTool) Description() string             { return t.ToolDescription }
func (t *FuncTool) ParameterSchema() map[string]any { return t.Schema }

func (t *FuncTool) Invoke(ctx context.Context, args any) (*ToolOutput, error) {
	return t.Fn(ctx, args)
}
