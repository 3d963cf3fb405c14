package agent

import "errors"

// Configuration errors. These indicate a misconfigured run and are returned
// by Runner.Run before the first iteration starts. Everything that can go
// wrong after that point (malformed actions, unknown tools, tool failures)
// is recovered locally and surfaced to the model as an observation instead.
var (
	// ErrUnknownStrategy is returned when Config.Strategy is not one of the
	// supported reasoning dialects.
	ErrUnknownStrategy = errors.New("agent: unknown strategy")

	// ErrMissingPromptTemplate is returned when the chain-of-thought dialect
	// is selected but no prompt template is configured.
	ErrMissingPromptTemplate = errors.New("agent: missing prompt template")

	// ErrUnsupportedPromptShape is returned when Config.PromptShape is not
	// chat or completion.
	ErrUnsupportedPromptShape = errors.New("agent: unsupported prompt shape")

	// ErrNoModel is returned when no model is attached to the runner.
	ErrNoModel = errors.New("agent: no model configured")
)
