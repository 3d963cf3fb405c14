package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Iteration bounds. The configured value is clamped to the ceiling; the
// loop then allows one extra iteration where tools are withheld and the
// model must answer in plain text.
const (
	defaultMaxIterations = 10
	maxIterationsCeiling = 99
)

// Config describes one agent run. The zero value is not usable; fill in at
// least Strategy and call Normalize before handing it to a Runner.
type Config struct {
	// Provider and ModelName identify the backing model. Provider also
	// drives provider quirks such as stop-word support.
	Provider  string `yaml:"provider"`
	ModelName string `yaml:"model"`

	// Strategy selects the reasoning dialect.
	Strategy Strategy `yaml:"strategy"`

	// PromptShape selects chat or completion prompt assembly. Only the
	// chain-of-thought dialect reads it. Defaults to chat.
	PromptShape PromptShape `yaml:"prompt_shape"`

	// MaxIterations caps reasoning iterations. Defaults to 10, clamped
	// to 99.
	MaxIterations int `yaml:"max_iterations"`

	// Instruction is the caller's standing instruction, with {{key}}
	// placeholders filled from Inputs.
	Instruction string            `yaml:"instruction"`
	Inputs      map[string]string `yaml:"inputs"`

	// Stop are extra stop sequences forwarded on every model call.
	Stop []string `yaml:"stop"`

	// Params are provider-specific generation parameters.
	Params map[string]any `yaml:"params"`
}

// Normalize fills defaults and clamps out-of-range values.
func (c *Config) Normalize() {
	if c.PromptShape == "" {
		c.PromptShape = PromptShapeChat
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.MaxIterations > maxIterationsCeiling {
		c.MaxIterations = maxIterationsCeiling
	}
}

// Validate reports configuration errors. Call Normalize first.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyChainOfThought, StrategyFunctionCalling:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
	}
	switch c.PromptShape {
	case PromptShapeChat, PromptShapeCompletion:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPromptShape, c.PromptShape)
	}
	return nil
}

// LoadConfig reads, normalizes and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses, normalizes and validates YAML config bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("agent: parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
