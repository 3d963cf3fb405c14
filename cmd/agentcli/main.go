// Command agentcli is an interactive shell for exercising the reasoning
// loop against a real model. It reads a YAML config, wires a few demo
// tools and streams answers to the terminal.
//
// Usage:
//
//	OPENAI_API_KEY=... agentcli -config config.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	agent "github.com/xieshanrong/dify200"
	"github.com/xieshanrong/dify200/models"
	"github.com/xieshanrong/dify200/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentcli:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := "config.yaml"
	if len(os.Args) > 2 && os.Args[1] == "-config" {
		configPath = os.Args[2]
	}

	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		return err
	}

	llm, err := openai.New(openai.WithModel(cfg.ModelName))
	if err != nil {
		return err
	}

	runner := agent.NewRunner(cfg).
		WithModel(models.NewLCG(llm)).
		WithTools(clockTool(), calculatorTool()).
		WithSink(agent.SinkFunc(printEvent))

	rl, err := readline.New("you> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	var history []llms.MessageContent
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return nil
		}

		result, err := runner.Run(context.Background(), &agent.Request{
			Query:   query,
			History: history,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "run failed:", err)
			continue
		}
		fmt.Println()
		fmt.Printf("[%d iterations, %d tokens]\n",
			result.Iterations, result.Usage.TotalTokens)

		history = append(history,
			llms.TextParts(llms.ChatMessageTypeHuman, query),
			llms.TextParts(llms.ChatMessageTypeAI, result.Answer),
		)
	}
}

func printEvent(_ context.Context, ev agent.Event) {
	switch e := ev.(type) {
	case agent.AnswerChunkEvent:
		fmt.Print(e.Delta)
	case agent.ThoughtUpdatedEvent:
		if e.ToolName != "" && e.Observation == "" {
			fmt.Printf("\n[calling %s %s]\n", e.ToolName, e.ToolInput)
		}
	}
}

func clockTool() agent.Tool {
	return &agent.FuncTool{
		ToolName:        "current_time",
		ToolDescription: "Returns the current date and time.",
		Schema: schema.Object(map[string]*schema.Property{
			"timezone": schema.String("IANA timezone name, defaults to UTC"),
		}),
		Fn: func(_ context.Context, args any) (*agent.ToolOutput, error) {
			loc := time.UTC
			if m, ok := args.(map[string]any); ok {
				if tz, ok := m["timezone"].(string); ok && tz != "" {
					parsed, err := time.LoadLocation(tz)
					if err != nil {
						return nil, fmt.Errorf("unknown timezone %q", tz)
					}
					loc = parsed
				}
			}
			return &agent.ToolOutput{Text: time.Now().In(loc).Format(time.RFC1123)}, nil
		},
	}
}

func calculatorTool() agent.Tool {
	return &agent.FuncTool{
		ToolName:        "calculator",
		ToolDescription: "Adds, subtracts, multiplies or divides two numbers.",
		Schema: schema.Object(map[string]*schema.Property{
			"op": schema.String("Operation").Enum("add", "sub", "mul", "div"),
			"a":  schema.Number("First operand"),
			"b":  schema.Number("Second operand"),
		}, "op", "a", "b"),
		Fn: func(_ context.Context, args any) (*agent.ToolOutput, error) {
			m, ok := args.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected an arguments object")
			}
			a, _ := m["a"].(float64)
			b, _ := m["b"].(float64)
			var result float64
			switch m["op"] {
			case "add":
				result = a + b
			case "sub":
				result = a - b
			case "mul":
				result = a * b
			case "div":
				if b == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = a / b
			default:
				return nil, fmt.Errorf("unknown op %v", m["op"])
			}
			return &agent.ToolOutput{Text: strconv.FormatFloat(result, 'g', -1, 64)}, nil
		},
	}
}
