package agent

import (
	"encoding/json"
	"strings"
)

// DefaultChatTemplate is the stock ReAct instruction set for chat-shaped
// prompts. FirstPrompt becomes the system message; the scratchpad rides in
// a trailing assistant message followed by the NextIteration nudge.
var DefaultChatTemplate = PromptTemplate{
	FirstPrompt: "Respond to the human as helpfully and accurately as possible.\n\n" +
		"{{instruction}}\n\n" +
		"You have access to the following tools:\n\n" +
		"{{tools}}\n\n" +
		"Use a json blob to specify a tool by providing an action key (tool name) " +
		"and an action_input key (tool input).\n" +
		"Valid \"action\" values: \"Final Answer\" or {{tool_names}}\n\n" +
		"Provide only ONE action per $JSON_BLOB, as shown:\n\n" +
		"```\n{\n  \"action\": $TOOL_NAME,\n  \"action_input\": $ACTION_INPUT\n}\n```\n\n" +
		"Follow this format:\n\n" +
		"Question: input question to answer\n" +
		"Thought: consider previous and subsequent steps\n" +
		"Action:\n```\n$JSON_BLOB\n```\n" +
		"Observation: action result\n" +
		"... (repeat Thought/Action/Observation N times)\n" +
		"Thought: I know what to respond\n" +
		"Action:\n```\n{\n  \"action\": \"Final Answer\",\n  \"action_input\": \"Final response to human\"\n}\n```\n\n" +
		"Begin! Reminder to ALWAYS respond with a valid json blob of a single action. " +
		"Use tools if necessary. Respond directly if appropriate. " +
		"Format is Action:```$JSON_BLOB```then Observation:.",
	NextIteration: "continue",
}

// DefaultCompletionTemplate is the stock ReAct instruction set for
// completion-shaped prompts. The whole conversation renders into a single
// message, history and scratchpad spliced in via placeholders.
var DefaultCompletionTemplate = PromptTemplate{
	FirstPrompt: "Respond to the human as helpfully and accurately as possible.\n\n" +
		"{{instruction}}\n\n" +
		"You have access to the following tools:\n\n" +
		"{{tools}}\n\n" +
		"Use a json blob to specify a tool by providing an action key (tool name) " +
		"and an action_input key (tool input).\n" +
		"Valid \"action\" values: \"Final Answer\" or {{tool_names}}\n\n" +
		"Provide only ONE action per $JSON_BLOB, as shown:\n\n" +
		"```\n{\n  \"action\": $TOOL_NAME,\n  \"action_input\": $ACTION_INPUT\n}\n```\n\n" +
		"Follow this format:\n\n" +
		"Question: input question to answer\n" +
		"Thought: consider previous and subsequent steps\n" +
		"Action:\n```\n$JSON_BLOB\n```\n" +
		"Observation: action result\n" +
		"... (repeat Thought/Action/Observation N times)\n" +
		"Thought: I know what to respond\n" +
		"Action:\n```\n{\n  \"action\": \"Final Answer\",\n  \"action_input\": \"Final response to human\"\n}\n```\n\n" +
		"Begin! Reminder to ALWAYS respond with a valid json blob of a single action. " +
		"Use tools if necessary. Respond directly if appropriate.\n\n" +
		"{{historic_messages}}\n" +
		"Question: {{query}}\n" +
		"{{agent_scratchpad}}\n" +
		"Thought:",
	NextIteration: "continue",
}

// renderTemplate substitutes {{name}} placeholders literally. Unknown
// placeholders are left in place; no escaping or logic is applied.
func renderTemplate(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// interpolateInputs substitutes {{key}} placeholders in the caller
// instruction from the run inputs.
func interpolateInputs(instruction string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return instruction
	}
	return renderTemplate(instruction, inputs)
}

// toolCatalog renders tool specs as the JSON catalog the prompt embeds.
func toolCatalog(specs []ToolSpec) string {
	if len(specs) == 0 {
		return "[]"
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// toolNameList renders quoted tool names for the {{tool_names}} slot.
func toolNameList(specs []ToolSpec) string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = `"` + spec.Name + `"`
	}
	return strings.Join(names, ", ")
}
