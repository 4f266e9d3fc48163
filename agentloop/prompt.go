package agentloop

import (
	"fmt"

	"github.com/martinemde/minichain/unifiedllm"
)

// ToolCallFormat is the JSON shape the model is told to emit to call tools.
// ExtractToolCalls parses the same shape back out.
const ToolCallFormat = `{"tool_calls":[{"name":"tool_name","args":{"param1":"value1","param2":"value2"}}]}`

// ToolInstructions is the developer note sent whenever at least one tool is
// registered.
const ToolInstructions = "I also provide some tools for you to choose from. " +
	"If you want to call a tool, please include the following JSON format in your response: " +
	ToolCallFormat +
	"\n\nIMPORTANT: After you have completed the task by calling all necessary tools, " +
	"you MUST return a final response WITHOUT any tool_calls. " +
	"Simply provide a summary or confirmation message to indicate completion. " +
	"Do NOT continue calling tools after the task is done."

// buildInitialMessages assembles the opening of a run: the system prompt,
// the tool instructions and one system message per tool schema, then the
// user prompt.
func buildInitialMessages(systemPrompt string, tools []ToolSchema, prompt string) ([]unifiedllm.Message, error) {
	msgs := make([]unifiedllm.Message, 0, len(tools)+3)
	if systemPrompt != "" {
		msgs = append(msgs, unifiedllm.SystemMessage(systemPrompt))
	}
	if len(tools) > 0 {
		msgs = append(msgs, unifiedllm.DeveloperMessage(ToolInstructions))
	}
	for _, schema := range tools {
		text, err := schema.JSON()
		if err != nil {
			return nil, fmt.Errorf("encode schema for tool %q: %w", schema.Name, err)
		}
		msgs = append(msgs, unifiedllm.SystemMessage(text))
	}
	msgs = append(msgs, unifiedllm.UserMessage(prompt))
	return msgs, nil
}

// toolResultMessage wraps a tool's output for the next generation.
func toolResultMessage(name, output string) unifiedllm.Message {
	return unifiedllm.ToolResultMessage(name, fmt.Sprintf("Tool %s returned: %s", name, output))
}
