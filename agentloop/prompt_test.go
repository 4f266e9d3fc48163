package agentloop

import (
	"testing"

	"github.com/martinemde/minichain/unifiedllm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallFormatRoundTrips(t *testing.T) {
	calls := unifiedllm.ExtractToolCalls(ToolCallFormat)
	require.Len(t, calls, 1)
	assert.Equal(t, "tool_name", calls[0].Name)
	assert.JSONEq(t, `{"param1":"value1","param2":"value2"}`, string(calls[0].Args))
}

func TestToolInstructionsText(t *testing.T) {
	assert.Equal(t,
		`I also provide some tools for you to choose from. If you want to call a tool, please include the following JSON format in your response: {"tool_calls":[{"name":"tool_name","args":{"param1":"value1","param2":"value2"}}]}`+
			"\n\n"+
			`IMPORTANT: After you have completed the task by calling all necessary tools, you MUST return a final response WITHOUT any tool_calls. Simply provide a summary or confirmation message to indicate completion. Do NOT continue calling tools after the task is done.`,
		ToolInstructions)
}

func TestBuildInitialMessages(t *testing.T) {
	tools := []ToolSchema{
		{Name: "a", Description: "A", Args: []ArgSchema{}},
		{Name: "b", Description: "B", Args: []ArgSchema{{Name: "n", ArgType: ArgInteger, Required: true}}},
	}

	msgs, err := buildInitialMessages("sys", tools, "hello")
	require.NoError(t, err)
	assert.Equal(t, []unifiedllm.Message{
		unifiedllm.SystemMessage("sys"),
		unifiedllm.DeveloperMessage(ToolInstructions),
		unifiedllm.SystemMessage(`{"name":"a","description":"A","args":[]}`),
		unifiedllm.SystemMessage(`{"name":"b","description":"B","args":[{"name":"n","arg_type":"integer","description":"","required":true}]}`),
		unifiedllm.UserMessage("hello"),
	}, msgs)

	bare, err := buildInitialMessages("", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []unifiedllm.Message{unifiedllm.UserMessage("")}, bare)
}

func TestToolResultMessage(t *testing.T) {
	msg := toolResultMessage("get_weather", "sunny")
	assert.Equal(t, unifiedllm.RoleTool, msg.Role)
	assert.Equal(t, "get_weather", msg.Name)
	assert.Equal(t, "Tool get_weather returned: sunny", msg.Content)
}

func TestConversationAppendOnly(t *testing.T) {
	conv := newConversation([]unifiedllm.Message{unifiedllm.UserMessage("hi")})
	snapshot := conv.Messages()
	snapshot[0].Content = "changed"

	conv.Append(unifiedllm.AssistantMessage("hello"))
	assert.Equal(t, 2, conv.Len())
	assert.Equal(t, "hi", conv.Messages()[0].Content)
	assert.Len(t, snapshot, 1)

	conv.recordToolCall("t", []byte(`{}`))
	conv.recordToolCall("t", []byte(`{ }`))
	sigs := conv.Signatures()
	require.Len(t, sigs, 2)
	assert.Equal(t, sigs[0], sigs[1])
}
