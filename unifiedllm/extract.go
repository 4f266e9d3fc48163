package unifiedllm

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

var emptyArgs = json.RawMessage(`{}`)

// ExtractToolCalls parses the tool-call convention
//
//	{"tool_calls":[{"name":"<tool>","args":{...}}]}
//
// out of raw model output. The whole text is tried first; failing that, the
// span from the first '{' to the last '}' is tried, which lets models wrap
// the JSON in prose. Entries without a string name are dropped and a
// missing or non-object args becomes {}. Text with no recognisable
// structure yields no calls.
func ExtractToolCalls(text string) []ToolCallRequest {
	doc, ok := parseToolCallDocument(text)
	if !ok {
		return nil
	}

	entries := doc.Get("tool_calls")
	if !entries.IsArray() {
		return nil
	}

	var calls []ToolCallRequest
	entries.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		name := entry.Get("name")
		if name.Type != gjson.String {
			return true
		}
		args := emptyArgs
		if a := entry.Get("args"); a.IsObject() {
			args = json.RawMessage(a.Raw)
		}
		calls = append(calls, ToolCallRequest{Name: name.String(), Args: args})
		return true
	})
	return calls
}

func parseToolCallDocument(text string) (gjson.Result, bool) {
	if gjson.Valid(text) {
		return gjson.Parse(text), true
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return gjson.Result{}, false
	}
	sub := text[start : end+1]
	if !gjson.Valid(sub) {
		return gjson.Result{}, false
	}
	return gjson.Parse(sub), true
}
