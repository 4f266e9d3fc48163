// Package agentloop runs a language model in a bounded tool-calling loop.
//
// An Agent sends the conversation to a unifiedllm.Generator, executes the
// tool calls found in the reply through a ToolRegistry, appends the results
// and repeats until the model answers without tool calls or the iteration
// bound is reached.
//
// # Architecture
//
//   - Agent: owns the generator, the registry and the loop limits. Each Run
//     builds a fresh Conversation, so nothing carries over between runs.
//   - ToolRegistry: name to Tool mapping with argument validation.
//   - Tool: a described capability. NewTool derives one from a typed
//     function.
//   - EventEmitter and Metrics: optional observers of a run.
//
// Tools are offered to the model in the prompt and called back through the
// JSON convention in ToolCallFormat:
//
//	{"tool_calls":[{"name":"get_weather","args":{"city":"Beijing"}}]}
//
// # Quick Start
//
//	gen, err := unifiedllm.NewGenerator(unifiedllm.ProviderConfig{Provider: "ollama"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	agent := agentloop.New("weather", gen, agentloop.WithMaxIterations(5))
//	agent.RegisterTool("", tools.Weather())
//
//	res, err := agent.Run(ctx, "What's the weather in Beijing?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Generation)
package agentloop
