// Package agentloop implements a bounded ReAct loop: the model is consulted,
// its reply is interpreted as either a final answer or a set of tool calls,
// the tools are run and their results are fed back as observations until the
// model answers or the iteration bound is reached.
//
// # Architecture
//
//   - Agent: drives THINKING and ACTING, owns one Conversation per run and
//     reports the run as a RunResult (final, exhausted or cancelled).
//   - ToolRegistry: registration, validation and dispatch of Tools. Dispatch
//     never fails; every problem becomes an error ToolOutcome that the model
//     sees as an observation.
//   - Interpret / InterpretText: turn a gateway reply into a ParsedReply.
//     Structured tool_call parts take precedence over the JSON calling
//     convention ({"tool": ..., "args": ...}); anything else is narration.
//   - EventEmitter: typed event stream for host applications.
//
// The model is reached through llm.Gateway, so any provider (or the offline
// llm.MockAdapter) can drive the loop.
//
// # Quick Start
//
//	registry := agentloop.NewToolRegistry()
//	registry.RegisterAll(tools.DefaultTools(env)...)
//
//	agent := agentloop.NewAgent(client, registry)
//	defer agent.Close()
//
//	result, err := agent.RunTask(ctx, "Count the Go files in this repo",
//	    agentloop.OnNarration(func(text string) { fmt.Println(text) }))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Status, result.Text)
package agentloop
