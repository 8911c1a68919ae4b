// Package llm is the model gateway used by the agent loop. It turns a
// conversation into a single model reply and hides provider transport,
// authentication and response parsing behind one interface.
//
// # Architecture
//
//   - Gateway: the single call the agent loop depends on.
//   - ProviderAdapter: one backend (gollm-backed providers, the offline mock).
//   - Client: routes requests to a named adapter and applies middleware
//     (retry, rate limiting, logging).
//   - GatewayError: the error taxonomy every adapter reports through.
//
// # Quick Start
//
//	adapter, err := llm.NewGollmAdapter(llm.GollmConfig{
//	    Provider: "openai",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := llm.NewClient(
//	    llm.WithProvider("openai", adapter),
//	    llm.WithMiddleware(llm.RetryMiddleware(llm.DefaultRetryPolicy())),
//	)
//
//	resp, err := client.Generate(ctx, llm.Request{
//	    System:   "Keep answers short.",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Replies
//
// A Response carries an ordered list of content parts. Text parts are
// narration; tool call parts are structured function-calling requests. Replies
// produced by providers without native tool calling are plain text, and the
// agent loop decides whether that text encodes a tool call.
package llm
