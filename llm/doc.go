// Package llm provides a backend-neutral unification layer for language model APIs.
//
// This package defines the capability contracts, concurrency primitives, and
// request/response types that let the application issue chat-style completion
// and tool-invocation requests against many independent backends (Ollama,
// OpenAI, Anthropic, etc.) without callers caring which backend answered.
//
// # Core Concepts
//
//  1. Identifiers: ModelID, ModelName, ProviderID, and ProviderName are opaque
//     string newtypes. Provider ids are unique within a Registry; model ids are
//     unique within a provider's model set.
//
//  2. Requests: A Request is an ordered sequence of Messages (system, user,
//     assistant) plus generation parameters (stop sequences, temperature).
//
//  3. Model Interface: The Model interface exposes metadata, token counting,
//     streaming completion, and tool invocation for one usable backend model.
//     Model handles are cheap, created per lookup, and safe for concurrent use.
//
//  4. Provider Interface: The Provider interface manages discovery and
//     authentication for a family of models belonging to one backend service,
//     and produces Model handles from its current state snapshot.
//
//  5. RateLimiter: A counting admission gate bounding concurrent in-flight
//     operations per model or provider. Stream permits are held for the full
//     lifetime of the returned stream, not just its construction.
//
//  6. Registry: An explicit, insertion-ordered mapping from provider id to
//     provider instance. The entry point callers use to enumerate and select
//     models. Created once at startup and passed to consumers; never a global.
//
//  7. Errors: The Error type provides backend-neutral error handling with
//     typed kinds (authentication, unreachable backend, timeout, unsupported
//     operation, schema violation, invalid response) and a retryable flag.
//
// Usage Example
//
//	registry := llm.NewRegistry(logger)
//	registry.Register(ollama.NewProvider(store, httpClient, logger))
//
//	provider, _ := registry.Lookup("ollama")
//	if err := provider.Authenticate(ctx); err != nil {
//	    return err
//	}
//
//	model := provider.ProvidedModels()[0]
//	stream, err := model.StreamCompletion(ctx, &llm.Request{
//	    Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
//	    Temperature: lo.ToPtr(0.7),
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Delta())
//	}
//	return stream.Err()
//
// # Extension Points
//
// To add a new backend:
//  1. Implement the Provider interface with an atomically replaced state
//     snapshot (available models sorted by name).
//  2. Implement the Model interface, routing StreamCompletion through a
//     RateLimiter and translating requests to the backend wire format.
//  3. Translate backend errors into llm.Error kinds.
//  4. Backends without tool-calling return an UnsupportedOperation error from
//     UseAnyTool promptly; backends without a token endpoint use
//     EstimateTokens as the documented heuristic.
package llm
