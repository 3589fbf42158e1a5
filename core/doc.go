// Package core provides the foundational domain types, interfaces and execution
// contexts shared by the rest of the module. It defines:
//
//   - Agents (graph nodes that read and extend the conversation)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication + orchestration records)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - The SessionStore interface for pluggable persistence backends
//
// The package intentionally keeps implementation concerns (persistence, graph
// walking, concrete agents, model providers) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
