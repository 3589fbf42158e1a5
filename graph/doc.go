// Package graph implements a compiled state graph for multi-agent control
// flow.
//
// A StateGraph declares named agent nodes and the edges between them, either
// static (always go to the same node) or conditional (a router function maps
// session state to the next node). Compile validates the topology and returns
// an immutable CompiledGraph whose Run performs a synchronous walk from the
// entry point until a node routes to End.
package graph
