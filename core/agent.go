package core

// Agent is the interface implemented by every node in a state graph.
//
// Agents receive their input through a RunContext, emit events through it to
// communicate results and state changes, and return once their turn is
// complete. Implementations must respect context cancellation.
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes the implementation
// (e.g. "orchestrator", "specialist").
type AgentInfo struct{ Name, Type string }
