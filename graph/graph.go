package graph

import (
	"fmt"

	"github.com/santis84/agents/core"
)

// End is the sentinel target that terminates a graph walk.
const End = "__end__"

// RouterFunc inspects the run context (typically session state written by the
// node that just executed) and returns a routing key looked up in the
// conditional edge mapping.
type RouterFunc func(runCtx *core.RunContext) (string, error)

type conditionalEdge struct {
	router  RouterFunc
	mapping map[string]string
}

// StateGraph is a mutable builder for a multi-agent control flow graph.
// It is not safe for concurrent use; build the graph, Compile it once, then
// share the CompiledGraph.
type StateGraph struct {
	nodes       map[string]core.Agent
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
}

// NewStateGraph creates an empty graph builder.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:       map[string]core.Agent{},
		edges:       map[string]string{},
		conditional: map[string]conditionalEdge{},
	}
}

// AddNode registers an agent under the given node name. Re-registering a name
// replaces the previous agent.
func (g *StateGraph) AddNode(name string, agent core.Agent) *StateGraph {
	g.nodes[name] = agent
	return g
}

// AddEdge declares a static transition: after from executes, control moves to
// to (or terminates when to is End).
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges[from] = to
	return g
}

// AddConditionalEdges declares a routed transition: after from executes, the
// router's key selects the next node from mapping. Mapping values may be End.
func (g *StateGraph) AddConditionalEdges(from string, router RouterFunc, mapping map[string]string) *StateGraph {
	g.conditional[from] = conditionalEdge{router: router, mapping: mapping}
	return g
}

// SetEntryPoint declares the node the walk starts from.
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	g.entry = name
	return g
}

// Compile validates the topology and freezes it into a CompiledGraph.
func (g *StateGraph) Compile(optFns ...func(o *Options)) (*CompiledGraph, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if g.entry == "" {
		return nil, fmt.Errorf("graph: entry point not set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("graph: entry point %q is not a declared node", g.entry)
	}

	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("graph: edge from undeclared node %q", from)
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("graph: edge %q -> %q targets undeclared node", from, to)
			}
		}
	}

	for from, ce := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("graph: conditional edge from undeclared node %q", from)
		}
		if _, both := g.edges[from]; both {
			return nil, fmt.Errorf("graph: node %q has both a static and a conditional edge", from)
		}
		if ce.router == nil {
			return nil, fmt.Errorf("graph: conditional edge from %q has no router", from)
		}
		for key, target := range ce.mapping {
			if target != End {
				if _, ok := g.nodes[target]; !ok {
					return nil, fmt.Errorf("graph: conditional edge %q[%q] -> %q targets undeclared node", from, key, target)
				}
			}
		}
	}

	for name := range g.nodes {
		_, hasEdge := g.edges[name]
		_, hasConditional := g.conditional[name]
		if !hasEdge && !hasConditional {
			return nil, fmt.Errorf("graph: node %q has no outgoing edge; route it to End explicitly", name)
		}
	}

	return &CompiledGraph{
		nodes:       g.nodes,
		edges:       g.edges,
		conditional: g.conditional,
		entry:       g.entry,
		opts:        opts,
	}, nil
}

// Options configure graph execution.
type Options struct {
	// MaxSteps aborts a walk after this many node executions. Zero means
	// unlimited.
	MaxSteps int
}

// WithMaxSteps bounds the number of node executions per Run.
func WithMaxSteps(n int) func(o *Options) {
	return func(o *Options) { o.MaxSteps = n }
}

// CompiledGraph is an immutable, validated graph ready for execution. It is
// safe for concurrent Runs since per-run state lives in the RunContext.
type CompiledGraph struct {
	nodes       map[string]core.Agent
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
	opts        Options
}

// EntryPoint returns the name of the node the walk starts from.
func (cg *CompiledGraph) EntryPoint() string { return cg.entry }

// Run walks the graph synchronously starting at the entry point. Each node
// executes with the run context rebound to its identity; after the node
// returns, the session is refreshed so routers observe committed state.
func (cg *CompiledGraph) Run(runCtx *core.RunContext) error {
	current := cg.entry
	steps := 0

	for current != End {
		if err := runCtx.Err(); err != nil {
			return err
		}
		if cg.opts.MaxSteps > 0 && steps >= cg.opts.MaxSteps {
			return fmt.Errorf("graph: aborted after %d steps at node %q", steps, current)
		}

		agent, ok := cg.nodes[current]
		if !ok {
			return fmt.Errorf("graph: walk reached undeclared node %q", current)
		}

		nodeCtx := runCtx.WithAgent(core.AgentInfo{Name: current, Type: "node"})

		runCtx.LogDebug("graph.node.start", "node", current, "step", steps)

		if err := agent.Run(nodeCtx); err != nil {
			return fmt.Errorf("graph: node %q: %w", current, err)
		}

		// Routers read state the node just committed.
		if err := runCtx.RefreshSession(); err != nil {
			return fmt.Errorf("graph: refresh after node %q: %w", current, err)
		}

		next, err := cg.nextNode(current, runCtx)
		if err != nil {
			return err
		}

		runCtx.LogDebug("graph.node.done", "node", current, "next", next)

		current = next
		steps++
	}

	return nil
}

func (cg *CompiledGraph) nextNode(current string, runCtx *core.RunContext) (string, error) {
	if to, ok := cg.edges[current]; ok {
		return to, nil
	}

	ce, ok := cg.conditional[current]
	if !ok {
		return "", fmt.Errorf("graph: node %q has no outgoing edge", current)
	}

	key, err := ce.router(runCtx)
	if err != nil {
		return "", fmt.Errorf("graph: router for %q: %w", current, err)
	}

	if key == End {
		return End, nil
	}

	target, ok := ce.mapping[key]
	if !ok {
		return "", fmt.Errorf("graph: router for %q returned unmapped key %q", current, key)
	}

	return target, nil
}
