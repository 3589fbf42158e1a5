package agent

import (
	"fmt"
	"strings"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
)

// RouteRule maps a keyword to a target agent node. Matching is a
// case-insensitive substring test against the most recent message text.
type RouteRule struct {
	Keyword string
	Target  string
}

// OrchestratorOptions configures an Orchestrator instance.
type OrchestratorOptions struct {
	// Fallback is the routing label used when no rule matches.
	// Defaults to graph.End.
	Fallback string
}

// Orchestrator is the routing node of the graph. On every visit it inspects
// only the text of the most recent conversational event, evaluates its rule
// list in order (first match wins), appends one routing message event and
// recomputes the next_agent state value.
type Orchestrator struct {
	BaseAgent
	rules    []RouteRule
	fallback string
}

// NewOrchestrator creates a routing agent with the given ordered rules.
// Rule order is significant: when several keywords match the same message,
// the first rule in the list decides.
func NewOrchestrator(name string, rules []RouteRule, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{
		Fallback: graph.End,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	o := &Orchestrator{
		BaseAgent: NewBaseAgent(name),
		rules:     rules,
		fallback:  opts.Fallback,
	}
	o.SetDescription("Routes the conversation to the specialist matching the latest message")

	return o
}

// Decide returns the routing label for a message without side effects.
func (o *Orchestrator) Decide(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range o.rules {
		if strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			return rule.Target
		}
	}
	return o.fallback
}

// Run implements core.Agent. It evaluates the rules against the last message,
// stores the decision under core.StateNextAgent and emits one routing event.
func (o *Orchestrator) Run(runCtx *core.RunContext) error {
	message := ""
	if runCtx.Session != nil {
		message = runCtx.Session.LastMessageText()
	}
	if message == "" {
		message = runCtx.UserContent.Text()
	}

	target := o.Decide(message)

	runCtx.LogInfo("orchestrator.route", "agent", o.Name(), "target", target)

	runCtx.SetState(core.StateNextAgent, target)

	var text string
	if target == graph.End {
		text = "No further specialist needed, finishing the run."
	} else {
		text = fmt.Sprintf("Routing the conversation to %s.", target)
	}

	ev := core.NewMessageEvent(runCtx.RunID, o.Name(), text)
	ev.Actions.NextAgent = &target

	if err := runCtx.EmitEvent(ev); err != nil {
		return err
	}

	return runCtx.WaitForResume()
}

// Router returns a graph.RouterFunc reading the decision this agent stored in
// session state. Wire it as the conditional edge leaving the orchestrator
// node.
func (o *Orchestrator) Router() graph.RouterFunc {
	return func(runCtx *core.RunContext) (string, error) {
		v, ok := runCtx.GetState(core.StateNextAgent)
		if !ok {
			return o.fallback, nil
		}
		label, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("orchestrator: state %q is not a string", core.StateNextAgent)
		}
		return label, nil
	}
}
