// Package agent provides the agent implementations that run as graph nodes.
//
// Two kinds of agents exist:
//
//   - Orchestrator: a pure routing node that inspects the most recent
//     conversational message and writes the next agent name into session
//     state via ordered keyword rules.
//   - Specialist: a model-backed agent that binds an instruction and a tool
//     subset to a model.Model and runs a tool calling loop until the model
//     produces a final response.
//
// Both embed BaseAgent for identity and satisfy core.Agent.
package agent
