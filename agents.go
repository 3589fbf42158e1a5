// Package agents provides a high-level façade over the graph runner and
// session services for building keyword-routed multi-agent systems. Most
// applications interact with this package by:
//  1. Compiling a state graph (orchestrator + specialist nodes)
//  2. Creating an App via New() (optionally overriding the in-memory store)
//  3. Running conversations asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup
// concise. The defaults are safe for local development and testing; durable
// deployments supply the SQLite session store and a structured logger.
package agents

import (
	"context"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
	"github.com/santis84/agents/logging"
	"github.com/santis84/agents/runner"
	"github.com/santis84/agents/session"
)

// Options configures the App instance.
type Options struct {
	// EventBufferSize sets the channel buffer size for event processing.
	EventBufferSize int

	// SessionStore persists conversations; defaults to in-memory.
	SessionStore core.SessionStore

	// Logger defaults to NoOp if nil.
	Logger logging.Logger
}

// App is the high-level façade aggregating the compiled graph and services.
type App struct {
	opts   Options
	runner *runner.Runner
}

// New creates an App around a compiled graph with optional overrides.
func New(g *graph.CompiledGraph, optFns ...func(o *Options)) *App {
	opts := Options{
		EventBufferSize: 100,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(g, func(o *runner.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
	})

	return &App{opts: opts, runner: r}
}

// Runner exposes the underlying runner for advanced control (Cancel, store).
func (a *App) Runner() *runner.Runner { return a.runner }

// Run starts an asynchronous conversation turn returning event & error channels.
func (a *App) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return a.runner.Run(ctx, sessionID, userContent)
}

// RunSync drains the async channels, accumulates events and returns the runID.
func (a *App) RunSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := a.runner.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return runID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				// Events channel closed; check for a terminal error.
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, event)

		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			if err != nil {
				return runID, events, err
			}
		}
	}
}
