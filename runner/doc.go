// Package runner coordinates graph execution against a session store.
//
// A Runner owns the event pipeline for a run: it persists the incoming user
// message, walks the compiled graph in a goroutine, applies event actions
// (state deltas) as agents emit them, appends non-partial events to the
// session and forwards everything to the caller's event channel. Agents block
// on a resume signal after each non-partial event so session history is
// durable before the next model turn reads it.
package runner
