// Package session provides core.SessionStore implementations.
//
// InMemoryStore keeps sessions in a process local map and suits tests and
// one-shot demo runs. The sqlite subpackage persists sessions across process
// restarts.
package session
