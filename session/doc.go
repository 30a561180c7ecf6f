// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// higher level packages (flow, service) never depend on concrete storage.
//
// InMemoryStore suits tests and ephemeral runs; the sqlite sub-package
// persists sessions and transcripts durably. Only the wiring layer decides
// which implementation to instantiate.
package session
