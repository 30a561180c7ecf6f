// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside querymesh.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Reduce generation to the plain prompt-in / text-out Completer contract
//     the turn orchestrator needs for classification, reasoning and summaries
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers remain decoupled from vendor SDKs.
package model
