// Package flow implements the per-turn state machine that drives a
// conversational analytics session.
//
// A turn walks a fixed graph:
//
//	build_context -> route_query -> process_query | reasoning_only
//	              -> [summarize] -> save_message -> end
//
// Nodes never mutate the TurnState they receive. Each returns an Update
// delta that Merge folds into the next state; the message log is append-only
// apart from the single trim performed by summarization. Collaborator
// failures are captured in the state so every turn reaches save_message and
// records exactly one Message.
package flow
