// Package stream converts node boundary events of a turn into the typed,
// ordered event stream delivered to callers, and frames that stream as
// server-sent events.
package stream
