// Package monitor implements the live terminal dashboard behind
// `loadwatch monitor`.
//
// The dashboard never dials hosts itself. It re-reads the sample store on a
// refresh interval, so it can run next to `loadwatch serve` against the same
// database and shows exactly what the scheduler has persisted.
//
// Keys:
//
//	q, ctrl+c   quit
//	r           refresh now
//	s           cycle sort order (name, load, memory)
//	up/k down/j move the selection
//	?           toggle help
package monitor
