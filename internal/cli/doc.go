// Package cli implements the loadwatch command tree.
//
// serve runs the collection scheduler and the HTTP API until interrupted.
// The remaining commands are one-shot operations against the same
// database: collect runs a single cycle, host manages the registry,
// metrics renders stored samples, prune applies retention, and config
// edits loadwatch.yaml.
package cli
