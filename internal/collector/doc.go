// Package collector runs the two diagnostic commands on one remote host.
//
// A collection opens a fresh SSH connection, runs the load command and then
// the memory command, and closes the connection on every exit path.
// Connections are never reused between cycles, so a host that drops off the
// network costs at most one timeout per cycle and leaves nothing behind.
//
// Every failure is reported as a *CollectionError naming the host and the
// stage that failed:
//
//	connect         dial, handshake or authentication failed
//	load command    the load command failed, exited non-zero or printed nothing
//	memory command  same, for the memory command
//
// There are no retries. The next scheduled cycle is the retry.
package collector
