// Package parsers turns the text printed by the remote diagnostic commands
// into numbers. The functions here do no I/O, so every platform quirk they
// handle can be pinned down with a table test.
//
// Two formats are understood for memory: the "Mem:" row printed by
// `free -k`, and /proc/meminfo for hosts whose memory command is
// `cat /proc/meminfo`. When neither is present the reading is reported
// as absent rather than zero.
package parsers
