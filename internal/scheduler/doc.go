// Package scheduler drives collection cycles.
//
// A cycle reads the host registry, collects from every host through a
// bounded worker pool, appends one sample per successful host, and then
// prunes samples older than the retention window exactly once. Failures are
// confined to the host they happen on; nothing that goes wrong inside a
// cycle stops the scheduler.
package scheduler
