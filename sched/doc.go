// Package sched is the task-scheduling runtime: a fixed pool of worker
// goroutines executing Tasks dispatched through Actions registered under
// Jobs, with optional ordered/priority Queues, affinity routing,
// cooperative cancellation, Groups for collective wait, and a plug-in
// adapter for non-CPU executors.
//
// A single Node owns every pool and every worker; it is initialized once
// with Init and torn down with Finalize, mirroring
// _examples/Guti2010-Proyecto-SO/internal/sched.Manager's registry of
// named worker pools, generalized to the full job/action/task/queue/group
// model this package implements.
package sched
