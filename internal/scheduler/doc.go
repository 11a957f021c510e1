// Package scheduler runs an expanded plan on a fixed pool of workers.
//
// Every instance moves through a small state machine:
//
//	Pending -> Ready -> Running -> Succeeded | Failed
//	Pending -> Blocked            (an upstream Failed or was Blocked)
//	Pending | Ready -> Cancelled  (the run was cancelled)
//
// An instance is promoted to Ready once all of its distinct upstream
// instances have Succeeded. Workers resolve the instance's inputs, compute its
// fingerprint and consult the cache, so identical work inside one run, or
// across runs sharing a store, executes once.
package scheduler
