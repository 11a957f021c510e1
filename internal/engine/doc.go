// Package engine is the entry point for executing a workflow graph. Submit
// validates the graph, freezes it, expands sweeps into a concrete plan and
// hands the plan to the scheduler.
package engine
