// Package expand turns a validated graph into a Plan: the concrete execution
// instances of every node after parameter sweeps are multiplied out.
//
// A node's sweep sources are the swept nodes that reach it, itself included.
// Each source contributes the Cartesian product of its iterable fields, and a
// node gets one instance per combination of its sources' choices. A source
// shared by several paths (a diamond) is counted once, so fan-out followed by
// fan-in never multiplies the same sweep twice. Enumeration is lexicographic
// with the most upstream source, and within a source the first declared
// field, varying slowest.
package expand
