// Package task defines TaskSpec, the opaque unit of work the engine schedules.
//
// A Spec pairs a typed input table and a typed output table with an Executor.
// The tables are checked once, when the Spec is built, and every result an
// Executor returns is checked against the output table before it reaches the
// cache or any downstream consumer. Executors come in two flavours: plain Go
// functions (ExecutorFunc, or handlers bound by the registry) and subprocesses
// (CommandExecutor).
package task
