// Package registry is the glue between task manifests and compiled Go code.
//
// Modules register named Go handlers; manifests reference them from
// lifecycle.on_run. At startup the registry is populated from the loaded
// config model and validated, so a manifest and the Go struct behind it can
// never drift apart silently. Specs then binds every manifest, handler- or
// command-backed, into an immutable task.Spec the engine can schedule.
package registry
