// Package hcl_adapter loads HCL task manifests and workflow files into the
// format-agnostic config.Model, and converts between cty values and the Go
// structs used by task handlers.
//
// A `task` block declares typed inputs and outputs plus either a Go handler
// (lifecycle.on_run) or a command. A `node` block binds a task into the
// workflow; its `inputs` attributes stay unevaluated so the builder can tell
// `node.<name>.<field>` references apart from static values, and its
// `iterables` attributes keep their source order.
package hcl_adapter
