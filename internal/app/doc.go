// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// NewApp performs every step that can fail before work starts: loading the
// HCL files, registering Go handlers, checking manifests against them and
// building the workflow graph. Run opens the result cache, executes the graph
// and prints a summary.
package app
