// Package config defines the format-agnostic configuration model: task
// manifests and the workflow of nodes built from them. It also declares the
// Loader and Converter interfaces implemented by format-specific packages
// such as hcl_adapter.
//
// The Model is the single input of the builder, which turns it into a
// graph.Graph for the engine.
package config
