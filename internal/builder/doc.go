/*
Package builder turns the workflow section of a configuration model into a
graph.Graph ready for validation.

Construction happens in two passes:

 1. Node creation: every `node` block becomes a graph.Node bound to the
    task.Spec its `task` attribute names. Literal input expressions are
    evaluated into static values and `iterables` into sweep value lists.

 2. Edge linking: an input whose expression is exactly a
    `node.<name>.<output>` reference becomes an edge from that output to the
    input. References to other nodes anywhere else in an expression are
    rejected, since an edge always carries one whole value.

The builder does not validate types, bindings or cycles. That is the job of
graph.Validate, which reports every problem at once.
*/
package builder
