// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe identity for execution
instances, the concrete occurrences of a node after sweep expansion.

The canonical format is the node name, optionally followed by one coordinate
per sweep source, most upstream source first: `strip`, `strip[subject=1]`,
`report[subject=1,frac=0]`. A coordinate index is the position of the chosen
value combination in the source's deterministic enumeration order, so the
same graph always yields the same identifiers.
*/
package nodeid
