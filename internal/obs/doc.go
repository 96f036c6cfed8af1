// Package obs defines Observations and States, the content-addressed
// snapshots of the system under test.
//
// An Observation is one system's view of its own data at a point in time.
// A State bundles the Observations of every registered system. The State ID
// is a deterministic content hash over canonical JSON, so two executions
// that produce byte-identical observation data always map to the same
// State. This is what bounds the explored graph to a DAG instead of an
// unbounded tree: revisiting known content lands on an existing node.
package obs
