// Package transcode converts flat, string-keyed form snapshots into the
// nested evaluation envelope expected by the Insight Ingenious chat backend,
// and derives the field-routing rules for that conversion from a
// JSON-Schema-like workflow description at run time.
//
// The pipeline is: a schema Document is analyzed into a FieldHierarchy, the
// hierarchy is compiled into an ordered list of Patterns, and the Assemble
// entry point applies those patterns to a flat snapshot to reconstruct
// arbitrarily nested arrays-of-objects-of-arrays, including a repair step for
// accidentally double-nested data.
//
// All operations are pure: inputs are never mutated and no goroutines are
// spawned, so a Transcoder and any derived Document, FieldHierarchy or
// Pattern list are safe for concurrent use. Callers that want to avoid
// re-deriving patterns per call can precompute them once per schema revision
// and pass them through AssembleRequest.
package transcode
