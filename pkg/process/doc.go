// Package process defines the records that describe a process map: steps,
// swimlane rows, workflows, and the snapshot that bundles them.
//
// Steps reference their successors by grid address rather than by id (see
// [Connection]). The connection list arrives from storage as loosely typed
// JSON, so [DecodeConnections] validates it at the boundary and turns any
// malformed payload into an empty list instead of failing the whole map.
package process
