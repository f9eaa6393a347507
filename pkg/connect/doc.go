// Package connect resolves address-targeted connections into edges.
//
// Steps declare their outgoing connections by grid address, never by step
// id, so a connection keeps pointing at "whatever is at C8" while steps are
// moved around. [Resolver.Resolve] turns those declarations into concrete
// [Edge] values for one snapshot:
//
//  1. An entry with an empty target is a dangling branch and is dropped.
//  2. A target that normalizes to the address of a placed step resolves to
//     that step. If several steps share the address, the lowest id wins.
//  3. Otherwise the leading letter of the target names a swimlane, and the
//     edge goes to the step in that lane with the lowest column (ties go to
//     the lowest id). This keeps edges alive after the exact target moved.
//  4. If the lane is empty too, the entry is dropped.
//
// Edges leaving a decision carry a [RoutingHint] derived from the relative
// rows of source and destination, which renderers map onto the side of the
// diamond the edge leaves from.
//
// Dropped entries are never errors. They are reported in [Result.Dropped]
// and logged at debug level.
package connect
