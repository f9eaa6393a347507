// Package placement turns pointer gestures into address-update requests.
//
// Two gestures are supported. [Engine.Drag] handles a placed node released
// at a pixel position: both row and column are snapped to the nearest cell.
// [Engine.Drop] handles an unplaced step dropped from a side list: the lane
// comes from the gesture and only the column is derived from x.
//
// Neither gesture applies anything. When the snapped address differs from
// the step's current one, the engine returns a [Request] for the caller to
// persist; when it is the same, ok is false and no request is produced.
// Positions above the first row or below row Z are rejected with an
// OUT_OF_RANGE error.
package placement
