// Package store persists workflows, steps, swimlane rows, and the audit log.
//
// The layout engine never talks to storage itself: callers load a full
// [process.Snapshot], lay it out, turn a gesture into a placement request,
// and hand that request to [Store.UpdateStepAddress]. The store validates
// and normalizes the address, records an UPDATE_POSITION audit entry, and
// the caller re-loads the snapshot. Concurrent writers are last-write-wins.
//
// # Backends
//
//   - [Memory]: in-process maps, for tests and one-shot CLI runs
//   - [File]: a single workflow kept in a snapshot file (JSON, TOML, YAML)
//   - [SQLite]: database/sql with modernc.org/sqlite, using the editor's
//     table layout (workflows, activities, swimlane_config,
//     activity_audit_log)
//   - [Mongo]: one collection per entity in a MongoDB database
//
// [Open] builds a backend from a [Config].
package store
