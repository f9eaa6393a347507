// Package io reads and writes process snapshot files.
//
// A snapshot file holds one workflow: its declared rows and every step. The
// encoding is chosen from the file extension:
//
//	.json         JSON (the same shape the HTTP API serves)
//	.toml         TOML
//	.yaml, .yml   YAML
//
// A JSON snapshot looks like:
//
//	{
//	  "workflow": {"id": 1, "name": "Claims"},
//	  "rows": [{"letter": "A", "name": "Intake"}],
//	  "steps": [
//	    {"id": 1, "kind": "task", "address": "A1",
//	     "connections": [{"next": "B1"}]},
//	    {"id": 2, "kind": "decision", "address": "B1",
//	     "connections": "[{\"condition\":\"Yes\",\"next\":\"C1\"}]"}
//	  ]
//	}
//
// JSON connection lists may also be given as a string holding the array,
// which is how the map editor's database stores them. A step whose
// connection payload is malformed is still imported, with no connections,
// and the problem is returned as a [process.Issue].
//
// Use [ImportSnapshot]/[ExportSnapshot] for files and [ReadSnapshot]/
// [WriteSnapshot] for streams.
package io
