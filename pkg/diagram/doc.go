// Package diagram assembles and serializes complete process diagrams.
//
// [Build] runs the layout projector and the connection resolver over one
// snapshot and combines their output into a [Diagram]: lanes with label
// positions, dividers, positioned nodes, edges, the unplaced side list, and
// the connections that were dropped. A Diagram is the wire format consumed
// by renderers, the HTTP API, caches, and the CLI.
//
// # Serialization
//
// Diagrams are plain JSON:
//
//	{
//	  "workflow": {"id": 1, "name": "Claims"},
//	  "lanes": [{"row": 0, "letter": "A", "name": "Intake", ...}],
//	  "nodes": [{"stepId": 1, "address": "A1", "x": 150, "y": 50, ...}],
//	  "edges": [{"id": "edge-1-2-0", "sourceStepId": 1, "targetStepId": 2}]
//	}
//
// Use [Marshal]/[Unmarshal] for bytes, [Write]/[Read] for streams, and
// [WriteFile]/[ReadFile] for files.
package diagram
