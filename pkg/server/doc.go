// Package server exposes process maps over HTTP.
//
// Routes (all JSON unless noted):
//
//	GET  /healthz
//	GET  /metrics                              Prometheus text format, when configured
//	GET  /api/workflows
//	POST /api/workflows                        {name, description}
//	GET  /api/workflows/{id}/snapshot
//	POST /api/workflows/{id}/steps             {name, kind, address, status, connections}
//	GET  /api/workflows/{id}/diagram
//	GET  /api/workflows/{id}/diagram.svg       ?renderer=native|graphviz&title=1
//	GET  /api/workflows/{id}/diagram.dot
//	POST /api/workflows/{id}/drag              {stepId, x, y}
//	POST /api/workflows/{id}/drop              {stepId, swimlane, x}
//	GET  /api/workflows/{id}/swimlanes
//	PUT  /api/workflows/{id}/swimlanes         {letter, name}
//	PUT  /api/steps/{id}/position              {grid_location}
//	DELETE /api/steps/{id}
//	GET  /api/steps/{id}/audit
//
// Errors carry {"error", "code"}. Invalid input maps to 400, missing
// workflows and steps to 404, unsupported operations to 409, and
// everything else to 500.
package server
