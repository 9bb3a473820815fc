// Package http serves the taskd HTTP API on echo.
//
// Routes mirror the MCP tools: task activation, the active execution state,
// and worktree safety and cleanup. /health reports telemetry health and
// /metrics exposes the server's Prometheus registry.
package http
