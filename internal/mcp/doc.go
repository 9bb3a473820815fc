// Package mcp serves taskd over the Model Context Protocol.
//
// The server runs on the stdio transport using github.com/modelcontextprotocol/go-sdk
// and exposes task activation and worktree lifecycle tools. Each tool result
// carries its JSON document as text content and as structured content.
// Caller mistakes come back as tool errors with an {"error","code","metadata"}
// body instead of protocol errors.
package mcp
