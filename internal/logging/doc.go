// Package logging provides context-aware structured logging on top of zap.
//
// # Overview
//
// The package wraps zap with:
//   - A custom Trace level (-2, below Debug)
//   - Automatic context fields (trace_id, request.id, task.id)
//   - Redaction of credential-bearing values such as git remote URLs
//   - Level-aware sampling (errors are never sampled)
//
// Logs go to stderr by default. When taskd serves MCP over stdio, stdout
// carries the protocol and must never receive log lines.
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	ctx = logging.WithTaskID(ctx, 42)
//	logger.Info(ctx, "task activated", zap.Bool("blocked", false))
//
// Output:
//
//	{"level":"info","ts":"2026-10-15T09:30:00.000Z","msg":"task activated",
//	 "service":"taskd","request.id":"req-123","task.id":42,"blocked":false}
//
// # Redaction
//
// Fields whose key names a credential (password, token, ...) are replaced
// with [REDACTED]. String values are scanned with the configured patterns and
// every match is replaced in place, so "https://user:pw@host/repo.git" logs as
// "https://[REDACTED]@host/repo.git".
package logging
