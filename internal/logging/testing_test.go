package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger()

	logger.Info(context.Background(), "worktree removed", zap.String("worktree", "/tmp/wt"))

	logger.AssertLogged(t, zapcore.InfoLevel, "removed")
	logger.AssertNotLogged(t, zapcore.ErrorLevel, "removed")
	logger.AssertField(t, "worktree removed", "worktree", "/tmp/wt")
	logger.AssertNoSecrets(t)
	assert.Equal(t, 1, logger.FilterMessage("worktree removed").Len())

	logger.Reset()
	assert.Empty(t, logger.All())
}

func TestTestLogger_AssertNoSecretsFlagsURLCredentials(t *testing.T) {
	logger := NewTestLogger()
	logger.Info(context.Background(), "remote", zap.String("url", "https://u:p@example.com/r.git"))

	rec := &recordingTB{}
	logger.AssertNoSecrets(rec)
	assert.True(t, rec.failed)
}

// recordingTB captures failures without failing the enclosing test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...any) {
	r.failed = true
}
