package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ".taskd/tasks.json", cfg.Tasks.File)
	assert.Equal(t, ".taskd/execution-state.json", cfg.State.File)
	assert.False(t, cfg.Worktree.Enabled)
	assert.Equal(t, ".worktrees", cfg.Worktree.Root)
	assert.Equal(t, "git", cfg.Git.Binary)
	assert.Equal(t, 30*time.Second, cfg.Git.Timeout.Duration())
	assert.Equal(t, "localhost:9191", cfg.HTTP.Addr())
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty tasks file", func(c *Config) { c.Tasks.File = "" }, "tasks.file is required"},
		{"empty state file", func(c *Config) { c.State.File = " " }, "state.file is required"},
		{"empty git binary", func(c *Config) { c.Git.Binary = "" }, "git.binary is required"},
		{"zero git timeout", func(c *Config) { c.Git.Timeout = 0 }, "git.timeout must be positive"},
		{"empty worktree root", func(c *Config) { c.Worktree.Root = "" }, "worktree.root is required"},
		{"escaping worktree root", func(c *Config) { c.Worktree.Root = "../trees" }, "must not contain"},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"shutdown timeout", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging:"},
		{"bad telemetry", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"-1s", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_Marshal(t *testing.T) {
	d := Duration(45 * time.Second)

	text, err := d.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "45s", string(text))

	js, err := d.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"45s"`, string(js))
}
