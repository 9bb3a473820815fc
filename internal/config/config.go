// Package config loads taskd configuration from defaults, a workspace YAML
// file and TASKD_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/taskd/internal/logging"
	"github.com/fyrsmithlabs/taskd/internal/telemetry"
)

// Config is the complete taskd configuration.
type Config struct {
	// Workspace is the directory relative paths resolve against.
	Workspace string           `koanf:"workspace"`
	Tasks     TasksConfig      `koanf:"tasks"`
	State     StateConfig      `koanf:"state"`
	Worktree  WorktreeConfig   `koanf:"worktree"`
	Git       GitConfig        `koanf:"git"`
	HTTP      HTTPConfig       `koanf:"http"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// TasksConfig locates the tracker's tasks file.
type TasksConfig struct {
	File string `koanf:"file"`
}

// StateConfig locates the execution state file.
type StateConfig struct {
	File string `koanf:"file"`
}

// WorktreeConfig controls worktree integration.
type WorktreeConfig struct {
	// Enabled creates a worktree for each activated task and adds
	// worktree_name to activation results.
	Enabled bool `koanf:"enabled"`

	// Repo is the repository task worktrees are added to. Defaults to the
	// workspace.
	Repo string `koanf:"repo"`

	// Root is where worktrees are created, relative to the repo.
	Root string `koanf:"root"`
}

// GitConfig controls git subprocesses.
type GitConfig struct {
	Binary  string   `koanf:"binary"`
	Timeout Duration `koanf:"timeout"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

const (
	DefaultDir        = ".taskd"
	DefaultConfigFile = "config.yaml"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace: ".",
		Tasks:     TasksConfig{File: DefaultDir + "/tasks.json"},
		State:     StateConfig{File: DefaultDir + "/execution-state.json"},
		Worktree:  WorktreeConfig{Enabled: false, Root: ".worktrees"},
		Git: GitConfig{
			Binary:  "git",
			Timeout: Duration(30 * time.Second),
		},
		HTTP: HTTPConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tasks.File) == "" {
		return fmt.Errorf("tasks.file is required")
	}
	if strings.TrimSpace(c.State.File) == "" {
		return fmt.Errorf("state.file is required")
	}
	if strings.TrimSpace(c.Git.Binary) == "" {
		return fmt.Errorf("git.binary is required")
	}
	if c.Git.Timeout.Duration() <= 0 {
		return fmt.Errorf("git.timeout must be positive")
	}
	if strings.TrimSpace(c.Worktree.Root) == "" {
		return fmt.Errorf("worktree.root is required")
	}
	if strings.Contains(c.Worktree.Root, "..") {
		return fmt.Errorf("worktree.root must not contain '..': %q", c.Worktree.Root)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("http.shutdown_timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
