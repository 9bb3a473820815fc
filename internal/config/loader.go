package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces taskd environment variables.
	EnvPrefix = "TASKD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Options selects what Load reads.
type Options struct {
	// Workspace overrides the workspace root. Empty means TASKD_WORKSPACE,
	// then the current directory.
	Workspace string

	// ConfigFile overrides <workspace>/.taskd/config.yaml. An explicit file
	// must exist; the default file is optional.
	ConfigFile string
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Options.Workspace
//  2. Environment variables (TASKD_GIT_TIMEOUT -> git.timeout)
//  3. YAML config file
//  4. Defaults
//
// Relative tasks, state and worktree repo paths resolve against the workspace.
func Load(opts Options) (*Config, error) {
	workspace, err := resolveWorkspace(opts.Workspace)
	if err != nil {
		return nil, err
	}

	configPath := opts.ConfigFile
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(workspace, DefaultDir, DefaultConfigFile)
	}

	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// The default file is optional.
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.Workspace != "" || !k.Exists("workspace") {
		cfg.Workspace = workspace
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps TASKD_SECTION_FIELD_NAME to section.field_name. Only the
// first underscore separates; the rest belong to the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func resolveWorkspace(flag string) (string, error) {
	ws := flag
	if ws == "" {
		ws = os.Getenv(EnvPrefix + "WORKSPACE")
	}
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		ws = cwd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace %s: %w", ws, err)
	}
	return abs, nil
}

// resolvePaths makes file paths absolute relative to the workspace.
func (c *Config) resolvePaths() error {
	ws, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace %s: %w", c.Workspace, err)
	}
	c.Workspace = ws
	c.Tasks.File = resolve(ws, c.Tasks.File)
	c.State.File = resolve(ws, c.State.File)
	if c.Worktree.Repo == "" {
		c.Worktree.Repo = ws
	} else {
		c.Worktree.Repo = resolve(ws, c.Worktree.Repo)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// readConfigFile opens path once and validates it through the open
// descriptor so the checked file is the file read.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large (max %d bytes)", maxConfigFileSize)
	}
	return content, nil
}

// validateConfigFileProperties rejects directories, oversized files and
// files other users can modify.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
