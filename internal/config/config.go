package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Extraction holds defaults applied to submitted jobs that omit them.
type Extraction struct {
	DepthMode  string   `toml:"depth_mode"`
	Categories []string `toml:"categories"`
	FrameStep  int      `toml:"frame_step"`
}

// Workflow contains configuration for daemon timing and concurrency.
type Workflow struct {
	QueuePollInterval       int `toml:"queue_poll_interval"`
	ErrorRetryInterval      int `toml:"error_retry_interval"`
	HeartbeatInterval       int `toml:"heartbeat_interval"`
	HeartbeatTimeout        int `toml:"heartbeat_timeout"`
	FileConcurrency         int `toml:"file_concurrency"`
	ProgressWriteIntervalMs int `toml:"progress_write_interval_ms"`
}

// Preview contains single-frame rendering settings.
type Preview struct {
	MaxWidth    int `toml:"max_width"`
	JPEGQuality int `toml:"jpeg_quality"`
}

// FrameSource selects the decoding backend.
type FrameSource struct {
	Backend string `toml:"backend"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications configures push notifications for finished jobs.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for svoextract.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories plus the API bind address
//   - Extraction: job defaults (depth mode, categories, frame step)
//   - Workflow: daemon polling intervals, heartbeats and file concurrency
//   - Preview: single-frame render size and JPEG quality
//   - FrameSource: registered decoding backend name
//   - Logging: log format and level
//   - Notifications: optional ntfy topic for job outcomes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Extraction    Extraction    `toml:"extraction"`
	Workflow      Workflow      `toml:"workflow"`
	Preview       Preview       `toml:"preview"`
	FrameSource   FrameSource   `toml:"frame_source"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/svoextract/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("svoextract.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.UploadsDir(), c.ResultsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadsDir is where registered recordings are stored.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, uploadsDirName)
}

// ResultsDir is the root of per-job extraction output and bundles.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.Paths.DataDir, resultsDirName)
}

// DatabasePath is the SQLite store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "svoextract.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "svoextractd.lock")
}

// LogPath is the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "svoextract.log")
}

// PollInterval returns the queue poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.QueuePollInterval) * time.Second
}

// ErrorRetryInterval returns the wait after a failed poll.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetryInterval) * time.Second
}

// HeartbeatInterval returns the heartbeat cadence for running jobs.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// HeartbeatTimeout returns how long a job may go without a heartbeat.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeout) * time.Second
}

// ProgressWriteInterval returns the minimum spacing between progress writes.
func (c *Config) ProgressWriteInterval() time.Duration {
	return time.Duration(c.Workflow.ProgressWriteIntervalMs) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
