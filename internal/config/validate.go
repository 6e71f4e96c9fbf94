package config

import (
	"errors"
	"fmt"
	"strings"
)

var validDepthModes = map[string]struct{}{
	"NEURAL":      {},
	"ULTRA":       {},
	"QUALITY":     {},
	"PERFORMANCE": {},
}

var validCategories = map[string]struct{}{
	"stereo_left":  {},
	"stereo_right": {},
	"depth":        {},
	"point_cloud":  {},
	"confidence":   {},
	"normals":      {},
	"inertial":     {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if _, ok := validDepthModes[c.Extraction.DepthMode]; !ok {
		return fmt.Errorf("extraction.depth_mode: unsupported value %q", c.Extraction.DepthMode)
	}
	for _, category := range c.Extraction.Categories {
		if _, ok := validCategories[category]; !ok {
			return fmt.Errorf("extraction.categories: unknown category %q", category)
		}
	}
	if c.Extraction.FrameStep < 1 {
		return errors.New("extraction.frame_step must be >= 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than heartbeat_interval")
	}
	if c.Workflow.FileConcurrency < 1 {
		return errors.New("workflow.file_concurrency must be >= 1")
	}
	if c.Workflow.ProgressWriteIntervalMs < 0 {
		return errors.New("workflow.progress_write_interval_ms must be >= 0")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.MaxWidth < 16 {
		return errors.New("preview.max_width must be >= 16")
	}
	if c.Preview.JPEGQuality < 1 || c.Preview.JPEGQuality > 100 {
		return errors.New("preview.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected an http(s) URL, got %q", topic)
	}
	return nil
}
