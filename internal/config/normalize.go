package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeWorkflow()
	c.normalizePreview()
	c.normalizeFrameSource()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SVOEXTRACT_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SVOEXTRACT_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SVOEXTRACT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.DepthMode = strings.ToUpper(strings.TrimSpace(c.Extraction.DepthMode))
	if c.Extraction.DepthMode == "" {
		c.Extraction.DepthMode = defaultDepthMode
	}
	categories := make([]string, 0, len(c.Extraction.Categories))
	for _, value := range c.Extraction.Categories {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			categories = append(categories, value)
		}
	}
	c.Extraction.Categories = categories
	if c.Extraction.FrameStep == 0 {
		c.Extraction.FrameStep = defaultFrameStep
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.FileConcurrency == 0 {
		c.Workflow.FileConcurrency = defaultFileConcurrency
	}
}

func (c *Config) normalizePreview() {
	if c.Preview.MaxWidth == 0 {
		c.Preview.MaxWidth = defaultPreviewMaxWidth
	}
	if c.Preview.JPEGQuality == 0 {
		c.Preview.JPEGQuality = defaultPreviewJPEGQuality
	}
}

func (c *Config) normalizeFrameSource() {
	c.FrameSource.Backend = strings.ToLower(strings.TrimSpace(c.FrameSource.Backend))
	if c.FrameSource.Backend == "" {
		c.FrameSource.Backend = defaultFrameSourceBackend
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SVOEXTRACT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}
