package config

const (
	defaultDataDir                 = "~/.local/share/svoextract"
	defaultLogDir                  = "~/.local/share/svoextract/logs"
	defaultAPIBind                 = "127.0.0.1:7488"
	defaultDepthMode               = "ULTRA"
	defaultFrameStep               = 1
	defaultQueuePollInterval       = 2
	defaultErrorRetryInterval      = 10
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultFileConcurrency         = 1
	defaultProgressWriteIntervalMs = 250
	defaultPreviewMaxWidth         = 800
	defaultPreviewJPEGQuality      = 90
	defaultFrameSourceBackend      = "synthetic"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultNtfyRequestTimeout      = 10

	uploadsDirName = "svo2_files"
	resultsDirName = "extraction_results"
)

var defaultCategories = []string{"stereo_left", "stereo_right", "depth"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Extraction: Extraction{
			DepthMode:  defaultDepthMode,
			Categories: append([]string(nil), defaultCategories...),
			FrameStep:  defaultFrameStep,
		},
		Workflow: Workflow{
			QueuePollInterval:       defaultQueuePollInterval,
			ErrorRetryInterval:      defaultErrorRetryInterval,
			HeartbeatInterval:       defaultHeartbeatInterval,
			HeartbeatTimeout:        defaultHeartbeatTimeout,
			FileConcurrency:         defaultFileConcurrency,
			ProgressWriteIntervalMs: defaultProgressWriteIntervalMs,
		},
		Preview: Preview{
			MaxWidth:    defaultPreviewMaxWidth,
			JPEGQuality: defaultPreviewJPEGQuality,
		},
		FrameSource: FrameSource{
			Backend: defaultFrameSourceBackend,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
	}
}
