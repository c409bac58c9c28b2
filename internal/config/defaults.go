package config

const (
	defaultConfigPath          = "~/.config/hookreel/config.toml"
	defaultWorkDir             = "."
	defaultIntermediateDir     = "~/.local/share/hookreel/intermediate"
	defaultOutputDir           = "~/.local/share/hookreel/output"
	defaultVideoDir            = "~/.local/share/hookreel/output/videos"
	defaultCacheDir            = "~/.cache/hookreel/media"
	defaultAssetsDir           = "~/.config/hookreel/assets"
	defaultStateDir            = "~/.local/share/hookreel/state"
	defaultLogDir              = "~/.local/share/hookreel/logs"
	defaultFilenamePrefix      = "hookreel_output"
	defaultMaxItemsPerTopic    = 20
	defaultSearchType          = "Top"
	defaultActorID             = "web.harvester~easy-twitter-search-scraper"
	defaultApifyBaseURL        = "https://api.apify.com/v2"
	defaultScraperTimeout      = 300
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "anthropic/claude-sonnet-4.5"
	defaultLLMReferer          = "https://github.com/hookreel/hookreel"
	defaultLLMTitle            = "hookreel"
	defaultLLMTimeoutSeconds   = 60
	defaultVisionBaseURL       = "https://api.openai.com/v1"
	defaultVisionModel         = "gpt-4o-mini"
	defaultVisionMaxTokens     = 150
	defaultHooksPerItem        = 10
	defaultSelectionProvider   = ProviderSlack
	defaultPollIntervalSeconds = 10
	defaultTimeoutMinutes      = 60
	defaultSlackBaseURL        = "https://slack.com/api"
	defaultTTLHours            = 24
	defaultMaxAttempts         = 3
	defaultInitialDelayMillis  = 1000
	defaultDownloadTimeout     = 30
	defaultUserAgent           = "Mozilla/5.0 (compatible; MediaDownloader/1.0)"
	defaultFFmpegBinary        = "ffmpeg"
	defaultWidth               = 1080
	defaultHeight              = 1920
	defaultFramerate           = 30
	defaultCodec               = "libx264"
	defaultPreset              = "medium"
	defaultCRF                 = 18
	defaultQuality             = 65
	defaultBitrate             = "10M"
	defaultAudioBitrate        = "192k"
	defaultBlurSigma           = 20
	defaultMaxWidthPercent     = 90
	defaultMaxHeightPercent    = 60
	defaultTextY               = 300
	defaultFontFamily          = "Arial"
	defaultCheckpointFile      = "~/.local/share/hookreel/state/checkpoint.json"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Selection providers.
const (
	ProviderSlack = "slack"
	ProviderFile  = "file"
)

// Overlay box keys, one per caption line count.
const (
	BoxOneLine   = "1_liner"
	BoxTwoLine   = "2_liner"
	BoxThreeLine = "3_liner"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:         defaultWorkDir,
			IntermediateDir: defaultIntermediateDir,
			OutputDir:       defaultOutputDir,
			VideoDir:        defaultVideoDir,
			CacheDir:        defaultCacheDir,
			AssetsDir:       defaultAssetsDir,
			StateDir:        defaultStateDir,
			LogDir:          defaultLogDir,
		},
		Output: Output{
			SaveIntermediateFiles: true,
			FilenamePrefix:        defaultFilenamePrefix,
		},
		Scraper: Scraper{
			MaxItemsPerTopic: defaultMaxItemsPerTopic,
			SearchType:       defaultSearchType,
			ActorID:          defaultActorID,
			BaseURL:          defaultApifyBaseURL,
			TimeoutSeconds:   defaultScraperTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Descriptions: Descriptions{
			Enabled:   true,
			BaseURL:   defaultVisionBaseURL,
			Model:     defaultVisionModel,
			MaxTokens: defaultVisionMaxTokens,
		},
		Hooks: Hooks{
			Enabled:      true,
			HooksPerItem: defaultHooksPerItem,
		},
		Selection: Selection{
			Enabled:             true,
			Provider:            defaultSelectionProvider,
			AutoSelectIndices:   []int{0, 4, 9},
			PollIntervalSeconds: defaultPollIntervalSeconds,
			TimeoutMinutes:      defaultTimeoutMinutes,
			SlackBaseURL:        defaultSlackBaseURL,
		},
		Download: Download{
			Enabled:            true,
			TTLHours:           defaultTTLHours,
			MaxAttempts:        defaultMaxAttempts,
			InitialDelayMillis: defaultInitialDelayMillis,
			TimeoutSeconds:     defaultDownloadTimeout,
			UserAgent:          defaultUserAgent,
		},
		Assets: Assets{
			Enabled:          true,
			StrictValidation: true,
			Boxes: map[string]string{
				BoxOneLine:   "tweet_boxes/1_liner.png",
				BoxTwoLine:   "tweet_boxes/2_liner.png",
				BoxThreeLine: "tweet_boxes/3_liner.png",
			},
		},
		Render: Render{
			Enabled:          true,
			FFmpegBinary:     defaultFFmpegBinary,
			Width:            defaultWidth,
			Height:           defaultHeight,
			Framerate:        defaultFramerate,
			Codec:            defaultCodec,
			Preset:           defaultPreset,
			CRF:              defaultCRF,
			Quality:          defaultQuality,
			Bitrate:          defaultBitrate,
			AudioBitrate:     defaultAudioBitrate,
			BlurSigma:        defaultBlurSigma,
			MaxWidthPercent:  defaultMaxWidthPercent,
			MaxHeightPercent: defaultMaxHeightPercent,
			TextY:            defaultTextY,
			FontFamily:       defaultFontFamily,
			FontFallbacks:    []string{"Helvetica", "LiberationSans-Regular", "DejaVuSans"},
		},
		Resume: Resume{
			Enabled:        true,
			CheckpointFile: defaultCheckpointFile,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Metrics: Metrics{
			Enabled: false,
		},
		History: History{
			Enabled: true,
		},
	}
}
