package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOutput()
	c.normalizeScraper()
	c.normalizeLLM()
	c.normalizeDescriptions()
	if err := c.normalizeSelection(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeAssets()
	c.normalizeRender()
	if err := c.normalizeResume(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.intermediate_dir", &c.Paths.IntermediateDir, defaultIntermediateDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.video_dir", &c.Paths.VideoDir, defaultVideoDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir},
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeOutput() {
	c.Output.FilenamePrefix = strings.TrimSpace(c.Output.FilenamePrefix)
	if c.Output.FilenamePrefix == "" {
		c.Output.FilenamePrefix = defaultFilenamePrefix
	}
}

func (c *Config) normalizeScraper() {
	topics := make([]string, 0, len(c.Scraper.Topics))
	for _, topic := range c.Scraper.Topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	c.Scraper.Topics = topics
	envOverride(&c.Scraper.APIToken, "APIFY_API_TOKEN")
	c.Scraper.SearchType = strings.TrimSpace(c.Scraper.SearchType)
	if c.Scraper.SearchType == "" {
		c.Scraper.SearchType = defaultSearchType
	}
	c.Scraper.ActorID = strings.TrimSpace(c.Scraper.ActorID)
	if c.Scraper.ActorID == "" {
		c.Scraper.ActorID = defaultActorID
	}
	c.Scraper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = defaultApifyBaseURL
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		c.Scraper.TimeoutSeconds = defaultScraperTimeout
	}
}

func (c *Config) normalizeLLM() {
	envOverride(&c.LLM.APIKey, "OPENROUTER_API_KEY", "LLM_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.Hooks.HooksPerItem <= 0 {
		c.Hooks.HooksPerItem = defaultHooksPerItem
	}
}

func (c *Config) normalizeDescriptions() {
	envOverride(&c.Descriptions.APIKey, "OPENAI_API_KEY")
	c.Descriptions.BaseURL = strings.TrimSpace(c.Descriptions.BaseURL)
	if c.Descriptions.BaseURL == "" {
		c.Descriptions.BaseURL = defaultVisionBaseURL
	}
	c.Descriptions.Model = strings.TrimSpace(c.Descriptions.Model)
	if c.Descriptions.Model == "" {
		c.Descriptions.Model = defaultVisionModel
	}
	if c.Descriptions.MaxTokens <= 0 {
		c.Descriptions.MaxTokens = defaultVisionMaxTokens
	}
}

func (c *Config) normalizeSelection() error {
	c.Selection.Provider = strings.ToLower(strings.TrimSpace(c.Selection.Provider))
	if c.Selection.Provider == "" {
		c.Selection.Provider = defaultSelectionProvider
	}
	envOverride(&c.Selection.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&c.Selection.SlackChannelID, "SLACK_CHANNEL_ID")
	c.Selection.SlackBaseURL = strings.TrimRight(strings.TrimSpace(c.Selection.SlackBaseURL), "/")
	if c.Selection.SlackBaseURL == "" {
		c.Selection.SlackBaseURL = defaultSlackBaseURL
	}
	if c.Selection.PollIntervalSeconds <= 0 {
		c.Selection.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Selection.TimeoutMinutes <= 0 {
		c.Selection.TimeoutMinutes = defaultTimeoutMinutes
	}
	if c.Selection.AutoSelectIndices == nil {
		c.Selection.AutoSelectIndices = []int{0, 4, 9}
	}
	if strings.TrimSpace(c.Selection.DropDir) == "" {
		c.Selection.DropDir = filepath.Join(c.Paths.StateDir, "selections")
	}
	expanded, err := expandPath(c.Selection.DropDir)
	if err != nil {
		return fmt.Errorf("selection.drop_dir: %w", err)
	}
	c.Selection.DropDir = expanded
	return nil
}

func (c *Config) normalizeDownload() {
	if c.Download.TTLHours <= 0 {
		c.Download.TTLHours = defaultTTLHours
	}
	if c.Download.MaxAttempts <= 0 {
		c.Download.MaxAttempts = defaultMaxAttempts
	}
	if c.Download.InitialDelayMillis < 0 {
		c.Download.InitialDelayMillis = defaultInitialDelayMillis
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
}

// normalizeAssets resolves relative overlay box paths against the assets directory.
func (c *Config) normalizeAssets() {
	boxes := make(map[string]string, len(c.Assets.Boxes))
	for key, value := range c.Assets.Boxes {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if strings.HasPrefix(value, "~") {
			if expanded, err := expandPath(value); err == nil {
				value = expanded
			}
		} else if !filepath.IsAbs(value) {
			value = filepath.Join(c.Paths.AssetsDir, value)
		}
		boxes[key] = filepath.Clean(value)
	}
	c.Assets.Boxes = boxes
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.Codec = strings.TrimSpace(c.Render.Codec)
	if c.Render.Codec == "" {
		c.Render.Codec = defaultCodec
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	if strings.TrimSpace(c.Render.Bitrate) == "" {
		c.Render.Bitrate = defaultBitrate
	}
	if strings.TrimSpace(c.Render.AudioBitrate) == "" {
		c.Render.AudioBitrate = defaultAudioBitrate
	}
	c.Render.FontFamily = strings.TrimSpace(c.Render.FontFamily)
	fallbacks := make([]string, 0, len(c.Render.FontFallbacks))
	for _, name := range c.Render.FontFallbacks {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			fallbacks = append(fallbacks, trimmed)
		}
	}
	c.Render.FontFallbacks = fallbacks
}

func (c *Config) normalizeResume() error {
	if strings.TrimSpace(c.Resume.CheckpointFile) == "" {
		c.Resume.CheckpointFile = filepath.Join(c.Paths.StateDir, "checkpoint.json")
	}
	expanded, err := expandPath(c.Resume.CheckpointFile)
	if err != nil {
		return fmt.Errorf("resume.checkpoint_file: %w", err)
	}
	c.Resume.CheckpointFile = expanded
	return nil
}

func (c *Config) normalizeMetrics() error {
	if strings.TrimSpace(c.Metrics.Textfile) == "" {
		c.Metrics.Textfile = filepath.Join(c.Paths.StateDir, "hookreel.prom")
	}
	expanded, err := expandPath(c.Metrics.Textfile)
	if err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	c.Metrics.Textfile = expanded
	return nil
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

// envOverride replaces dst with the first non-empty environment value among keys.
func envOverride(dst *string, keys ...string) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
			return
		}
	}
	*dst = strings.TrimSpace(*dst)
}
