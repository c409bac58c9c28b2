package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	WorkDir         string `toml:"work_dir"`
	IntermediateDir string `toml:"intermediate_dir"`
	OutputDir       string `toml:"output_dir"`
	VideoDir        string `toml:"video_dir"`
	CacheDir        string `toml:"cache_dir"`
	AssetsDir       string `toml:"assets_dir"`
	StateDir        string `toml:"state_dir"`
	LogDir          string `toml:"log_dir"`
}

// Output controls artifact naming between stages.
type Output struct {
	SaveIntermediateFiles bool   `toml:"save_intermediate_files"`
	FilenamePrefix        string `toml:"filename_prefix"`
}

// MinEngagement holds the thresholds a collected post must meet.
type MinEngagement struct {
	Likes      int `toml:"likes"`
	Retweets   int `toml:"retweets"`
	Replies    int `toml:"replies"`
	TotalScore int `toml:"total_score"`
}

// Scraper contains configuration for the Apify search actor.
type Scraper struct {
	Topics           []string      `toml:"topics"`
	MaxItemsPerTopic int           `toml:"max_items_per_topic"`
	SearchType       string        `toml:"search_type"`
	ActorID          string        `toml:"actor_id"`
	BaseURL          string        `toml:"base_url"`
	APIToken         string        `toml:"api_token"`
	TimeoutSeconds   int           `toml:"timeout_seconds"`
	MinEngagement    MinEngagement `toml:"min_engagement"`
}

// LLM contains shared LLM connection settings used by hook generation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Descriptions configures the vision model that annotates media.
type Descriptions struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// Hooks configures hook generation.
type Hooks struct {
	Enabled      bool   `toml:"enabled"`
	HooksPerItem int    `toml:"hooks_per_item"`
	Model        string `toml:"model"`
}

// Selection configures the human-in-the-loop hook selection.
type Selection struct {
	Enabled             bool   `toml:"enabled"`
	Provider            string `toml:"provider"`
	AutoSelectIndices   []int  `toml:"auto_select_indices"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	TimeoutMinutes      int    `toml:"timeout_minutes"`
	SlackBotToken       string `toml:"slack_bot_token"`
	SlackChannelID      string `toml:"slack_channel_id"`
	SlackBaseURL        string `toml:"slack_base_url"`
	DropDir             string `toml:"drop_dir"`
}

// Download configures the media cache and fetch retry policy.
type Download struct {
	Enabled            bool   `toml:"enabled"`
	TTLHours           int    `toml:"ttl_hours"`
	MaxAttempts        int    `toml:"max_attempts"`
	InitialDelayMillis int    `toml:"initial_delay_ms"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	UserAgent          string `toml:"user_agent"`
}

// Assets configures overlay box validation.
type Assets struct {
	Enabled          bool              `toml:"enabled"`
	StrictValidation bool              `toml:"strict_validation"`
	Boxes            map[string]string `toml:"boxes"`
}

// Render contains the ffmpeg composite and encode settings.
type Render struct {
	Enabled          bool     `toml:"enabled"`
	FFmpegBinary     string   `toml:"ffmpeg_binary"`
	Width            int      `toml:"width"`
	Height           int      `toml:"height"`
	Framerate        int      `toml:"framerate"`
	Codec            string   `toml:"codec"`
	Preset           string   `toml:"preset"`
	CRF              int      `toml:"crf"`
	Quality          int      `toml:"quality"`
	Bitrate          string   `toml:"bitrate"`
	AudioBitrate     string   `toml:"audio_bitrate"`
	BlurSigma        float64  `toml:"blur_sigma"`
	MaxWidthPercent  float64  `toml:"max_width_percent"`
	MaxHeightPercent float64  `toml:"max_height_percent"`
	TextY            int      `toml:"text_y"`
	FontFamily       string   `toml:"font_family"`
	FontFallbacks    []string `toml:"font_fallbacks"`
}

// Resume controls checkpoint persistence.
type Resume struct {
	Enabled        bool   `toml:"enabled"`
	CheckpointFile string `toml:"checkpoint_file"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics controls the Prometheus textfile export written after each run.
type Metrics struct {
	Enabled  bool   `toml:"enabled"`
	Textfile string `toml:"textfile"`
}

// History controls the SQLite run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for hookreel.
//
// Configuration sections by subsystem:
//   - Paths: artifact, cache, asset, and state directories
//   - Output: intermediate artifact naming
//   - Scraper: Apify search actor and engagement filters
//   - LLM: shared connection settings for hook generation
//   - Descriptions: vision model for media descriptions
//   - Hooks, Selection, Download, Assets, Render: per-stage settings
//   - Resume: checkpoint file
//   - Notifications, Logging, Metrics, History: operational outputs
type Config struct {
	Paths         Paths         `toml:"paths"`
	Output        Output        `toml:"output"`
	Scraper       Scraper       `toml:"scraper"`
	LLM           LLM           `toml:"llm"`
	Descriptions  Descriptions  `toml:"descriptions"`
	Hooks         Hooks         `toml:"hooks"`
	Selection     Selection     `toml:"selection"`
	Download      Download      `toml:"download"`
	Assets        Assets        `toml:"assets"`
	Render        Render        `toml:"render"`
	Resume        Resume        `toml:"resume"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	History       History       `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hookreel.toml")
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

// EnsureDirectories creates the directories a pipeline run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.VideoDir, c.Paths.CacheDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Output.SaveIntermediateFiles {
		dirs = append(dirs, c.Paths.IntermediateDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CheckpointPath returns the checkpoint file location.
func (c *Config) CheckpointPath() string {
	return c.Resume.CheckpointFile
}

// LockPath returns the run lock file guarding the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "hookreel.lock")
}

// HistoryPath returns the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// FFmpegBinary returns the ffmpeg executable name or path.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
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

// LLMConfig contains common LLM settings used across features.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// HooksLLM returns the LLM settings for hook generation. The hooks model
// override wins over the shared [llm] model.
func (c *Config) HooksLLM() LLMConfig {
	cfg := LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if model := strings.TrimSpace(c.Hooks.Model); model != "" {
		cfg.Model = model
	}
	return cfg
}
