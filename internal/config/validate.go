package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Run prerequisites that depend
// on what the operator intends to do (secrets, topics) are checked by the
// preflight package instead, so single-stage commands work with partial
// configuration.
func (c *Config) Validate() error {
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScraper() error {
	engagement := c.Scraper.MinEngagement
	if engagement.Likes < 0 || engagement.Retweets < 0 || engagement.Replies < 0 || engagement.TotalScore < 0 {
		return errors.New("scraper.min_engagement values must be non-negative")
	}
	switch c.Scraper.SearchType {
	case "Top", "Latest":
	default:
		return fmt.Errorf("scraper.search_type must be Top or Latest, got %q", c.Scraper.SearchType)
	}
	return nil
}

func (c *Config) validateSelection() error {
	switch c.Selection.Provider {
	case ProviderSlack, ProviderFile:
	default:
		return fmt.Errorf("selection.provider must be %q or %q, got %q", ProviderSlack, ProviderFile, c.Selection.Provider)
	}
	for _, idx := range c.Selection.AutoSelectIndices {
		if idx < 0 {
			return fmt.Errorf("selection.auto_select_indices must be non-negative, got %d", idx)
		}
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.MaxAttempts > 10 {
		return errors.New("download.max_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	if c.Render.Width%2 != 0 || c.Render.Height%2 != 0 {
		return errors.New("render.width and render.height must be even for yuv420p output")
	}
	if c.Render.Framerate <= 0 {
		return errors.New("render.framerate must be positive")
	}
	if c.Render.MaxWidthPercent <= 0 || c.Render.MaxWidthPercent > 100 {
		return errors.New("render.max_width_percent must be in (0, 100]")
	}
	if c.Render.MaxHeightPercent <= 0 || c.Render.MaxHeightPercent > 100 {
		return errors.New("render.max_height_percent must be in (0, 100]")
	}
	if c.Render.BlurSigma < 0 {
		return errors.New("render.blur_sigma must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}
