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
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeCatalog()
	c.normalizeLyrics()
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.YtDlp = strings.TrimSpace(c.Tools.YtDlp)
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
}

func (c *Config) normalizeCatalog() {
	if c.Catalog.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Catalog.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Catalog.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Catalog.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Catalog.ClientID = strings.TrimSpace(c.Catalog.ClientID)
	c.Catalog.ClientSecret = strings.TrimSpace(c.Catalog.ClientSecret)
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.TokenURL = strings.TrimSpace(c.Catalog.TokenURL)
	if c.Catalog.TokenURL == "" {
		c.Catalog.TokenURL = defaultCatalogTokenURL
	}
	c.Catalog.Market = strings.ToUpper(strings.TrimSpace(c.Catalog.Market))
	markets := make([]string, 0, len(c.Catalog.FallbackMarkets))
	seen := make(map[string]struct{}, len(c.Catalog.FallbackMarkets))
	for _, market := range c.Catalog.FallbackMarkets {
		normalized := strings.ToUpper(strings.TrimSpace(market))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		markets = append(markets, normalized)
	}
	c.Catalog.FallbackMarkets = markets
	if c.Catalog.MinMatchScore <= 0 {
		c.Catalog.MinMatchScore = defaultCatalogMinScore
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
	if c.Catalog.RequestsPerSec <= 0 {
		c.Catalog.RequestsPerSec = defaultCatalogRequestsPerS
	}
}

func (c *Config) normalizeLyrics() {
	c.Lyrics.BaseURL = strings.TrimSpace(c.Lyrics.BaseURL)
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = defaultLyricsBaseURL
	}
	if c.Lyrics.RequestTimeout <= 0 {
		c.Lyrics.RequestTimeout = defaultLyricsTimeout
	}
	if c.Lyrics.CacheTTL <= 0 {
		c.Lyrics.CacheTTL = defaultLyricsCacheTTL
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.DownloadConcurrency <= 0 {
		c.Workflow.DownloadConcurrency = defaultDownloadConcurrency
	}
	if c.Workflow.JobRetentionHours <= 0 {
		c.Workflow.JobRetentionHours = defaultJobRetentionHours
	}
	if c.Workflow.SweepIntervalMinutes <= 0 {
		c.Workflow.SweepIntervalMinutes = defaultSweepIntervalMinutes
	}
	if c.Workflow.StreamIntervalSecs <= 0 {
		c.Workflow.StreamIntervalSecs = defaultStreamIntervalSecs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
