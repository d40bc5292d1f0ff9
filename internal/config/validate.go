package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == c.Paths.OutputDir {
		return errors.New("paths.work_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	// Credentials are optional; without them metadata falls back to
	// title heuristics. A lone ID or secret is a misconfiguration.
	if (c.Catalog.ClientID == "") != (c.Catalog.ClientSecret == "") {
		return errors.New("catalog.client_id and catalog.client_secret must be set together")
	}
	if c.Catalog.Market != "" && len(c.Catalog.Market) != 2 {
		return fmt.Errorf("catalog.market must be a two-letter country code, got %q", c.Catalog.Market)
	}
	for _, market := range c.Catalog.FallbackMarkets {
		if len(market) != 2 {
			return fmt.Errorf("catalog.fallback_markets entries must be two-letter country codes, got %q", market)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.DownloadConcurrency > 16 {
		return errors.New("workflow.download_concurrency must be 16 or lower")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.TTLMinutes > 24*60 {
		return errors.New("preview.ttl_minutes must be one day or lower")
	}
	return nil
}
