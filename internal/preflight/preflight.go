package preflight

import (
	"context"

	"tonearm/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Work directory (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDiskSpace("Work disk space", cfg.Paths.WorkDir))

	// Output directory (when configured)
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	// Catalog API credentials
	if cfg.Catalog.ClientID != "" && cfg.Catalog.ClientSecret != "" {
		results = append(results, CheckCatalog(ctx, cfg.Catalog))
	}

	// Lyrics service
	if cfg.Lyrics.Enabled {
		results = append(results, CheckLyrics(ctx, cfg.Lyrics.BaseURL))
	}

	return results
}
