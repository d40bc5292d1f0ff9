package config

const (
	defaultWorkDir              = "~/.local/share/tonearm/work"
	defaultOutputDir            = "~/media"
	defaultLogDir               = "~/.local/share/tonearm/logs"
	defaultAPIBind              = "127.0.0.1:7487"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultCatalogBaseURL       = "https://api.spotify.com/v1"
	defaultCatalogTokenURL      = "https://accounts.spotify.com/api/token"
	defaultCatalogMinScore      = 7
	defaultCatalogTimeout       = 15
	defaultCatalogRequestsPerS  = 8.0
	defaultLyricsBaseURL        = "https://lrclib.net"
	defaultLyricsTimeout        = 10
	defaultLyricsCacheTTL       = 60
	defaultPreviewTTLMinutes    = 30
	defaultPreviewMaxListings   = 64
	defaultNotifyTimeout        = 10
	defaultDownloadConcurrency  = 3
	defaultJobRetentionHours    = 24
	defaultSweepIntervalMinutes = 60
	defaultStreamIntervalSecs   = 1
	defaultHistoryPath          = "~/.local/share/tonearm/history.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Catalog: Catalog{
			BaseURL:         defaultCatalogBaseURL,
			TokenURL:        defaultCatalogTokenURL,
			FallbackMarkets: []string{"US", "GB", "DE", "FR"},
			MinMatchScore:   defaultCatalogMinScore,
			RequestTimeout:  defaultCatalogTimeout,
			RequestsPerSec:  defaultCatalogRequestsPerS,
		},
		Lyrics: Lyrics{
			Enabled:        true,
			BaseURL:        defaultLyricsBaseURL,
			RequestTimeout: defaultLyricsTimeout,
			CacheTTL:       defaultLyricsCacheTTL,
		},
		Preview: Preview{
			TTLMinutes:  defaultPreviewTTLMinutes,
			MaxListings: defaultPreviewMaxListings,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Workflow: Workflow{
			DownloadConcurrency:  defaultDownloadConcurrency,
			JobRetentionHours:    defaultJobRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
			StreamIntervalSecs:   defaultStreamIntervalSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
	}
}
