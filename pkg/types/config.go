// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "chora/0.1"). Xiaoyuzhou pages require a browser-like agent.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig describes one subscribed channel or podcast.
type SourceConfig struct {
	// Platform is the hosting platform: youtube or xiaoyuzhou.
	Platform Platform `json:"platform" yaml:"platform"`

	// ChannelID is the platform-native channel or podcast identifier
	// (YouTube channel ID, Xiaoyuzhou podcast ID).
	ChannelID string `json:"channel_id" yaml:"channel_id"`

	// Name is the display name of the channel, used in folder names.
	Name string `json:"name" yaml:"name"`

	// IncludeKeywords is an optional allow-list: when non-empty, only
	// titles containing at least one keyword (case-insensitive) are kept.
	IncludeKeywords []string `json:"include_keywords,omitempty" yaml:"include_keywords,omitempty"`
}

// ScanConfig holds settings for the feed scan stage.
type ScanConfig struct {
	HTTPConfig `yaml:",inline"`

	// ArchiveRoot is the base directory of the on-disk content archive.
	ArchiveRoot string `json:"archive_root" yaml:"archive_root"`

	// DateRangeDays is the discovery window: items published strictly
	// before now minus this many days are skipped (default 7).
	DateRangeDays int `json:"date_range_days" yaml:"date_range_days"`

	// MinDurationMinutes filters out short items (default 30).
	MinDurationMinutes float64 `json:"min_duration_minutes" yaml:"min_duration_minutes"`
}

// GeminiConfig holds settings for one Gemini-compatible endpoint.
// The base URL names the model and points at its generateContent
// endpoint; the streaming variant is derived from it.
type GeminiConfig struct {
	// BaseURL is the generateContent endpoint of the model.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is sent as a Bearer token.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// GroqConfig holds settings for the Whisper transcription API.
type GroqConfig struct {
	// APIKey authenticates against the Groq API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the Whisper model identifier (default whisper-large-v3).
	Model string `json:"model" yaml:"model"`
}

// FeishuConfig holds credentials and table coordinates for the Bitable sync.
type FeishuConfig struct {
	AppID     string `json:"app_id" yaml:"app_id"`
	AppSecret string `json:"app_secret,omitempty" yaml:"app_secret,omitempty"`

	// BaseID is the Bitable app token; TableID the target table.
	BaseID  string `json:"base_id" yaml:"base_id"`
	TableID string `json:"table_id" yaml:"table_id"`
}

// PipelineConfig groups the settings for processing a single content item.
type PipelineConfig struct {
	HTTPConfig `yaml:",inline"`

	// ArchiveRoot is the base directory of the on-disk content archive.
	ArchiveRoot string `json:"archive_root" yaml:"archive_root"`

	// PromptPath is the rewrite prompt template file.
	PromptPath string `json:"prompt_path" yaml:"prompt_path"`

	Rewrite GeminiConfig `json:"rewrite" yaml:"rewrite"`
	Cover   GeminiConfig `json:"cover" yaml:"cover"`
	Groq    GroqConfig   `json:"groq" yaml:"groq"`
}

// FrontendConfig holds settings for the static frontend outputs.
type FrontendConfig struct {
	// CoversDir receives copies of all cover images.
	CoversDir string `json:"covers_dir" yaml:"covers_dir"`

	// DataDir receives content.json and summary.json.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// BaseURL prefixes cover URLs written into the export document.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}
