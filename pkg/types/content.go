// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Platform identifies the hosting platform of a content item.
type Platform string

const (
	PlatformYouTube    Platform = "youtube"
	PlatformXiaoyuzhou Platform = "xiaoyuzhou"
)

// ContentItem is a discovered episode or video, produced by the feed
// scanner and consumed once by the stage pipeline. It is not persisted
// beyond the run; the archive folder and the processed-ID state carry
// everything that must survive.
type ContentItem struct {
	Platform Platform `json:"platform" yaml:"platform"`

	// Channel is the display name of the source channel or podcast.
	Channel string `json:"channel" yaml:"channel"`

	Title string `json:"title" yaml:"title"`

	// Date is the publish date as YYYY-MM-DD.
	Date string `json:"date" yaml:"date"`

	// URL is the canonical episode/video page URL.
	URL string `json:"url" yaml:"url"`

	// ID is the platform-native identifier (11-char YouTube video ID,
	// 24-hex Xiaoyuzhou episode ID).
	ID string `json:"id" yaml:"id"`

	// DurationMinutes is the media length; 0 when unknown.
	DurationMinutes float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ItemMetadata is the metadata acquired for a single item before the
// transcript stage: what the platform page knows about the episode.
type ItemMetadata struct {
	Title       string
	Channel     string
	Date        string
	Description string

	// AudioURL is the direct media URL for audio-only platforms.
	AudioURL string

	// Guests holds speaker lines extracted from the episode description,
	// one guest per line. Empty when the page carries none.
	Guests string

	DurationMinutes float64
}
