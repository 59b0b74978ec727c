// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedscan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// YouTubeFeedBaseURL is the channel RSS endpoint. Tests point it at a
// local server.
var YouTubeFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// YouTubeWatchBaseURL prefixes canonical video URLs.
var YouTubeWatchBaseURL = "https://www.youtube.com/watch?v="

// rssRetryDelay is the pause between RSS fetch attempts.
var rssRetryDelay = 2 * time.Second

const (
	rssFetchAttempts  = 3
	flatPlaylistItems = 15
	fallbackInspected = 5
)

// scanYouTube lists a channel via its RSS feed, falling back to yt-dlp
// when the feed cannot be fetched or parsed.
func (s *Scanner) scanYouTube(ctx context.Context, src types.SourceConfig, opts Options, store *state.Store) ([]types.ContentItem, error) {
	fmt.Fprintf(s.out, "scanning youtube: %s\n", src.Name)

	feed, err := s.fetchFeed(ctx, YouTubeFeedBaseURL+"?channel_id="+src.ChannelID)
	if err == nil {
		return s.filterFeedItems(ctx, feed, src, opts, store), nil
	}

	fmt.Fprintf(s.out, "  rss unavailable (%v), falling back to yt-dlp\n", err)
	return s.scanYouTubeFallback(ctx, src, opts, store)
}

// fetchFeed retrieves and parses the channel RSS feed, retrying the
// fetch a few times before giving up.
func (s *Scanner) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	parser := gofeed.NewParser()

	var lastErr error
	for attempt := 0; attempt < rssFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rssRetryDelay):
			}
		}

		feed, err := s.fetchFeedOnce(ctx, parser, url)
		if err == nil {
			return feed, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Scanner) fetchFeedOnce(ctx context.Context, parser *gofeed.Parser, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed has no entries")
	}
	return feed, nil
}

// filterFeedItems applies the filter chain to RSS entries: processed ID,
// cutoff date, keyword allow-list, then the (expensive) duration lookup.
func (s *Scanner) filterFeedItems(ctx context.Context, feed *gofeed.Feed, src types.SourceConfig, opts Options, store *state.Store) []types.ContentItem {
	cutoff := opts.cutoff()

	var items []types.ContentItem
	for _, entry := range feed.Items {
		videoID := youtubeVideoID(entry)
		if videoID == "" || store.Contains(videoID) {
			continue
		}

		if entry.PublishedParsed == nil {
			continue
		}
		date := entry.PublishedParsed.Format("2006-01-02")
		day, err := parseDay(date)
		if err != nil || day.Before(cutoff) {
			continue
		}

		if !matchesKeywords(entry.Title, src.IncludeKeywords) {
			continue
		}

		url := YouTubeWatchBaseURL + videoID
		minutes, err := s.videos.DurationMinutes(ctx, url)
		if err != nil {
			fmt.Fprintf(s.out, "  skipped (no duration): %s\n", entry.Title)
			continue
		}
		if minutes < opts.MinDurationMinutes {
			fmt.Fprintf(s.out, "  skipped (too short): %s (%.1f min)\n", entry.Title, minutes)
			continue
		}

		items = append(items, types.ContentItem{
			Platform:        types.PlatformYouTube,
			Channel:         src.Name,
			Title:           entry.Title,
			Date:            date,
			URL:             url,
			ID:              videoID,
			DurationMinutes: minutes,
		})
	}
	return items
}

// youtubeVideoID extracts the yt:videoId extension from a feed entry.
func youtubeVideoID(entry *gofeed.Item) string {
	ext, ok := entry.Extensions["yt"]
	if !ok {
		return ""
	}
	ids, ok := ext["videoId"]
	if !ok || len(ids) == 0 {
		return ""
	}
	return ids[0].Value
}

// scanYouTubeFallback lists the channel with yt-dlp, trying the channel-ID
// URL and then the handle URL, and inspecting only the newest few entries.
func (s *Scanner) scanYouTubeFallback(ctx context.Context, src types.SourceConfig, opts Options, store *state.Store) ([]types.ContentItem, error) {
	urls := []string{
		fmt.Sprintf("https://www.youtube.com/channel/%s/videos", src.ChannelID),
		fmt.Sprintf("https://www.youtube.com/@%s/videos", strings.ReplaceAll(src.Name, " ", "")),
	}

	cutoff := opts.cutoff()
	var lastErr error

	for _, listURL := range urls {
		entries, err := s.videos.FlatPlaylist(ctx, listURL, flatPlaylistItems)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) > fallbackInspected {
			entries = entries[:fallbackInspected]
		}

		var items []types.ContentItem
		for _, entry := range entries {
			if entry.ID == "" || store.Contains(entry.ID) {
				continue
			}
			watchURL := YouTubeWatchBaseURL + entry.ID

			date := formatFlatDate(entry.UploadDate)
			if date == "" {
				date, err = s.videos.UploadDate(ctx, watchURL)
				if err != nil || date == "" {
					continue
				}
			}
			day, err := parseDay(date)
			if err != nil || day.Before(cutoff) {
				continue
			}

			if !matchesKeywords(entry.Title, src.IncludeKeywords) {
				continue
			}

			minutes := entry.Duration / 60
			if minutes == 0 {
				if m, err := s.videos.DurationMinutes(ctx, watchURL); err == nil {
					minutes = m
				}
			}
			if minutes < opts.MinDurationMinutes {
				fmt.Fprintf(s.out, "  skipped (too short): %s (%.1f min)\n", entry.Title, minutes)
				continue
			}

			items = append(items, types.ContentItem{
				Platform:        types.PlatformYouTube,
				Channel:         src.Name,
				Title:           entry.Title,
				Date:            date,
				URL:             watchURL,
				ID:              entry.ID,
				DurationMinutes: minutes,
			})
		}

		if len(items) > 0 {
			return items, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// formatFlatDate normalizes a flat-playlist upload_date (YYYYMMDD) into
// YYYY-MM-DD, returning "" for anything it cannot interpret.
func formatFlatDate(d string) string {
	if len(d) < 8 {
		return ""
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:8]
}
