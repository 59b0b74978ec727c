// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feedscan discovers new episodes across subscribed YouTube
// channels and Xiaoyuzhou podcasts, filters them against the processed
// state, and returns the items the pipeline should work on.
package feedscan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// VideoLister is the yt-dlp surface the scanner needs. *ytdlp.Client
// satisfies it.
type VideoLister interface {
	FlatPlaylist(ctx context.Context, url string, maxItems int) ([]ytdlp.FlatEntry, error)
	UploadDate(ctx context.Context, url string) (string, error)
	DurationMinutes(ctx context.Context, url string) (float64, error)
}

// Options carries the scan configuration plus test hooks.
type Options struct {
	types.ScanConfig

	// Now is the clock used for the cutoff; nil means time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) userAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return browserUserAgent
}

// cutoff returns midnight of the oldest acceptable publish day. Items
// published strictly before it are skipped.
func (o Options) cutoff() time.Time {
	t := o.now().AddDate(0, 0, -o.DateRangeDays)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Scanner discovers new content items. Progress and skip lines go to out.
type Scanner struct {
	client *http.Client
	videos VideoLister
	out    io.Writer
}

// New constructs a Scanner.
func New(client *http.Client, videos VideoLister, out io.Writer) *Scanner {
	return &Scanner{client: client, videos: videos, out: out}
}

// Scan walks every source, aggregates candidates, drops those whose
// archive folder already exists (backfilling their IDs into the state
// store), saves the state, and returns the remaining new items. A source
// that fails contributes nothing but never aborts the scan.
func (s *Scanner) Scan(ctx context.Context, sources []types.SourceConfig, opts Options, store *state.Store) []types.ContentItem {
	var pending []types.ContentItem

	for _, src := range sources {
		var items []types.ContentItem
		var err error

		switch src.Platform {
		case types.PlatformYouTube:
			items, err = s.scanYouTube(ctx, src, opts, store)
		case types.PlatformXiaoyuzhou:
			items, err = s.scanXiaoyuzhou(ctx, src, opts, store)
		default:
			fmt.Fprintf(s.out, "skipping unknown platform %q for source %s\n", src.Platform, src.Name)
			continue
		}

		if err != nil {
			fmt.Fprintf(s.out, "failed: scanning %s: %v\n", src.Name, err)
			continue
		}
		pending = append(pending, items...)
	}

	var fresh []types.ContentItem
	for _, item := range pending {
		if archive.Exists(opts.ArchiveRoot, item) {
			// Folder from an earlier run; record the ID so the feed
			// stops offering this item.
			store.Add(item.ID)
			continue
		}
		fresh = append(fresh, item)
	}

	if err := store.Save(); err != nil {
		fmt.Fprintf(s.out, "failed: saving state: %v\n", err)
	}

	return fresh
}

// matchesKeywords reports whether the title passes the allow-list. An
// empty list allows everything.
func matchesKeywords(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// parseDay parses a YYYY-MM-DD date string.
func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
