// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// XiaoyuzhouBaseURL fronts xiaoyuzhoufm.com. Tests point it at a local
// server.
var XiaoyuzhouBaseURL = "https://www.xiaoyuzhoufm.com"

// browserUserAgent is the default agent for podcast page requests; the
// site blocks obvious non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var episodeIDPattern = regexp.MustCompile(`/episode/([a-zA-Z0-9]+)`)

// podcastShowJSONLD mirrors the schema.org block embedded in podcast
// pages; workExample carries per-episode publish dates.
type podcastShowJSONLD struct {
	WorkExample []struct {
		Name          string `json:"name"`
		DatePublished string `json:"datePublished"`
	} `json:"workExample"`
}

// scanXiaoyuzhou scrapes a podcast's show page. The episode list markup
// yields title→ID pairs; the JSON-LD block supplies publish dates. When
// the JSON-LD block is missing the scraper degrades to the link list
// alone, stamping items with today's date.
func (s *Scanner) scanXiaoyuzhou(ctx context.Context, src types.SourceConfig, opts Options, store *state.Store) ([]types.ContentItem, error) {
	fmt.Fprintf(s.out, "scanning xiaoyuzhou: %s\n", src.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		XiaoyuzhouBaseURL+"/podcast/"+src.ChannelID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", opts.userAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("podcast page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing podcast page: %w", err)
	}

	idByTitle, ordered := episodeLinks(doc)

	jsonLD := doc.Find(`script[name="schema:podcast-show"]`).First().Text()
	if jsonLD == "" {
		fmt.Fprintf(s.out, "  no schema block, using episode links with today's date\n")
		return s.xiaoyuzhouFallback(src, opts, store, ordered, idByTitle), nil
	}

	var show podcastShowJSONLD
	if err := json.Unmarshal([]byte(jsonLD), &show); err != nil {
		fmt.Fprintf(s.out, "  unreadable schema block (%v), using episode links with today's date\n", err)
		return s.xiaoyuzhouFallback(src, opts, store, ordered, idByTitle), nil
	}

	cutoff := opts.cutoff()
	var items []types.ContentItem
	for _, ep := range show.WorkExample {
		eid := idByTitle[ep.Name]
		if eid == "" || store.Contains(eid) {
			continue
		}

		date := opts.now().Format("2006-01-02")
		if len(ep.DatePublished) >= 10 {
			date = ep.DatePublished[:10]
			if day, err := parseDay(date); err == nil && day.Before(cutoff) {
				continue
			}
		}

		if !matchesKeywords(ep.Name, src.IncludeKeywords) {
			continue
		}

		items = append(items, types.ContentItem{
			Platform: types.PlatformXiaoyuzhou,
			Channel:  src.Name,
			Title:    ep.Name,
			Date:     date,
			URL:      XiaoyuzhouBaseURL + "/episode/" + eid,
			ID:       eid,
		})
	}
	return items, nil
}

// episodeLinks extracts title→ID pairs from the episode list markup,
// also returning titles in page order for the fallback path.
func episodeLinks(doc *goquery.Document) (map[string]string, []string) {
	idByTitle := make(map[string]string)
	var ordered []string

	doc.Find(`a[href*="/episode/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := episodeIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}

		title := strings.TrimSpace(a.Find(`div[class*="title"]`).First().Text())
		if title == "" {
			return
		}
		if _, seen := idByTitle[title]; !seen {
			idByTitle[title] = m[1]
			ordered = append(ordered, title)
		}
	})
	return idByTitle, ordered
}

// xiaoyuzhouFallback builds items from the link list alone. Dates are
// unknown, so everything gets today and the cutoff does not apply.
func (s *Scanner) xiaoyuzhouFallback(src types.SourceConfig, opts Options, store *state.Store, ordered []string, idByTitle map[string]string) []types.ContentItem {
	today := opts.now().Format("2006-01-02")

	var items []types.ContentItem
	for _, title := range ordered {
		eid := idByTitle[title]
		if store.Contains(eid) {
			continue
		}
		if !matchesKeywords(title, src.IncludeKeywords) {
			continue
		}
		items = append(items, types.ContentItem{
			Platform: types.PlatformXiaoyuzhou,
			Channel:  src.Name,
			Title:    title,
			Date:     today,
			URL:      XiaoyuzhouBaseURL + "/episode/" + eid,
			ID:       eid,
		})
	}
	return items
}
