// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Avis-Rio/Chora/pkg/types"
)

// XiaoyuzhouBaseURL fronts the Xiaoyuzhou website. Tests point it at a
// local server.
var XiaoyuzhouBaseURL = "https://www.xiaoyuzhoufm.com"

// browserUserAgent is the default agent for episode page and audio
// requests; the site blocks obvious non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

var episodeIDPattern = regexp.MustCompile(`/episode/([a-zA-Z0-9]+)`)

// episodeJSONLD is the schema.org block on an episode page. The page
// labels it podcast-show but it carries the episode's data.
type episodeJSONLD struct {
	Name            string `json:"name"`
	DatePublished   string `json:"datePublished"`
	AssociatedMedia struct {
		ContentURL string `json:"contentUrl"`
	} `json:"associatedMedia"`
	PartOfSeries struct {
		Name string `json:"name"`
	} `json:"partOfSeries"`
}

// episodeNextData is the slice of the Next.js page payload holding the
// full episode description.
type episodeNextData struct {
	Props struct {
		PageProps struct {
			Episode struct {
				Description string `json:"description"`
			} `json:"episode"`
		} `json:"pageProps"`
	} `json:"props"`
}

// fetchEpisodeMetadata scrapes one episode page: JSON-LD for the
// title/date/audio/series, __NEXT_DATA__ for the description, and guest
// heuristics over the description text.
func (p *Processor) fetchEpisodeMetadata(ctx context.Context, episodeID string) (*types.ItemMetadata, error) {
	url := XiaoyuzhouBaseURL + "/episode/" + episodeID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching episode page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching episode page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing episode page: %w", err)
	}

	meta := &types.ItemMetadata{}
	if raw := doc.Find(`script#__NEXT_DATA__`).Text(); raw != "" {
		var next episodeNextData
		if err := json.Unmarshal([]byte(raw), &next); err == nil {
			meta.Description = next.Props.PageProps.Episode.Description
			meta.Guests = extractGuests(meta.Description)
		}
	}

	raw := doc.Find(`script[name="schema:podcast-show"]`).Text()
	if raw == "" {
		// Degraded page: fall back to the HTML title, dated today.
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
		meta.Date = time.Now().Format("2006-01-02")
		return meta, nil
	}

	var ld episodeJSONLD
	if err := json.Unmarshal([]byte(raw), &ld); err != nil {
		return nil, fmt.Errorf("parsing episode JSON-LD: %w", err)
	}

	meta.Title = ld.Name
	meta.Channel = ld.PartOfSeries.Name
	meta.AudioURL = ld.AssociatedMedia.ContentURL
	if len(ld.DatePublished) >= 10 {
		meta.Date = ld.DatePublished[:10]
	} else {
		meta.Date = time.Now().Format("2006-01-02")
	}
	return meta, nil
}

// Episode descriptions list guests in a few recurring shapes; each
// pattern captures the block up to the next separator or blank line.
var guestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)[-–—]\s*本期话题成员\s*[-–—]\s*\n(.*?)(?:\n[-–—]|\n\n|\z)`),
	regexp.MustCompile(`(?s)[-–—]\s*嘉宾\s*[-–—]\s*\n(.*?)(?:\n[-–—]|\n\n|\z)`),
	regexp.MustCompile(`(?s)本期嘉宾[：:]\s*(.*?)(?:\n\n|\z)`),
	regexp.MustCompile(`(?s)嘉宾[：:]\s*(.*?)(?:\n\n|\z)`),
}

var timelineLine = regexp.MustCompile(`^\d{1,2}:\d{2}`)

// extractGuests pulls guest lines out of an episode description. A
// timeline entry ends the guest block; short dash separators are
// skipped.
func extractGuests(description string) string {
	if description == "" {
		return ""
	}

	for _, pattern := range guestPatterns {
		m := pattern.FindStringSubmatch(description)
		if m == nil {
			continue
		}

		var guests []string
		for _, line := range strings.Split(strings.TrimSpace(m[1]), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if timelineLine.MatchString(line) {
				break
			}
			if strings.HasPrefix(line, "-") && len([]rune(line)) < 5 {
				continue
			}
			guests = append(guests, line)
		}
		if len(guests) > 0 {
			return strings.Join(guests, "\n")
		}
	}
	return ""
}
