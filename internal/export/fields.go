// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"regexp"
	"strconv"
	"strings"
)

// The rewritten article follows a numbered section layout; these
// patterns pull the structured pieces out of it.
var (
	scorePattern      = regexp.MustCompile(`总分\s*\[(\d+)(?:/\d+)?\]`)
	summaryPattern    = regexp.MustCompile(`(?s)##\s*2\.\s*深度改写.*?\n\n(.+?)\n\n`)
	bookListPattern   = regexp.MustCompile(`(?s)##\s*5\.\s*推荐书单.*?\n\n(.*?)(?:\n##|\z)`)
	tagsPattern       = regexp.MustCompile(`(?i)(?:标签|Tags)[:：][ \t]*(.+)`)
	tagSeparator      = regexp.MustCompile(`[,，、]`)
	quoteLine         = regexp.MustCompile(`>\s*(.+)`)
	isoDate           = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	bracketedPlatform = regexp.MustCompile(`(?i)\s*[\(（](YouTube|小宇宙|Podcast)[\)）]`)
	hex24             = regexp.MustCompile(`[a-f0-9]{24}`)
	youtubeWatchID    = regexp.MustCompile(`v=([a-zA-Z0-9_-]{11})`)
	youtubeShortID    = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`)
	xiaoyuzhouEpisode = regexp.MustCompile(`episode/([a-f0-9]{24})`)
	idSafeRune        = regexp.MustCompile(`[^a-zA-Z0-9_\x{4e00}-\x{9fa5}]`)
)

const summaryMaxRunes = 150

// extractScore reads the 总分 [N] (or [N/D]) marker.
func extractScore(content string) int {
	m := scorePattern.FindStringSubmatch(content)
	if m == nil {
		return 0
	}
	score, _ := strconv.Atoi(m[1])
	return score
}

// extractSummary takes the first paragraph of the 深度改写 section,
// capped at 150 runes.
func extractSummary(content string) string {
	m := summaryPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	summary := strings.TrimSpace(m[1])
	runes := []rune(summary)
	if len(runes) > summaryMaxRunes {
		summary = string(runes[:summaryMaxRunes-3]) + "..."
	}
	return summary
}

// extractBookList returns the body of the 推荐书单 section.
func extractBookList(content string) string {
	m := bookListPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractTags finds the first tag line and splits it on Chinese or
// ASCII list separators. A missing tag line yields an empty slice.
func ExtractTags(content string) []string {
	m := tagsPattern.FindStringSubmatch(content)
	if m == nil {
		return []string{}
	}

	var tags []string
	for _, t := range tagSeparator.Split(m[1], -1) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

// GenerateID derives a stable record ID, preferring the platform-native
// ID from the source URL, then one embedded in the folder name, and
// finally a sanitized folder-name slug.
func GenerateID(folderName, platform, sourceURL string) string {
	if sourceURL != "" {
		if strings.Contains(sourceURL, "youtube.com/watch") || strings.Contains(sourceURL, "youtu.be/") {
			if m := youtubeWatchID.FindStringSubmatch(sourceURL); m != nil {
				return m[1]
			}
			if m := youtubeShortID.FindStringSubmatch(sourceURL); m != nil {
				return m[1]
			}
		} else if strings.Contains(sourceURL, "xiaoyuzhoufm.com/episode/") {
			if m := xiaoyuzhouEpisode.FindStringSubmatch(sourceURL); m != nil {
				return m[1]
			}
		}
	}

	if platform == "xiaoyuzhou" {
		if id := hex24.FindString(folderName); id != "" {
			return id
		}
	}

	clean := idSafeRune.ReplaceAllString(folderName, "")
	if runes := []rune(clean); len(runes) > 30 {
		clean = string(runes[:30])
	}

	prefix := "xyz"
	if platform == "youtube" {
		prefix = "yt"
	}
	return prefix + "_" + clean
}
