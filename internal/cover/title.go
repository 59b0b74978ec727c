// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cover

import (
	"regexp"
	"strings"
)

// Episode titles arrive dressed in series names, episode numbers and
// channel branding. Only the core topic belongs on a cover, so these
// helpers strip everything else before the title reaches the prompt.

var (
	cnParens     = regexp.MustCompile(`（.*?）`)
	enParens     = regexp.MustCompile(`\(.*?\)`)
	episodeTag   = regexp.MustCompile(`(?i)^(Vol|Ep|No|Part)\.?\s*\d+`)
	seriesNumber = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}]+\d+$`)
	trailingNum  = regexp.MustCompile(`\d+$`)
	digitRun     = regexp.MustCompile(`\d`)

	seriesSplit = regexp.MustCompile(`^([^0-9]+)(\d+)(.+)$`)
	cnSubtitle  = regexp.MustCompile(`^([^（]+)（.*）$`)
	enSubtitle  = regexp.MustCompile(`^([^(]+)\(.*\)$`)
)

// titleSeparators are the vertical-bar and dash variants seen in the
// wild, normalized before splitting.
var titleSeparators = []string{"：", "—", " - ", "｜", "︱", "丨", "│", "|"}

const maxTitleRunes = 30

// CleanTitle reduces an episode title to the text worth rendering on a
// cover: parentheticals, episode numbering, series tags and anything
// echoing the channel name are removed, and the result is capped at 30
// runes.
func CleanTitle(title, channel string) string {
	clean := title

	if rest, ok := strings.CutPrefix(clean, "标题："); ok {
		clean = strings.TrimSpace(rest)
	} else if rest, ok := strings.CutPrefix(clean, "Title:"); ok {
		clean = strings.TrimSpace(rest)
	}

	clean = strings.TrimSpace(stripParens(clean))

	normalized := clean
	for _, sep := range titleSeparators {
		normalized = strings.ReplaceAll(normalized, sep, "|")
	}

	var parts []string
	if strings.Contains(normalized, "|") {
		for _, p := range strings.Split(normalized, "|") {
			parts = append(parts, strings.TrimSpace(p))
		}
	} else {
		parts = []string{clean}
	}

	valid := filterTitleParts(parts, channel)

	switch {
	case len(valid) > 0:
		clean = pickTitlePart(valid)
	default:
		clean = strings.TrimSpace(stripParens(title))
	}

	for _, prefix := range []string{"FULL ", "EP", "E", "#", "【", "】"} {
		if rest, ok := strings.CutPrefix(clean, prefix); ok {
			clean = strings.TrimSpace(rest)
		}
	}

	runes := []rune(clean)
	if len(runes) > maxTitleRunes {
		clean = string(runes[:28]) + "..."
	}
	return clean
}

func stripParens(s string) string {
	s = cnParens.ReplaceAllString(s, "")
	return enParens.ReplaceAllString(s, "")
}

func filterTitleParts(parts []string, channel string) []string {
	var valid []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if isMostlyNumber(part) {
			continue
		}
		if episodeTag.MatchString(part) {
			continue
		}
		// Series name plus episode number, e.g. 午后偏见030.
		if seriesNumber.MatchString(part) && len([]rune(part)) <= 10 {
			continue
		}
		if echoesChannel(part, channel) {
			continue
		}
		valid = append(valid, part)
	}
	return valid
}

// isMostlyNumber drops pure numbers and short digit-bearing fragments
// like "030" or "第3期".
func isMostlyNumber(part string) bool {
	if !digitRun.MatchString(part) {
		return false
	}
	allDigits := true
	for _, r := range part {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	return allDigits || len([]rune(part)) < 5
}

func echoesChannel(part, channel string) bool {
	if channel == "" || channel == "Unknown" {
		return false
	}
	if strings.Contains(part, channel) || strings.Contains(channel, part) {
		return true
	}
	base := strings.TrimSpace(trailingNum.ReplaceAllString(part, ""))
	if base == "" {
		return false
	}
	return strings.Contains(channel, base) || strings.Contains(base, channel)
}

// pickTitlePart prefers the first part not ending in digits; a series
// label like 午后偏见030 loses to the real title that follows it.
func pickTitlePart(valid []string) string {
	for _, p := range valid {
		if !trailingNum.MatchString(p) {
			return p
		}
	}
	return valid[0]
}

// ExtractTitleFromDirName recovers the original episode title from an
// archive folder name. Folder titles predate the AI rewrite, so they are
// the trustworthy source when regenerating covers.
func ExtractTitleFromDirName(dirName string) string {
	original := dirName

	name := strings.TrimPrefix(dirName, "xiaoyuzhou_")
	if i := strings.Index(name, "_-_"); i >= 0 {
		name = name[:i]
	}

	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		if name != "" {
			return name
		}
		return original
	}

	// First part is the channel name; FULL/EP/E fragments are noise.
	var filtered []string
	for _, part := range parts[1:] {
		switch strings.ToUpper(part) {
		case "FULL", "EP", "E":
			continue
		}
		filtered = append(filtered, part)
	}
	if len(filtered) == 0 {
		return parts[1]
	}

	candidate := filtered[0]

	// Split series+number+title runs like 午后偏见030厌女与母职.
	if m := seriesSplit.FindStringSubmatch(candidate); m != nil {
		if len([]rune(m[3])) >= 4 {
			candidate = m[3]
		}
	}

	// Drop trailing parenthetical subtitles.
	if m := cnSubtitle.FindStringSubmatch(candidate); m != nil {
		if main := strings.TrimSpace(m[1]); len([]rune(main)) >= 4 {
			candidate = main
		}
	}
	if m := enSubtitle.FindStringSubmatch(candidate); m != nil {
		if main := strings.TrimSpace(m[1]); len([]rune(main)) >= 4 {
			candidate = main
		}
	}

	if candidate = strings.TrimSpace(candidate); candidate != "" {
		return candidate
	}
	return original
}
