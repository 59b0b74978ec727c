// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ytdlp

import (
	"regexp"
	"strings"
)

var (
	timestampLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}`)
	inlineTag     = regexp.MustCompile(`<[^>]+>`)
)

// CleanVTT extracts plain text from WebVTT caption content: headers,
// timestamps and inline cue tags are dropped, and the rolling-caption
// duplication YouTube produces is collapsed by skipping lines identical
// to their predecessor. Lines are joined with single spaces.
func CleanVTT(content string) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "WEBVTT" ||
			strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}
		if timestampLine.MatchString(line) {
			continue
		}

		clean := strings.TrimSpace(inlineTag.ReplaceAllString(line, ""))
		if clean == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == clean {
			continue
		}
		out = append(out, clean)
	}
	return strings.Join(out, " ")
}
