// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"fmt"
	"regexp"
)

var (
	cjkChar       = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	asciiWord     = regexp.MustCompile(`\b[a-zA-Z]+\b`)
	wordCountLine = regexp.MustCompile(`-\s*(\*\*)?字数(\*\*)?:\s*.*?\n`)
	notesHeading  = regexp.MustCompile(`(#+\s*\d*\.?\s*创作说明.*\n)`)
)

// CountWords counts CJK characters plus ASCII words, the convention the
// rewrite prompt's length target uses.
func CountWords(text string) int {
	return len(cjkChar.FindAllString(text, -1)) + len(asciiWord.FindAllString(text, -1))
}

// InjectWordCount replaces the word-count line under the 创作说明 heading
// with the actual count. Existing count lines are removed first, so the
// operation is idempotent. When the heading is absent the content is
// returned unchanged with ok=false.
func InjectWordCount(content string) (string, bool) {
	total := CountWords(content)

	content = wordCountLine.ReplaceAllString(content, "")

	loc := notesHeading.FindStringIndex(content)
	if loc == nil {
		return content, false
	}

	line := fmt.Sprintf("- **字数**: %d/2500字\n", total)
	return content[:loc[1]] + line + content[loc[1]:], true
}
