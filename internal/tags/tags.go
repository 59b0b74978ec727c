// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tags maintains the tag line of rewritten articles: a
// standardized English taxonomy, Chinese-to-English mappings for the
// tags the model tends to emit, and a blacklist of channel names and
// geography that never belong in the taxonomy.
package tags

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Avis-Rio/Chora/internal/archive"
)

// validTags is the standardized taxonomy. Normalization only ever
// outputs members of this set.
var validTags = map[string]struct{}{
	// Academic disciplines
	"Philosophy": {}, "Sociology": {}, "Psychology": {}, "Anthropology": {},
	"History": {}, "Political Science": {}, "Economics": {}, "Technology": {},
	"Medicine": {}, "Law": {},

	// Research fields
	"Gender Studies": {}, "Cultural Studies": {}, "Media Studies": {},
	"Religious Studies": {}, "Neuroscience": {}, "STS": {},

	// Conceptual themes
	"Power & Politics": {}, "Identity": {}, "Ethics": {}, "Capitalism": {},
	"Modernity": {}, "Relationships": {}, "Art & Aesthetics": {},

	// Format
	"Interview": {}, "Deep Dive": {},
}

// tagMapping maps Chinese tags and common synonyms onto the taxonomy.
var tagMapping = map[string]string{
	"哲学":    "Philosophy",
	"社会学":   "Sociology",
	"心理学":   "Psychology",
	"人类学":   "Anthropology",
	"历史":    "History",
	"历史学":   "History",
	"医疗史":   "History",
	"政治":    "Political Science",
	"政治学":   "Political Science",
	"经济":    "Economics",
	"经济学":   "Economics",
	"科技":    "Technology",
	"技术":    "Technology",
	"医学":    "Medicine",
	"医疗":    "Medicine",
	"公共卫生":  "Medicine",
	"法律":    "Law",
	"法学":    "Law",
	"性别":    "Gender Studies",
	"性别研究":  "Gender Studies",
	"女性":    "Gender Studies",
	"女性主义":  "Gender Studies",
	"厌女":    "Gender Studies",
	"母职":    "Gender Studies",
	"文化":    "Cultural Studies",
	"文化研究":  "Cultural Studies",
	"物质文化":  "Cultural Studies",
	"媒体":    "Media Studies",
	"传播":    "Media Studies",
	"新闻":    "Media Studies",
	"宗教":    "Religious Studies",
	"神学":    "Religious Studies",
	"神经科学":  "Neuroscience",
	"脑科学":   "Neuroscience",
	"权力":    "Power & Politics",
	"身体政治":  "Power & Politics",
	"政治经济学": "Power & Politics",
	"权力结构":  "Power & Politics",
	"身份":    "Identity",
	"身份认同":  "Identity",
	"伦理":    "Ethics",
	"道德":    "Ethics",
	"资本主义":  "Capitalism",
	"资本":    "Capitalism",
	"新自由主义": "Capitalism",
	"现代性":   "Modernity",
	"后现代":   "Modernity",
	"社会变迁":  "Modernity",
	"爱情":    "Relationships",
	"婚姻":    "Relationships",
	"家庭":    "Relationships",
	"亲密关系":  "Relationships",
	"艺术":    "Art & Aesthetics",
	"美学":    "Art & Aesthetics",
	"文学":    "Art & Aesthetics",
	"文学批评":  "Art & Aesthetics",
	"访谈":    "Interview",
	"对话":    "Interview",
	"深度":    "Deep Dive",
	"纪录":    "Deep Dive",
	"讲座":    "Deep Dive",
	"炼丹术":   "History",
	"犯罪":    "Sociology",
	"药物":    "Medicine",
	"创作者经济": "Economics",
	"AI":    "Technology",
	"人工智能":  "Technology",
	"脑机接口":  "Neuroscience",
	"赛博格":   "Technology",
	"博物馆":   "Anthropology",
	"去殖民化":  "Anthropology",
	"未来学":   "Technology",
	"镜像世界":  "Technology",
	"教育":    "Sociology",
	"组织管理":  "Sociology",
	"创新困境":  "Economics",
}

// normalizeBlacklist drops channel names, host names and geography
// during normalization. Matched as case-insensitive substrings.
var normalizeBlacklist = []string{
	"忽左忽右", "硅谷101", "翻转电台", "翻转台电", "Dan Koe", "Kevin Kelly",
	"Unknown", "JustPod", "午后偏见", "翻电", "Gavin Wang", "Alex Wang",
	"中国", "美国", "欧洲", "日本", "中东", "拉美", "非洲",
	"China", "USA", "America", "Europe", "Japan",
}

// cleanBlacklist is the lighter list used by Clean, which keeps tags in
// their original language and only strips channel and guest names.
var cleanBlacklist = []string{
	"忽左忽右", "硅谷101", "翻转电台", "翻转台电", "Dan Koe", "Kevin Kelly",
	"Unknown", "JustPod", "午后偏见", "翻电", "Gavin Wang", "Alex Wang",
	"薛茗", "刘燕", "梁永安", "端木易", "陈茜",
}

var (
	normalizeLine = regexp.MustCompile(`(?i)(标签|Tags)[:：][ \t]*(.+)`)
	cleanLine     = regexp.MustCompile(`(标签[:：])[ \t]*(.+)`)
	tagSeparator  = regexp.MustCompile(`[,，、]`)
)

func blacklisted(tag string, blacklist []string) bool {
	lower := strings.ToLower(tag)
	for _, bad := range blacklist {
		if strings.Contains(lower, strings.ToLower(bad)) {
			return true
		}
	}
	return false
}

func splitTags(line string) []string {
	var tags []string
	for _, t := range tagSeparator.Split(line, -1) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Normalize maps one raw tag onto the taxonomy. It returns false for
// blacklisted or unmappable tags.
func Normalize(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if blacklisted(tag, normalizeBlacklist) {
		return "", false
	}
	if _, ok := validTags[tag]; ok {
		return tag, true
	}
	if mapped, ok := tagMapping[tag]; ok {
		return mapped, true
	}
	for valid := range validTags {
		if strings.EqualFold(tag, valid) {
			return valid, true
		}
	}
	return "", false
}

// NormalizeContent rewrites the first tag line of an article to the
// sorted, deduplicated taxonomy form. It reports whether the content
// changed; unknown tags are logged to out and dropped.
func NormalizeContent(content string, out io.Writer) (string, bool) {
	m := normalizeLine.FindStringSubmatch(content)
	if m == nil {
		return content, false
	}

	seen := make(map[string]struct{})
	for _, tag := range splitTags(m[2]) {
		norm, ok := Normalize(tag)
		if !ok {
			if !blacklisted(tag, normalizeBlacklist) {
				fmt.Fprintf(out, "unknown tag skipped: %s\n", tag)
			}
			continue
		}
		seen[norm] = struct{}{}
	}

	final := make([]string, 0, len(seen))
	for tag := range seen {
		final = append(final, tag)
	}
	sort.Strings(final)

	newLine := "Tags: " + strings.Join(final, ", ")
	if newLine == m[0] {
		return content, false
	}
	return strings.Replace(content, m[0], newLine, 1), true
}

// CleanContent strips blacklisted tags from the first Chinese tag line,
// keeping the remaining tags in their original language and order.
func CleanContent(content string) (string, bool) {
	m := cleanLine.FindStringSubmatch(content)
	if m == nil {
		return content, false
	}

	var kept []string
	for _, tag := range splitTags(m[2]) {
		if !blacklisted(tag, cleanBlacklist) {
			kept = append(kept, tag)
		}
	}

	newLine := m[1] + " " + strings.Join(kept, ", ")
	if newLine == m[0] {
		return content, false
	}
	return strings.Replace(content, m[0], newLine, 1), true
}

// NormalizeArchive applies NormalizeContent to every rewritten article
// under root and returns the number of files updated.
func NormalizeArchive(root string, out io.Writer) (int, error) {
	return rewriteArticles(root, out, func(content string) (string, bool) {
		return NormalizeContent(content, out)
	})
}

// CleanArchive applies CleanContent to every rewritten article under
// root and returns the number of files updated.
func CleanArchive(root string, out io.Writer) (int, error) {
	return rewriteArticles(root, out, func(content string) (string, bool) {
		return CleanContent(content)
	})
}

func rewriteArticles(root string, out io.Writer, transform func(string) (string, bool)) (int, error) {
	dates, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("reading archive root: %w", err)
	}

	updated := 0
	for _, date := range dates {
		if !date.IsDir() {
			continue
		}
		folders, err := os.ReadDir(filepath.Join(root, date.Name()))
		if err != nil {
			continue
		}
		for _, folder := range folders {
			if !folder.IsDir() {
				continue
			}
			path := filepath.Join(root, date.Name(), folder.Name(), archive.RewrittenFile)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			next, changed := transform(string(data))
			if !changed {
				continue
			}
			if err := archive.WriteFileAtomic(path, []byte(next)); err != nil {
				fmt.Fprintf(out, "failed: writing %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "updated tags: %s\n", folder.Name())
			updated++
		}
	}
	return updated, nil
}
