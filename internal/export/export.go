// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export flattens archive folders into structured records for
// the spreadsheet sync and the frontend data build.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// Exporter builds export records from the content archive.
type Exporter struct {
	out io.Writer

	// now stamps exported_at; overridable in tests.
	now func() time.Time
}

// New constructs an Exporter.
func New(out io.Writer) *Exporter {
	return &Exporter{out: out, now: time.Now}
}

// ExportAll scans every content folder under root, exports each one, and
// writes the combined records (newest publish date first) as JSON to
// outputPath.
func (e *Exporter) ExportAll(root, outputPath string) ([]types.ExportRecord, error) {
	dateDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading archive root %s: %w", root, err)
	}

	var records []types.ExportRecord
	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() {
			continue
		}
		folders, err := os.ReadDir(filepath.Join(root, dateDir.Name()))
		if err != nil {
			continue
		}
		for _, folder := range folders {
			if !folder.IsDir() {
				continue
			}
			dir := filepath.Join(root, dateDir.Name(), folder.Name())
			rec, err := e.ExportFolder(dir)
			if err != nil {
				fmt.Fprintf(e.out, "skipped %s: %v\n", folder.Name(), err)
				continue
			}
			records = append(records, *rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PublishDate > records[j].PublishDate
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := archive.WriteFileAtomic(outputPath, data); err != nil {
		return nil, err
	}

	fmt.Fprintf(e.out, "exported %d items to %s\n", len(records), outputPath)
	return records, nil
}

// ExportFolder turns one content folder into an export record. A folder
// without a metadata document cannot be exported.
func (e *Exporter) ExportFolder(dir string) (*types.ExportRecord, error) {
	folderName := filepath.Base(dir)

	metaData, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("no metadata document")
	}
	doc := archive.ParseMetadataDoc(string(metaData))

	platform := platformFor(folderName, doc.Source)

	sourceURL := doc.SourceURL
	if sourceURL == "" {
		sourceURL = recoverSourceURL(dir, folderName, platform)
	}

	rewritten := ""
	if data, err := os.ReadFile(filepath.Join(dir, archive.RewrittenFile)); err == nil {
		rewritten = string(data)
	}
	transcript := ""
	if data, err := os.ReadFile(filepath.Join(dir, archive.TranscriptFile)); err == nil {
		transcript = string(data)
	}

	title := doc.Title
	if title == "" {
		title = folderName
	}

	rec := &types.ExportRecord{
		ID:          GenerateID(folderName, platform, sourceURL),
		Title:       title,
		SourceURL:   sourceURL,
		Platform:    types.Platform(platform),
		Channel:     cleanChannel(doc.Source),
		PublishDate: publishDateOf(doc),
		CoverPath:   archive.FindCover(dir),
		Summary:     extractSummary(rewritten),
		ReadingTime: readingTime(rewritten),
		Score:       extractScore(rewritten),
		Tags:        ExtractTags(rewritten),
		Quotes:      quoteLines(doc.Quotes),
		BookList:    extractBookList(rewritten),
		Rewritten:   rewritten,
		Transcript:  transcript,
		WordCount:   len([]rune(rewritten)),
		Guests:      doc.Guests,
		FolderPath:  dir,
		ExportedAt:  e.now().Format(time.RFC3339),
	}
	return rec, nil
}

// platformFor infers the platform from the folder name, falling back to
// the metadata source line.
func platformFor(folderName, source string) string {
	switch {
	case strings.Contains(folderName, "youtube_"):
		return string(types.PlatformYouTube)
	case strings.Contains(folderName, "xiaoyuzhou_"):
		return string(types.PlatformXiaoyuzhou)
	case strings.Contains(source, "YouTube"):
		return string(types.PlatformYouTube)
	case strings.Contains(source, "小宇宙"):
		return string(types.PlatformXiaoyuzhou)
	}
	return "unknown"
}

// cleanChannel strips platform branding from the metadata source line.
func cleanChannel(source string) string {
	if source == "" {
		return "Unknown"
	}
	clean := source
	for _, prefix := range []string{"YouTube - ", "小宇宙 - ", "YouTube ", "小宇宙 "} {
		clean = strings.ReplaceAll(clean, prefix, "")
	}
	clean = bracketedPlatform.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "Unknown"
	}
	return clean
}

// publishDateOf returns the YYYY-MM-DD prefix of the publish time
// section, or "" when it does not look like a date.
func publishDateOf(doc archive.MetadataDoc) string {
	m := isoDate.FindString(doc.PublishDate)
	return m
}

// quoteLines splits a 金句 section into individual quotes: lines starting
// with "> ", with stray headings dropped.
func quoteLines(section string) []string {
	var quotes []string
	for _, m := range quoteLine.FindAllStringSubmatch(section, -1) {
		q := strings.TrimSpace(m[1])
		if q == "" || strings.HasPrefix(q, "#") {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// recoverSourceURL reconstructs a missing source URL from yt-dlp's
// info.json or from an episode ID embedded in the folder name.
func recoverSourceURL(dir, folderName, platform string) string {
	if data, err := os.ReadFile(filepath.Join(dir, "info.json")); err == nil {
		var info struct {
			WebpageURL string `json:"webpage_url"`
		}
		if json.Unmarshal(data, &info) == nil && info.WebpageURL != "" {
			return info.WebpageURL
		}
	}

	if platform == string(types.PlatformXiaoyuzhou) {
		if id := hex24.FindString(folderName); id != "" {
			return "https://www.xiaoyuzhoufm.com/episode/" + id
		}
	}
	return ""
}

// readingTime estimates minutes at roughly 400 characters per minute,
// never less than one minute for non-empty content.
func readingTime(content string) int {
	if content == "" {
		return 0
	}
	minutes := int(math.Round(float64(len([]rune(content))) / 400))
	if minutes < 1 {
		return 1
	}
	return minutes
}
