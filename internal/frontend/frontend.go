// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package frontend publishes the export document for static hosting:
// cover images copied under a public directory, cover URLs written back
// into the export, and the content.json/summary.json pair the web
// frontend reads.
package frontend

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/pkg/types"
)

const (
	// ContentFile and SummaryFile are the data files the frontend loads.
	ContentFile = "content.json"
	SummaryFile = "summary.json"

	excerptMaxRunes   = 200
	safeNameMaxRunes  = 50
	defaultReadingMin = 10
)

// Builder generates frontend artifacts from the archive and the export
// document.
type Builder struct {
	out io.Writer
}

// New constructs a Builder writing progress to out.
func New(out io.Writer) *Builder {
	return &Builder{out: out}
}

// Build runs the full publish: cover sync into cfg.CoversDir, cover URL
// update in the export document, and data generation into cfg.DataDir.
func (b *Builder) Build(archiveRoot, exportPath string, cfg types.FrontendConfig) error {
	if _, err := b.SyncCovers(archiveRoot, cfg.CoversDir); err != nil {
		return err
	}
	if err := b.UpdateCoverURLs(exportPath, cfg.BaseURL); err != nil {
		return err
	}
	return b.GenerateData(exportPath, cfg.DataDir)
}

// SyncedCover records one cover copied into the public directory.
type SyncedCover struct {
	Folder string
	Src    string
	Dst    string
	URL    string
}

// SafeCoverName derives the public cover filename stem from an archive
// folder name.
func SafeCoverName(folderName string) string {
	safe := strings.ReplaceAll(folderName, " ", "_")
	if runes := []rune(safe); len(runes) > safeNameMaxRunes {
		safe = string(runes[:safeNameMaxRunes])
	}
	return safe
}

// SyncCovers copies every archive cover into outputDir under its safe
// name, returning what was synced.
func (b *Builder) SyncCovers(archiveRoot, outputDir string) ([]SyncedCover, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cover directory: %w", err)
	}

	dates, err := os.ReadDir(archiveRoot)
	if err != nil {
		return nil, fmt.Errorf("reading archive root: %w", err)
	}

	var synced []SyncedCover
	for _, date := range dates {
		if !date.IsDir() {
			continue
		}
		folders, err := os.ReadDir(filepath.Join(archiveRoot, date.Name()))
		if err != nil {
			continue
		}
		for _, folder := range folders {
			if !folder.IsDir() {
				continue
			}
			dir := filepath.Join(archiveRoot, date.Name(), folder.Name())
			src := archive.FindCover(dir)
			if src == "" {
				continue
			}

			ext := strings.TrimPrefix(filepath.Ext(src), ".")
			safe := SafeCoverName(folder.Name())
			dst := filepath.Join(outputDir, safe+"."+ext)

			data, err := os.ReadFile(src)
			if err != nil {
				fmt.Fprintf(b.out, "failed: reading %s: %v\n", src, err)
				continue
			}
			if err := archive.WriteFileAtomic(dst, data); err != nil {
				fmt.Fprintf(b.out, "failed: copying %s: %v\n", src, err)
				continue
			}

			synced = append(synced, SyncedCover{
				Folder: folder.Name(),
				Src:    src,
				Dst:    dst,
				URL:    "/covers/" + safe + "." + ext,
			})
		}
	}

	fmt.Fprintf(b.out, "synced %d covers to %s\n", len(synced), outputDir)
	return synced, nil
}

// UpdateCoverURLs rewrites the export document so every record with a
// local cover carries its public URL under baseURL.
func (b *Builder) UpdateCoverURLs(exportPath, baseURL string) error {
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}

	var records []types.ExportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing export: %w", err)
	}

	for i := range records {
		if records[i].CoverPath == "" {
			continue
		}
		records[i].CoverURL = baseURL + coverURLFor(records[i].CoverPath)
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := archive.WriteFileAtomic(exportPath, out); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Fprintf(b.out, "updated cover URLs in %s\n", exportPath)
	return nil
}

func coverURLFor(coverPath string) string {
	folder := filepath.Base(filepath.Dir(coverPath))
	ext := strings.TrimPrefix(filepath.Ext(coverPath), ".")
	if ext == "" {
		ext = "jpg"
	}
	return "/covers/" + SafeCoverName(folder) + "." + ext
}

// Item is the frontend projection of one export record.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Platform    string   `json:"platform"`
	Channel     string   `json:"channel"`
	PublishDate string   `json:"publish_date"`
	ReadingTime int      `json:"reading_time"`
	CoverURL    string   `json:"cover_url"`
	Tags        []string `json:"tags"`
	Excerpt     string   `json:"excerpt"`
	Rewritten   string   `json:"rewritten"`
	Quotes      []string `json:"quotes"`
	Guests      string   `json:"guests"`
	URL         string   `json:"url"`
	Score       int      `json:"score"`
}

// Summary holds the aggregate stats written next to content.json.
type Summary struct {
	Total   int      `json:"total"`
	YouTube int      `json:"youtube"`
	Podcast int      `json:"podcast"`
	Tags    []string `json:"tags"`
}

var platformDisplay = map[types.Platform]string{
	types.PlatformYouTube:    "YouTube",
	types.PlatformXiaoyuzhou: "小宇宙",
}

// GenerateData converts the export document into content.json and
// summary.json under outputDir.
func (b *Builder) GenerateData(exportPath, outputDir string) error {
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	var records []types.ExportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing export: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, toItem(rec))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishDate > items[j].PublishDate
	})

	contentPath := filepath.Join(outputDir, ContentFile)
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := archive.WriteFileAtomic(contentPath, encoded); err != nil {
		return fmt.Errorf("writing %s: %w", ContentFile, err)
	}
	fmt.Fprintf(b.out, "generated %d items to %s\n", len(items), contentPath)

	summary := summarize(items)
	summaryPath := filepath.Join(outputDir, SummaryFile)
	encoded, err = json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := archive.WriteFileAtomic(summaryPath, encoded); err != nil {
		return fmt.Errorf("writing %s: %w", SummaryFile, err)
	}
	fmt.Fprintf(b.out, "generated summary to %s\n", summaryPath)
	return nil
}

func toItem(rec types.ExportRecord) Item {
	platform, ok := platformDisplay[rec.Platform]
	if !ok {
		platform = string(rec.Platform)
	}

	coverURL := rec.CoverURL
	if coverURL == "" && rec.CoverPath != "" {
		coverURL = coverURLFor(rec.CoverPath)
	}

	readingTime := rec.ReadingTime
	if readingTime <= 0 {
		readingTime = defaultReadingMin
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	quotes := rec.Quotes
	if quotes == nil {
		quotes = []string{}
	}

	return Item{
		ID:          rec.ID,
		Title:       rec.Title,
		Platform:    platform,
		Channel:     rec.Channel,
		PublishDate: rec.PublishDate,
		ReadingTime: readingTime,
		CoverURL:    coverURL,
		Tags:        tags,
		Excerpt:     extractExcerpt(rec.Rewritten),
		Rewritten:   rec.Rewritten,
		Quotes:      quotes,
		Guests:      rec.Guests,
		URL:         rec.SourceURL,
		Score:       rec.Score,
	}
}

// extractExcerpt returns the first non-heading paragraph line of the
// article, capped at 200 runes.
func extractExcerpt(rewritten string) string {
	for _, line := range strings.Split(rewritten, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if runes := []rune(line); len(runes) > excerptMaxRunes {
			return string(runes[:excerptMaxRunes]) + "..."
		}
		return line
	}
	return ""
}

func summarize(items []Item) Summary {
	summary := Summary{Total: len(items), Tags: []string{}}
	seen := make(map[string]struct{})
	for _, item := range items {
		switch item.Platform {
		case "YouTube":
			summary.YouTube++
		case "小宇宙":
			summary.Podcast++
		}
		for _, tag := range item.Tags {
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				summary.Tags = append(summary.Tags, tag)
			}
		}
	}
	sort.Strings(summary.Tags)
	return summary
}
