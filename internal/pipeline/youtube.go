// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

const descriptionMaxRunes = 500

// captionLangPreference orders caption languages: Chinese first, then
// English, then whatever the video has.
var captionLangPreference = []string{"zh-Hans", "zh-Hant", "zh", "zh-CN", "zh-TW", "en"}

func (p *Processor) fetchYouTubeMetadata(ctx context.Context, item *types.ContentItem) (*types.ItemMetadata, error) {
	info, err := p.videos.VideoInfo(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	description := info.Description
	if runes := []rune(description); len(runes) > descriptionMaxRunes {
		description = string(runes[:descriptionMaxRunes])
	}

	return &types.ItemMetadata{
		Title:           info.Title,
		Channel:         info.ChannelName(),
		Date:            info.Date(),
		Description:     description,
		DurationMinutes: info.Duration / 60,
	}, nil
}

// fetchCaptions downloads the video's subtitle tracks and cleans the
// best one into plain text, headed by the caption language.
func (p *Processor) fetchCaptions(ctx context.Context, url string) (string, error) {
	dir, err := os.MkdirTemp("", "chora-subs-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	if err := p.videos.DownloadSubtitles(ctx, url, dir); err != nil {
		return "", fmt.Errorf("downloading subtitles: %w", err)
	}

	path, lang := pickCaption(dir)
	if path == "" {
		return "", errors.New("no captions available")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := ytdlp.CleanVTT(string(data))
	if text == "" {
		return "", errors.New("captions cleaned to empty text")
	}
	return fmt.Sprintf("<!-- Language: %s -->\n\n%s\n", lang, text), nil
}

// pickCaption chooses the preferred subtitle file from the download
// directory. Filenames follow the captions.<lang>.vtt pattern.
func pickCaption(dir string) (path, lang string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ""
	}

	byLang := make(map[string]string)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".vtt") {
			continue
		}
		names = append(names, name)
		parts := strings.Split(name, ".")
		if len(parts) >= 3 {
			byLang[parts[len(parts)-2]] = name
		}
	}

	for _, preferred := range captionLangPreference {
		if name, ok := byLang[preferred]; ok {
			return filepath.Join(dir, name), preferred
		}
	}

	if len(names) == 0 {
		return "", ""
	}
	sort.Strings(names)
	name := names[0]
	lang = "unknown"
	if parts := strings.Split(name, "."); len(parts) >= 3 {
		lang = parts[len(parts)-2]
	}
	return filepath.Join(dir, name), lang
}
