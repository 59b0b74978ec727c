// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive resolves content folders and their stage artifacts.
//
// Every piece of content lives in one folder under the archive root,
// keyed by publish date and a sanitized identity:
//
//	{root}/{YYYY-MM-DD}/{platform}_{channel}_{title}
//
// The presence of a named artifact file inside the folder is the only
// record that a pipeline stage completed, so all writes go through
// WriteFileAtomic: a half-written artifact must never be observable.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Avis-Rio/Chora/pkg/types"
)

// Stage artifact filenames.
const (
	MetadataFile   = "metadata.md"
	TranscriptFile = "transcript.md"
	RewrittenFile  = "rewritten.md"
	AudioFile      = "audio.m4a"
)

// coverNames lists recognized cover artifacts in lookup order.
var coverNames = []string{"cover.png", "cover.jpg", "cover.jpeg"}

const maxNameRunes = 50

// SanitizeName makes s safe for use as a path component: filesystem
// metacharacters are removed, spaces become underscores, and the result
// is capped at 50 runes so deep CJK titles do not overflow path limits.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '/', '*', '?', ':', '"', '<', '>', '|':
			continue
		case ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}
	return string(runes)
}

// FolderName returns the sanitized folder name for an item, without the
// date segment.
func FolderName(item types.ContentItem) string {
	return fmt.Sprintf("%s_%s_%s",
		item.Platform,
		SanitizeName(item.Channel),
		SanitizeName(item.Title))
}

// Dir returns the full archive directory for an item.
func Dir(root string, item types.ContentItem) string {
	return filepath.Join(root, item.Date, FolderName(item))
}

// Exists reports whether any folder for the item is already present. The
// date directory is scanned for the platform/channel prefix with the
// sanitized title contained anywhere in the folder name, so a folder
// created by an earlier run with a slightly different title cut still
// counts as existing.
func Exists(root string, item types.ContentItem) bool {
	dateDir := filepath.Join(root, item.Date)
	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return false
	}

	prefix := fmt.Sprintf("%s_%s_", item.Platform, SanitizeName(item.Channel))
	title := SanitizeName(item.Title)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.Contains(name, title) {
			return true
		}
	}
	return false
}

// HasArtifact reports whether the named artifact exists in dir.
func HasArtifact(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// FindCover returns the path of the first cover artifact present in dir,
// or "" when the folder has no cover.
func FindCover(dir string) string {
	for _, name := range coverNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// WriteFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file for %s: %w", path, closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
