// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ytdlp wraps the yt-dlp binary for metadata lookup, playlist
// listing, caption download and thumbnail download.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const bin = "yt-dlp"

// executor abstracts command execution for testing.
type executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Run(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Client invokes yt-dlp. The zero value is not usable; construct with New.
type Client struct {
	exec executor
}

// New returns a Client backed by the real yt-dlp binary.
func New() *Client {
	return &Client{exec: &osExecutor{}}
}

// Info is the subset of yt-dlp's --dump-json output the pipeline uses.
type Info struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Uploader    string  `json:"uploader"`
	UploadDate  string  `json:"upload_date"` // YYYYMMDD
	Description string  `json:"description"`
	Duration    float64 `json:"duration"` // seconds
	WebpageURL  string  `json:"webpage_url"`
}

// ChannelName prefers the channel field, falling back to uploader.
func (i Info) ChannelName() string {
	if i.Channel != "" {
		return i.Channel
	}
	return i.Uploader
}

// Date returns the upload date as YYYY-MM-DD, or "" when absent.
func (i Info) Date() string {
	return FormatDate(i.UploadDate)
}

// FormatDate converts yt-dlp's YYYYMMDD to YYYY-MM-DD. Values of any
// other length pass through unchanged.
func FormatDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:8]
}

// VideoInfo fetches full metadata for a single URL without downloading.
func (c *Client) VideoInfo(ctx context.Context, url string) (*Info, error) {
	out, err := c.exec.Output(ctx, bin, "--dump-json", "--skip-download", url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata for %s: %w", url, err)
	}

	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp metadata for %s: %w", url, err)
	}
	return &info, nil
}

// FlatEntry is one line of --flat-playlist --dump-json output. Upload
// date and duration are present only when the extractor surfaces them in
// flat mode; callers must be ready for zero values.
type FlatEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	UploadDate string  `json:"upload_date"` // YYYYMMDD, often empty
	Duration   float64 `json:"duration"`    // seconds, often zero
}

// FlatPlaylist lists the first maxItems entries of a channel or playlist
// URL without resolving per-video metadata. Unparseable lines are skipped.
func (c *Client) FlatPlaylist(ctx context.Context, url string, maxItems int) ([]FlatEntry, error) {
	out, err := c.exec.Output(ctx, bin,
		"--quiet", "--flat-playlist", "--dump-json",
		"--playlist-items", fmt.Sprintf("1-%d", maxItems),
		url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp flat playlist for %s: %w", url, err)
	}

	var entries []FlatEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e FlatEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UploadDate resolves a single video's upload date as YYYY-MM-DD.
func (c *Client) UploadDate(ctx context.Context, url string) (string, error) {
	out, err := c.exec.Output(ctx, bin, "--quiet", "--print", "upload_date", url)
	if err != nil {
		return "", fmt.Errorf("yt-dlp upload_date for %s: %w", url, err)
	}
	return FormatDate(strings.TrimSpace(string(out))), nil
}

// DurationMinutes resolves a single video's duration in minutes.
func (c *Client) DurationMinutes(ctx context.Context, url string) (float64, error) {
	out, err := c.exec.Output(ctx, bin, "--quiet", "--print", "duration", url)
	if err != nil {
		return 0, fmt.Errorf("yt-dlp duration for %s: %w", url, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q for %s: %w", strings.TrimSpace(string(out)), url, err)
	}
	return seconds / 60, nil
}

// DownloadSubtitles fetches captions into dir as captions.<lang>.vtt,
// asking for Chinese variants first and English as fallback. Both
// authored and auto-generated tracks are requested; which one lands is
// up to yt-dlp's preference order.
func (c *Client) DownloadSubtitles(ctx context.Context, url, dir string) error {
	err := c.exec.Run(ctx, bin,
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", "zh-Hans,zh-Hant,zh,zh-CN,zh-TW,en",
		"--sub-format", "vtt",
		"--output", filepath.Join(dir, "captions"),
		url)
	if err != nil {
		return fmt.Errorf("yt-dlp subtitles for %s: %w", url, err)
	}
	return nil
}

// DownloadThumbnail saves the best thumbnail as cover.jpg in dir.
func (c *Client) DownloadThumbnail(ctx context.Context, url, dir string) error {
	err := c.exec.Run(ctx, bin,
		"--write-thumbnail", "--skip-download",
		"--convert-thumbnails", "jpg",
		"--output", filepath.Join(dir, "cover.%(ext)s"),
		url)
	if err != nil {
		return fmt.Errorf("yt-dlp thumbnail for %s: %w", url, err)
	}
	return nil
}
