// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the per-item stage machine: metadata, transcript
// (with transcription for audio-only sources), rewrite and cover. Each
// stage is keyed to its artifact file, so a rerun picks up exactly where
// the last run stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/internal/cover"
	"github.com/Avis-Rio/Chora/internal/rewrite"
	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/transcribe"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

const audioDownloadTimeout = 10 * time.Minute

type videoTool interface {
	VideoInfo(ctx context.Context, url string) (*ytdlp.Info, error)
	DownloadSubtitles(ctx context.Context, url, dir string) error
	DownloadThumbnail(ctx context.Context, url, dir string) error
}

type transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type rewriter interface {
	Rewrite(ctx context.Context, transcriptPath, metadataPath, outputPath string) error
}

type coverMaker interface {
	Generate(ctx context.Context, title, channel, description, outputPath string) error
}

// Processor drives one content item through every stage.
type Processor struct {
	videos videoTool
	audio  transcriber
	writer rewriter
	covers coverMaker
	client *http.Client
	root   string
	ua     string
	store  *state.Store
	out    io.Writer
}

// NewProcessor wires the stage collaborators together.
func NewProcessor(videos *ytdlp.Client, trans *transcribe.Transcriber, rew *rewrite.Rewriter,
	covers *cover.Generator, hc *http.Client, cfg types.PipelineConfig, store *state.Store, out io.Writer) *Processor {
	return &Processor{
		videos: videos,
		audio:  trans,
		writer: rew,
		covers: covers,
		client: hc,
		root:   cfg.ArchiveRoot,
		ua:     cfg.UserAgent,
		store:  store,
		out:    out,
	}
}

func (p *Processor) userAgent() string {
	if p.ua != "" {
		return p.ua
	}
	return browserUserAgent
}

// ProcessAll runs every item through the pipeline. A failed item is
// reported and skipped; the rest of the batch continues. It returns the
// number of items fully processed.
func (p *Processor) ProcessAll(ctx context.Context, items []types.ContentItem) int {
	processed := 0
	for _, item := range items {
		if err := p.ProcessItem(ctx, item); err != nil {
			fmt.Fprintf(p.out, "failed: %s: %v\n", item.Title, err)
			continue
		}
		processed++
	}
	return processed
}

// ProcessItem runs the ordered stages for one item. Stages whose
// artifact already exists are skipped, and a stage failure leaves all
// earlier artifacts on disk. The item's ID is recorded as processed only
// once the final stage has run.
func (p *Processor) ProcessItem(ctx context.Context, item types.ContentItem) error {
	meta, err := p.fetchMetadata(ctx, &item)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	dir := archive.Dir(p.root, item)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	fmt.Fprintf(p.out, "processing %s\n", filepath.Base(dir))

	if err := p.writeInitialMetadata(dir, item, meta); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := p.transcriptStage(ctx, dir, item, meta); err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	if err := p.rewriteStage(ctx, dir); err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	p.coverStage(ctx, dir, item, meta)

	p.store.Add(item.ID)
	if err := p.store.Save(); err != nil {
		fmt.Fprintf(p.out, "warning: saving state: %v\n", err)
	}
	return nil
}

// fetchMetadata resolves the item's page metadata and fills in any
// missing title/channel/date so the archive folder gets its final name.
func (p *Processor) fetchMetadata(ctx context.Context, item *types.ContentItem) (*types.ItemMetadata, error) {
	var meta *types.ItemMetadata
	var err error

	switch item.Platform {
	case types.PlatformYouTube:
		meta, err = p.fetchYouTubeMetadata(ctx, item)
	case types.PlatformXiaoyuzhou:
		meta, err = p.fetchEpisodeMetadata(ctx, item.ID)
	default:
		return nil, fmt.Errorf("unsupported platform %q", item.Platform)
	}
	if err != nil {
		return nil, err
	}

	// The scan dedupes folders on feed-provided values; when page
	// metadata disagrees (renamed channel, corrected date) the folder
	// created from these overrides can differ from the one the scan
	// checked. The state ID recorded after processing is what stops
	// rescans, so such an item costs at most one extra folder.
	if meta.Title != "" {
		item.Title = meta.Title
	}
	if meta.Channel != "" {
		item.Channel = meta.Channel
	}
	if meta.Date != "" {
		item.Date = meta.Date
	}
	return meta, nil
}

func (p *Processor) writeInitialMetadata(dir string, item types.ContentItem, meta *types.ItemMetadata) error {
	path := filepath.Join(dir, archive.MetadataFile)
	if archive.HasArtifact(dir, archive.MetadataFile) {
		fmt.Fprintf(p.out, "metadata exists, skipping\n")
		return nil
	}

	doc := archive.MetadataDoc{
		Title:       item.Title,
		Source:      item.Channel,
		SourceURL:   item.URL,
		PublishDate: item.Date,
		Guests:      meta.Guests,
	}
	return archive.WriteFileAtomic(path, []byte(doc.Render()))
}

func (p *Processor) transcriptStage(ctx context.Context, dir string, item types.ContentItem, meta *types.ItemMetadata) error {
	path := filepath.Join(dir, archive.TranscriptFile)
	if archive.HasArtifact(dir, archive.TranscriptFile) {
		fmt.Fprintf(p.out, "transcript exists, skipping\n")
		return nil
	}

	var text string
	var err error
	switch item.Platform {
	case types.PlatformYouTube:
		text, err = p.fetchCaptions(ctx, item.URL)
	case types.PlatformXiaoyuzhou:
		text, err = p.transcribeEpisode(ctx, dir, meta)
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("empty transcript")
	}
	return archive.WriteFileAtomic(path, []byte(text))
}

// transcribeEpisode downloads the episode audio (once) and runs chunked
// transcription over it.
func (p *Processor) transcribeEpisode(ctx context.Context, dir string, meta *types.ItemMetadata) (string, error) {
	audioPath := filepath.Join(dir, archive.AudioFile)
	if !archive.HasArtifact(dir, archive.AudioFile) {
		if meta.AudioURL == "" {
			return "", errors.New("no audio URL in episode metadata")
		}
		fmt.Fprintf(p.out, "downloading audio\n")
		if err := p.downloadAudio(ctx, meta.AudioURL, audioPath); err != nil {
			return "", err
		}
	} else {
		fmt.Fprintf(p.out, "audio exists, skipping download\n")
	}
	return p.audio.Transcribe(ctx, audioPath)
}

func (p *Processor) downloadAudio(ctx context.Context, audioURL, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, audioDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading audio: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".audio-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	if size == 0 {
		return errors.New("downloaded audio is empty")
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "audio downloaded: %.1f MB\n", float64(size)/(1024*1024))
	return nil
}

func (p *Processor) rewriteStage(ctx context.Context, dir string) error {
	if archive.HasArtifact(dir, archive.RewrittenFile) {
		fmt.Fprintf(p.out, "rewrite exists, skipping\n")
		return nil
	}
	return p.writer.Rewrite(ctx,
		filepath.Join(dir, archive.TranscriptFile),
		filepath.Join(dir, archive.MetadataFile),
		filepath.Join(dir, archive.RewrittenFile))
}

// coverStage acquires a cover: YouTube items get the video thumbnail
// with a generated image as fallback, podcasts always generate. Cover
// failures are reported but never fail the item.
func (p *Processor) coverStage(ctx context.Context, dir string, item types.ContentItem, meta *types.ItemMetadata) {
	if archive.FindCover(dir) != "" {
		fmt.Fprintf(p.out, "cover exists, skipping\n")
		return
	}

	if item.Platform == types.PlatformYouTube {
		if err := p.videos.DownloadThumbnail(ctx, item.URL, dir); err == nil && archive.FindCover(dir) != "" {
			return
		}
		fmt.Fprintf(p.out, "thumbnail download failed, generating cover\n")
	}

	outputPath := filepath.Join(dir, "cover.png")
	if err := p.covers.Generate(ctx, item.Title, item.Channel, meta.Description, outputPath); err != nil {
		fmt.Fprintf(p.out, "failed: cover for %s: %v\n", item.Title, err)
	}
}

// ItemFromURL builds a pipeline item from a user-supplied URL or bare
// YouTube video ID.
func ItemFromURL(raw string) (types.ContentItem, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.Contains(raw, "xiaoyuzhoufm.com"):
		m := episodeIDPattern.FindStringSubmatch(raw)
		if m == nil {
			return types.ContentItem{}, fmt.Errorf("no episode ID in %q", raw)
		}
		return types.ContentItem{
			Platform: types.PlatformXiaoyuzhou,
			ID:       m[1],
			URL:      XiaoyuzhouBaseURL + "/episode/" + m[1],
		}, nil
	case strings.Contains(raw, "youtube.com"), strings.Contains(raw, "youtu.be"):
		id := youtubeIDFromURL(raw)
		if id == "" {
			return types.ContentItem{}, fmt.Errorf("no video ID in %q", raw)
		}
		return youtubeItem(id), nil
	case raw != "" && !strings.ContainsAny(raw, "/. "):
		// Bare YouTube video ID.
		return youtubeItem(raw), nil
	}
	return types.ContentItem{}, fmt.Errorf("unsupported URL %q", raw)
}

func youtubeItem(id string) types.ContentItem {
	return types.ContentItem{
		Platform: types.PlatformYouTube,
		ID:       id,
		URL:      "https://www.youtube.com/watch?v=" + id,
	}
}

func youtubeIDFromURL(raw string) string {
	if _, after, ok := strings.Cut(raw, "v="); ok {
		id, _, _ := strings.Cut(after, "&")
		return id
	}
	parts := strings.Split(strings.TrimRight(raw, "/"), "/")
	last := parts[len(parts)-1]
	last, _, _ = strings.Cut(last, "?")
	return last
}
