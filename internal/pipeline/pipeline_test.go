// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

const sampleVTT = "WEBVTT\nKind: captions\nLanguage: zh\n\n00:00:00.000 --> 00:00:02.000\n你好 世界\n\n00:00:02.000 --> 00:00:04.000\n欢迎收听\n"

type fakeVideoTool struct {
	info         *ytdlp.Info
	infoErr      error
	subtitleLang string
	subtitleErr  error
	thumbErr     error

	subtitleCalls int
}

func (f *fakeVideoTool) VideoInfo(context.Context, string) (*ytdlp.Info, error) {
	return f.info, f.infoErr
}

func (f *fakeVideoTool) DownloadSubtitles(_ context.Context, _, dir string) error {
	f.subtitleCalls++
	if f.subtitleErr != nil {
		return f.subtitleErr
	}
	name := fmt.Sprintf("captions.%s.vtt", f.subtitleLang)
	return os.WriteFile(filepath.Join(dir, name), []byte(sampleVTT), 0o644)
}

func (f *fakeVideoTool) DownloadThumbnail(_ context.Context, _, dir string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("img"), 0o644)
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeRewriter struct {
	err   error
	calls int
}

func (f *fakeRewriter) Rewrite(_ context.Context, _, _, outputPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("# 改写\n\n正文。\n"), 0o644)
}

type fakeCoverMaker struct {
	err   error
	calls int
}

func (f *fakeCoverMaker) Generate(_ context.Context, _, _, _, outputPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("png"), 0o644)
}

func newTestProcessor(t *testing.T, videos videoTool, trans transcriber, rew rewriter, covers coverMaker) (*Processor, string, *state.Store) {
	t.Helper()
	root := t.TempDir()
	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))
	p := &Processor{
		videos: videos,
		audio:  trans,
		writer: rew,
		covers: covers,
		client: http.DefaultClient,
		root:   root,
		store:  store,
		out:    &bytes.Buffer{},
	}
	return p, root, store
}

func youtubeTestItem() types.ContentItem {
	return types.ContentItem{
		Platform: types.PlatformYouTube,
		ID:       "dQw4w9WgXcQ",
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
}

func TestProcessItemMetadataOverridesFeedValues(t *testing.T) {
	videos := &fakeVideoTool{
		info: &ytdlp.Info{
			Title:      "一个视频",
			Channel:    "改名后的频道",
			UploadDate: "20260821",
			Duration:   3600,
		},
		subtitleLang: "zh",
	}
	p, root, store := newTestProcessor(t, videos, &fakeTranscriber{}, &fakeRewriter{}, &fakeCoverMaker{})

	item := youtubeTestItem()
	item.Title = "旧标题"
	item.Channel = "订阅名"
	item.Date = "2026-08-19"

	require.NoError(t, p.ProcessItem(context.Background(), item))

	// Page metadata wins over the feed-provided values, so the folder is
	// keyed on what the page reports, not on the scan's key.
	assert.DirExists(t, filepath.Join(root, "2026-08-21", "youtube_改名后的频道_一个视频"))
	assert.NoDirExists(t, filepath.Join(root, "2026-08-19"))

	// The recorded ID is what keeps later scans from offering the item
	// again under its feed-derived key.
	assert.True(t, store.Contains(item.ID))
}

func TestProcessItemYouTube(t *testing.T) {
	videos := &fakeVideoTool{
		info: &ytdlp.Info{
			Title:      "一个视频",
			Channel:    "某频道",
			UploadDate: "20260820",
			Duration:   3600,
		},
		subtitleLang: "zh-Hans",
	}
	rew := &fakeRewriter{}
	p, root, store := newTestProcessor(t, videos, &fakeTranscriber{}, rew, &fakeCoverMaker{})

	item := youtubeTestItem()
	require.NoError(t, p.ProcessItem(context.Background(), item))

	dir := filepath.Join(root, "2026-08-20", "youtube_某频道_一个视频")
	require.DirExists(t, dir)

	meta, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	require.NoError(t, err)
	assert.Contains(t, string(meta), "# 一个视频")
	assert.Contains(t, string(meta), "某频道")
	assert.Contains(t, string(meta), item.URL)

	transcript, err := os.ReadFile(filepath.Join(dir, archive.TranscriptFile))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "<!-- Language: zh-Hans -->")
	assert.Contains(t, string(transcript), "你好 世界 欢迎收听")

	assert.FileExists(t, filepath.Join(dir, archive.RewrittenFile))
	assert.FileExists(t, filepath.Join(dir, "cover.jpg"))
	assert.Equal(t, 1, rew.calls)
	assert.True(t, store.Contains(item.ID))
}

func TestProcessItemSkipsExistingArtifacts(t *testing.T) {
	videos := &fakeVideoTool{
		info: &ytdlp.Info{Title: "一个视频", Channel: "某频道", UploadDate: "20260820"},
	}
	trans := &fakeTranscriber{}
	rew := &fakeRewriter{}
	p, root, _ := newTestProcessor(t, videos, trans, rew, &fakeCoverMaker{})

	dir := filepath.Join(root, "2026-08-20", "youtube_某频道_一个视频")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{archive.MetadataFile, archive.TranscriptFile, archive.RewrittenFile, "cover.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("existing"), 0o644))
	}

	require.NoError(t, p.ProcessItem(context.Background(), youtubeTestItem()))

	assert.Equal(t, 0, videos.subtitleCalls)
	assert.Equal(t, 0, trans.calls)
	assert.Equal(t, 0, rew.calls)

	data, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestProcessItemRewriteFailure(t *testing.T) {
	videos := &fakeVideoTool{
		info:         &ytdlp.Info{Title: "一个视频", Channel: "某频道", UploadDate: "20260820"},
		subtitleLang: "en",
	}
	p, root, store := newTestProcessor(t, videos, &fakeTranscriber{}, &fakeRewriter{err: errors.New("model overloaded")}, &fakeCoverMaker{})

	err := p.ProcessItem(context.Background(), youtubeTestItem())
	require.ErrorContains(t, err, "rewrite")

	// The transcript survives for the next attempt; the item is not
	// marked processed.
	dir := filepath.Join(root, "2026-08-20", "youtube_某频道_一个视频")
	assert.FileExists(t, filepath.Join(dir, archive.TranscriptFile))
	assert.False(t, store.Contains("dQw4w9WgXcQ"))
}

func TestProcessItemCoverFailureDoesNotFailItem(t *testing.T) {
	videos := &fakeVideoTool{
		info:         &ytdlp.Info{Title: "一个视频", Channel: "某频道", UploadDate: "20260820"},
		subtitleLang: "zh",
		thumbErr:     errors.New("no thumbnail"),
	}
	covers := &fakeCoverMaker{err: errors.New("image API down")}
	p, _, store := newTestProcessor(t, videos, &fakeTranscriber{}, &fakeRewriter{}, covers)

	require.NoError(t, p.ProcessItem(context.Background(), youtubeTestItem()))
	assert.Equal(t, 1, covers.calls)
	assert.True(t, store.Contains("dQw4w9WgXcQ"))
}

func TestProcessItemXiaoyuzhou(t *testing.T) {
	const episodeID = "5f1a2b3c4d5e6f7a8b9c0d1e"
	description := "节目介绍\n\n- 本期话题成员 -\n薛茗，人类学家\n高琳，主播\n\n- 时间轴 -\n01:58 开场"

	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/episode/"+episodeID, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		nextData, err := jsonMarshalNextData(description)
		require.NoError(t, err)
		fmt.Fprintf(w, `<html><head>
<script id="__NEXT_DATA__" type="application/json">%s</script>
<script name="schema:podcast-show" type="application/ld+json">{"name":"当博物馆开始说话","datePublished":"2026-08-20T12:00:00.000Z","associatedMedia":{"contentUrl":"%s/audio.m4a"},"partOfSeries":{"name":"忽左忽右"}}</script>
</head><body></body></html>`, nextData, ts.URL)
	})
	mux.HandleFunc("/audio.m4a", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("m4a-bytes"))
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	trans := &fakeTranscriber{text: "转录文本"}
	covers := &fakeCoverMaker{}
	p, root, store := newTestProcessor(t, &fakeVideoTool{}, trans, &fakeRewriter{}, covers)
	p.client = ts.Client()

	item := types.ContentItem{
		Platform: types.PlatformXiaoyuzhou,
		ID:       episodeID,
		URL:      "https://www.xiaoyuzhoufm.com/episode/" + episodeID,
	}
	require.NoError(t, p.ProcessItem(context.Background(), item))

	dir := filepath.Join(root, "2026-08-20", "xiaoyuzhou_忽左忽右_当博物馆开始说话")
	require.DirExists(t, dir)

	meta, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	require.NoError(t, err)
	assert.Contains(t, string(meta), "## 嘉宾\n薛茗，人类学家\n高琳，主播")

	audio, err := os.ReadFile(filepath.Join(dir, archive.AudioFile))
	require.NoError(t, err)
	assert.Equal(t, "m4a-bytes", string(audio))

	transcript, err := os.ReadFile(filepath.Join(dir, archive.TranscriptFile))
	require.NoError(t, err)
	assert.Equal(t, "转录文本", string(transcript))

	assert.Equal(t, 1, trans.calls)
	assert.Equal(t, 1, covers.calls)
	assert.FileExists(t, filepath.Join(dir, "cover.png"))
	assert.True(t, store.Contains(episodeID))
}

func jsonMarshalNextData(description string) (string, error) {
	var next episodeNextData
	next.Props.PageProps.Episode.Description = description
	data, err := json.Marshal(next)
	return string(data), err
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	videos := &fakeVideoTool{infoErr: errors.New("video unavailable")}
	p, _, _ := newTestProcessor(t, videos, &fakeTranscriber{}, &fakeRewriter{}, &fakeCoverMaker{})

	processed := p.ProcessAll(context.Background(), []types.ContentItem{
		youtubeTestItem(),
		{Platform: "unknown", ID: "x", Title: "bad platform"},
	})
	assert.Equal(t, 0, processed)
}

func TestItemFromURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		platform types.Platform
		id       string
		wantErr  bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", types.PlatformYouTube, "dQw4w9WgXcQ", false},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", types.PlatformYouTube, "dQw4w9WgXcQ", false},
		{"bare id", "dQw4w9WgXcQ", types.PlatformYouTube, "dQw4w9WgXcQ", false},
		{"xiaoyuzhou", "https://www.xiaoyuzhoufm.com/episode/5f1a2b3c4d5e6f7a8b9c0d1e", types.PlatformXiaoyuzhou, "5f1a2b3c4d5e6f7a8b9c0d1e", false},
		{"unsupported", "https://example.com/page", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ItemFromURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.platform, item.Platform)
			assert.Equal(t, tt.id, item.ID)
			assert.NotEmpty(t, item.URL)
		})
	}
}

func TestExtractGuests(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "member block terminated by blank line",
			description: "开场\n\n- 本期话题成员 -\n薛茗，人类学家\n高琳，主播\n\n别的内容",
			want:        "薛茗，人类学家\n高琳，主播",
		},
		{
			name:        "timeline line ends the block",
			description: "- 嘉宾 -\n梁永安，学者\n01:58 开场白\n02:30 正题",
			want:        "梁永安，学者",
		},
		{
			name:        "inline guest label",
			description: "本期嘉宾：陈茜\n\n正文",
			want:        "陈茜",
		},
		{
			name:        "no guests",
			description: "只有节目介绍，没有嘉宾信息。",
			want:        "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractGuests(tt.description))
		})
	}
}

func TestPickCaption(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"captions.en.vtt", "captions.zh-Hans.vtt", "captions.ja.vtt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sampleVTT), 0o644))
	}

	path, lang := pickCaption(dir)
	assert.Equal(t, filepath.Join(dir, "captions.zh-Hans.vtt"), path)
	assert.Equal(t, "zh-Hans", lang)

	require.NoError(t, os.Remove(filepath.Join(dir, "captions.zh-Hans.vtt")))
	require.NoError(t, os.Remove(filepath.Join(dir, "captions.en.vtt")))
	path, lang = pickCaption(dir)
	assert.Equal(t, filepath.Join(dir, "captions.ja.vtt"), path)
	assert.Equal(t, "ja", lang)

	path, _ = pickCaption(t.TempDir())
	assert.Empty(t, path)
}
